package knowledge

import (
	"context"
	"encoding/json"
	"sort"
	"time"
)

// LifecycleOptions carries the optional parts of a state transition.
type LifecycleOptions struct {
	Reason string
	// VersionID, when set, also moves that version to the new state.
	VersionID string
	Metadata  map[string]any
}

// HistoryOptions filters GetStateHistory.
type HistoryOptions struct {
	VersionID string
}

// UpdateLifecycleState moves ref to state. Any state may follow any other.
// The artifact must have an index; everything after the index write is
// best effort against missing records, so a vanished version is logged and
// skipped. Storage failures are always returned.
func (e *Engine) UpdateLifecycleState(ctx context.Context, ref ArtifactRef, state LifecycleState, opts LifecycleOptions) (_ *StateChange, err error) {
	defer e.observe("update_lifecycle_state", time.Now(), &err)

	if err := validateRef("artifactRef", ref); err != nil {
		return nil, err
	}
	if state == "" {
		return nil, &ValidationError{Field: "state", Reason: "required"}
	}

	idx, found, err := e.loadIndex(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &NotFoundError{Kind: "artifact", Key: ref.String()}
	}

	now := e.now().UTC()
	from := idx.LifecycleState
	if from == "" {
		from = StateUnknown
	}
	change, raw, err := normalize(&StateChange{
		ChangeID:    e.newID(),
		ArtifactRef: ref,
		From:        from,
		To:          state,
		Timestamp:   now,
		Reason:      opts.Reason,
		VersionID:   opts.VersionID,
		Metadata:    opts.Metadata,
	})
	if err != nil {
		return nil, &ValidationError{Field: "metadata", Reason: err.Error()}
	}

	idx.LifecycleState = state
	idx.StateHistory = append(idx.StateHistory, *change)
	if err := e.save(ctx, categoryVersionIndex, refKey(ref), idx); err != nil {
		return nil, err
	}

	if opts.VersionID != "" {
		if err := e.setVersionState(ctx, ref, opts.VersionID, state, now); err != nil {
			return nil, err
		}
	}

	if err := e.put(ctx, categoryStateChanges, stateChangeKey(ref, change.ChangeID), raw); err != nil {
		return nil, err
	}

	e.logger.Info("lifecycle state changed",
		"artifact", ref.String(), "from", from, "to", state, "version", opts.VersionID, "reason", opts.Reason)
	return change, nil
}

func (e *Engine) setVersionState(ctx context.Context, ref ArtifactRef, versionID string, state LifecycleState, at time.Time) error {
	v, found, err := e.loadVersion(ctx, ref, versionID)
	if err != nil {
		return err
	}
	if !found {
		e.logger.Warn("lifecycle update skipped missing version", "artifact", ref.String(), "version", versionID)
		return nil
	}
	v.LifecycleState = state
	if v.Metadata == nil {
		v.Metadata = map[string]any{}
	}
	v.Metadata[MetadataUpdatedAt] = at.Format(time.RFC3339Nano)
	return e.save(ctx, categoryVersions, versionKey(ref, versionID), v)
}

// GetStateHistory returns the transitions recorded for ref, oldest first.
// With opts.VersionID set, only transitions that named that version are
// returned. An artifact without transitions has an empty history.
func (e *Engine) GetStateHistory(ctx context.Context, ref ArtifactRef, opts HistoryOptions) (_ []StateChange, err error) {
	defer e.observe("get_state_history", time.Now(), &err)

	if err := validateRef("artifactRef", ref); err != nil {
		return nil, err
	}

	out := []StateChange{}
	err = e.scan(ctx, categoryStateChanges, func(_ string, raw []byte) error {
		var change StateChange
		if err := json.Unmarshal(raw, &change); err != nil {
			return err
		}
		if change.ArtifactRef != ref {
			return nil
		}
		if opts.VersionID != "" && change.VersionID != opts.VersionID {
			return nil
		}
		out = append(out, change)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
