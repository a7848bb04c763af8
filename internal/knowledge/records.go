package knowledge

import (
	"context"
	"encoding/json"
	"net/url"
)

// Storage categories. Keys inside each category are derived from
// path-escaped identifiers joined by "/", so the same logical identity
// always addresses the same slot.
const (
	categoryVersions        = "versions"
	categoryVersionIndex    = "version_index"
	categoryDependencies    = "dependencies"
	categoryDependencyIndex = "dependency_index"
	categoryStateChanges    = "state_changes"
)

func refKey(ref ArtifactRef) string {
	return url.PathEscape(ref.Type) + "/" + url.PathEscape(ref.ID)
}

func versionKey(ref ArtifactRef, versionID string) string {
	return refKey(ref) + "/" + url.PathEscape(versionID)
}

func dependencyIndexKey(ref ArtifactRef, dir adjacency) string {
	return refKey(ref) + "/" + string(dir)
}

func stateChangeKey(ref ArtifactRef, changeID string) string {
	return refKey(ref) + "/" + url.PathEscape(changeID)
}

// load decodes the record at (category, key) into dst. It returns false
// when the record does not exist.
func (e *Engine) load(ctx context.Context, category, key string, dst any) (bool, error) {
	raw, err := e.store.Get(ctx, category, key)
	if err != nil {
		return false, &StorageError{Op: "get", Category: category, Key: key, Err: err}
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, &StorageError{Op: "decode", Category: category, Key: key, Err: err}
	}
	return true, nil
}

// save encodes v and writes it to (category, key).
func (e *Engine) save(ctx context.Context, category, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &StorageError{Op: "encode", Category: category, Key: key, Err: err}
	}
	return e.put(ctx, category, key, raw)
}

func (e *Engine) put(ctx context.Context, category, key string, raw []byte) error {
	if err := e.store.Put(ctx, category, key, raw); err != nil {
		return &StorageError{Op: "put", Category: category, Key: key, Err: err}
	}
	return nil
}

// scan decodes every record of category, handing each to fn. Records that
// fail to decode abort the scan.
func (e *Engine) scan(ctx context.Context, category string, fn func(key string, raw []byte) error) error {
	entries, err := e.store.GetAll(ctx, category)
	if err != nil {
		return &StorageError{Op: "get_all", Category: category, Err: err}
	}
	for _, entry := range entries {
		if err := fn(entry.Key, entry.Value); err != nil {
			return &StorageError{Op: "decode", Category: category, Key: entry.Key, Err: err}
		}
	}
	return nil
}

// normalize round-trips v through the record codec so values handed back
// to callers compare equal to what a later read returns.
func normalize[T any](v *T) (*T, []byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, err
	}
	return &out, raw, nil
}
