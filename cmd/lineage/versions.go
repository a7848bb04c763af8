package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/lineage/internal/export"
	"github.com/dusk-indust/lineage/internal/knowledge"
)

func newVersionCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Create and read artifact versions",
	}
	cmd.AddCommand(
		newVersionCreateCmd(flags),
		newVersionGetCmd(flags),
		newVersionListCmd(flags),
	)
	return cmd
}

func newVersionCreateCmd(flags *rootFlags) *cobra.Command {
	var (
		content  string
		file     string
		asJSON   bool
		parent   string
		tags     []string
		metadata map[string]string
	)

	cmd := &cobra.Command{
		Use:   "create TYPE:ID",
		Short: "Store a new version of an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ref, err := knowledge.ParseArtifactRef(args[0])
			if err != nil {
				return err
			}

			raw := content
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read content: %w", err)
				}
				raw = string(data)
			}

			var body any = raw
			if asJSON {
				if err := json.Unmarshal([]byte(raw), &body); err != nil {
					return fmt.Errorf("content is not valid JSON: %w", err)
				}
			}

			meta := make(map[string]any, len(metadata))
			for k, v := range metadata {
				meta[k] = v
			}

			v, err := a.engine.CreateVersion(ctx, ref, body, knowledge.CreateOptions{
				Metadata:        meta,
				ParentVersionID: parent,
				Tags:            tags,
			})
			if err != nil {
				return err
			}
			return export.WriteJSON(cmd.OutOrStdout(), v)
		}),
	}
	cmd.Flags().StringVar(&content, "content", "", "version content")
	cmd.Flags().StringVar(&file, "file", "", "read content from this file instead")
	cmd.Flags().BoolVar(&asJSON, "json", false, "parse content as JSON rather than storing it as text")
	cmd.Flags().StringVar(&parent, "parent", "", "id of the version this one supersedes")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringToStringVar(&metadata, "meta", nil, "metadata key=value (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("content", "file")
	return cmd
}

func newVersionGetCmd(flags *rootFlags) *cobra.Command {
	var (
		versionID string
		at        string
	)

	cmd := &cobra.Command{
		Use:   "get TYPE:ID",
		Short: "Fetch a version by id, by time, or the latest",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ref, err := knowledge.ParseArtifactRef(args[0])
			if err != nil {
				return err
			}
			sel, err := selector(versionID, at)
			if err != nil {
				return err
			}
			v, err := a.engine.GetVersion(ctx, ref, sel)
			if err != nil {
				return err
			}
			return export.WriteJSON(cmd.OutOrStdout(), v)
		}),
	}
	cmd.Flags().StringVar(&versionID, "id", "", "version id")
	cmd.Flags().StringVar(&at, "at", "", "RFC 3339 instant; selects the version current at that time")
	cmd.MarkFlagsMutuallyExclusive("id", "at")
	return cmd
}

func newVersionListCmd(flags *rootFlags) *cobra.Command {
	var (
		limit      int
		start, end string
		tags       []string
	)

	cmd := &cobra.Command{
		Use:   "list TYPE:ID",
		Short: "List versions newest first",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ref, err := knowledge.ParseArtifactRef(args[0])
			if err != nil {
				return err
			}
			opts := knowledge.ListOptions{Limit: limit, Tags: tags}
			if opts.Limit <= 0 {
				opts.Limit = a.cfg.Versions.Limit
			}
			if opts.Start, err = parseTime("start", start); err != nil {
				return err
			}
			if opts.End, err = parseTime("end", end); err != nil {
				return err
			}

			versions, err := a.engine.ListVersions(ctx, ref, opts)
			if err != nil {
				return err
			}
			return export.WriteJSON(cmd.OutOrStdout(), versions)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of versions (default: versions.limit)")
	cmd.Flags().StringVar(&start, "start", "", "inclusive RFC 3339 lower bound")
	cmd.Flags().StringVar(&end, "end", "", "inclusive RFC 3339 upper bound")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "keep versions carrying any of these tags")
	return cmd
}

func newArtifactsCmd(flags *rootFlags) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "List versioned artifacts",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			artifacts, err := a.engine.ListArtifacts(ctx)
			if err != nil {
				return err
			}
			if typ != "" {
				filtered := make([]knowledge.ArtifactSummary, 0, len(artifacts))
				for _, s := range artifacts {
					if strings.EqualFold(s.ArtifactRef.Type, typ) {
						filtered = append(filtered, s)
					}
				}
				artifacts = filtered
			}
			return export.WriteJSON(cmd.OutOrStdout(), artifacts)
		}),
	}
	cmd.Flags().StringVar(&typ, "type", "", "only list artifacts of this type")
	return cmd
}

func selector(versionID, at string) (knowledge.Selector, error) {
	ts, err := parseTime("at", at)
	if err != nil {
		return knowledge.Selector{}, err
	}
	return knowledge.Selector{VersionID: versionID, Timestamp: ts}, nil
}

func parseTime(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}
