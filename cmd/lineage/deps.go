package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/lineage/internal/export"
	"github.com/dusk-indust/lineage/internal/knowledge"
)

func newDepCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Register and inspect dependencies",
	}
	cmd.AddCommand(newDepAddCmd(flags), newDepListCmd(flags))
	return cmd
}

func newDepAddCmd(flags *rootFlags) *cobra.Command {
	var (
		typ      string
		strength string
		metadata map[string]string
	)

	cmd := &cobra.Command{
		Use:   "add SOURCE_TYPE:ID TARGET_TYPE:ID",
		Short: "Record that the source relies on the target",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			source, err := knowledge.ParseArtifactRef(args[0])
			if err != nil {
				return err
			}
			target, err := knowledge.ParseArtifactRef(args[1])
			if err != nil {
				return err
			}

			meta := make(map[string]any, len(metadata))
			for k, v := range metadata {
				meta[k] = v
			}
			dep, err := a.engine.RegisterDependency(ctx, source, target, knowledge.DependencyOptions{
				Type:     typ,
				Strength: knowledge.Strength(strings.ToLower(strength)),
				Metadata: meta,
			})
			if err != nil {
				return err
			}
			return export.WriteJSON(cmd.OutOrStdout(), dep)
		}),
	}
	cmd.Flags().StringVar(&typ, "type", "", "dependency type (default: references)")
	cmd.Flags().StringVar(&strength, "strength", "", "weak, medium or strong (default: medium)")
	cmd.Flags().StringToStringVar(&metadata, "meta", nil, "metadata key=value (repeatable)")
	return cmd
}

func newDepListCmd(flags *rootFlags) *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "list TYPE:ID",
		Short: "Show the direct edges of an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ref, err := knowledge.ParseArtifactRef(args[0])
			if err != nil {
				return err
			}

			out := struct {
				Outgoing []knowledge.Dependency `json:"outgoing,omitempty"`
				Incoming []knowledge.Dependency `json:"incoming,omitempty"`
			}{}
			switch strings.ToLower(direction) {
			case "both":
				if out.Outgoing, err = a.engine.GetOutgoing(ctx, ref); err != nil {
					return err
				}
				out.Incoming, err = a.engine.GetIncoming(ctx, ref)
			case "outgoing":
				out.Outgoing, err = a.engine.GetOutgoing(ctx, ref)
			case "incoming":
				out.Incoming, err = a.engine.GetIncoming(ctx, ref)
			default:
				return fmt.Errorf("--direction must be outgoing, incoming or both, got %q", direction)
			}
			if err != nil {
				return err
			}
			return export.WriteJSON(cmd.OutOrStdout(), out)
		}),
	}
	cmd.Flags().StringVar(&direction, "direction", "both", "outgoing, incoming or both")
	return cmd
}
