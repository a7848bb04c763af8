package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/lineage/internal/export"
	"github.com/dusk-indust/lineage/internal/knowledge"
)

func newLifecycleCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lifecycle",
		Short: "Change and inspect lifecycle states",
	}
	cmd.AddCommand(newLifecycleSetCmd(flags), newLifecycleHistoryCmd(flags))
	return cmd
}

func newLifecycleSetCmd(flags *rootFlags) *cobra.Command {
	var (
		reason    string
		versionID string
	)

	cmd := &cobra.Command{
		Use:   "set TYPE:ID STATE",
		Short: "Move an artifact to a new state",
		Long: `Move an artifact to a new state. active, deprecated and archived are
well known; any other name is accepted as a custom state.`,
		Args: cobra.ExactArgs(2),
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ref, err := knowledge.ParseArtifactRef(args[0])
			if err != nil {
				return err
			}
			change, err := a.engine.UpdateLifecycleState(ctx, ref, knowledge.LifecycleState(args[1]), knowledge.LifecycleOptions{
				Reason:    reason,
				VersionID: versionID,
			})
			if err != nil {
				return err
			}
			return export.WriteJSON(cmd.OutOrStdout(), change)
		}),
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the state changed")
	cmd.Flags().StringVar(&versionID, "version", "", "also move this version to the new state")
	return cmd
}

func newLifecycleHistoryCmd(flags *rootFlags) *cobra.Command {
	var versionID string

	cmd := &cobra.Command{
		Use:   "history TYPE:ID",
		Short: "List state transitions oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ref, err := knowledge.ParseArtifactRef(args[0])
			if err != nil {
				return err
			}
			changes, err := a.engine.GetStateHistory(ctx, ref, knowledge.HistoryOptions{VersionID: versionID})
			if err != nil {
				return err
			}
			return export.WriteJSON(cmd.OutOrStdout(), changes)
		}),
	}
	cmd.Flags().StringVar(&versionID, "version", "", "only transitions that named this version")
	return cmd
}
