package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/lineage/internal/export"
	"github.com/dusk-indust/lineage/internal/knowledge"
)

func newExportCmd(flags *rootFlags) *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "export TYPE:ID",
		Short: "Dump everything known about an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ref, err := knowledge.ParseArtifactRef(args[0])
			if err != nil {
				return err
			}

			data, err := export.ExportArtifact(ctx, a.engine, ref, limit)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			switch f {
			case export.FormatJSON:
				return export.WriteJSON(cmd.OutOrStdout(), data)
			case export.FormatYAML:
				return export.WriteYAML(cmd.OutOrStdout(), data)
			}
			return fmt.Errorf("export supports json or yaml, not %s", f)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "newest versions to include (default: all)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	return cmd
}
