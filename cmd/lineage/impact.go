package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/lineage/internal/export"
	"github.com/dusk-indust/lineage/internal/knowledge"
)

func newImpactCmd(flags *rootFlags) *cobra.Command {
	var (
		versionID   string
		depth       int
		direction   string
		dedupe      bool
		skipVisited bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "impact TYPE:ID",
		Short: "Walk the dependency graph around an artifact",
		Long: `Walk the dependency graph around an artifact.

Upstream follows incoming edges and lists what the artifact is affected by;
downstream follows outgoing edges and lists what it affects. Depth,
dedupe and skip-visited default to the impact section of the config.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ref, err := knowledge.ParseArtifactRef(args[0])
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			opts := knowledge.ImpactOptions{
				VersionID:   versionID,
				Depth:       a.cfg.Impact.Depth,
				Direction:   knowledge.Direction(direction),
				Dedupe:      a.cfg.Impact.Dedupe,
				SkipVisited: a.cfg.Impact.SkipVisited,
			}
			if cmd.Flags().Changed("depth") {
				opts.Depth = depth
			}
			if cmd.Flags().Changed("dedupe") {
				opts.Dedupe = dedupe
			}
			if cmd.Flags().Changed("skip-visited") {
				opts.SkipVisited = skipVisited
			}

			report, err := a.engine.AnalyzeImpact(ctx, ref, opts)
			if err != nil {
				return err
			}
			return export.WriteReport(cmd.OutOrStdout(), report, f)
		}),
	}
	cmd.Flags().StringVar(&versionID, "version", "", "version the analysis is about")
	cmd.Flags().IntVar(&depth, "depth", 1, "hops to walk")
	cmd.Flags().StringVar(&direction, "direction", "both", "upstream, downstream or both")
	cmd.Flags().BoolVar(&dedupe, "dedupe", false, "drop repeated entries from the flat lists")
	cmd.Flags().BoolVar(&skipVisited, "skip-visited", false, "expand each artifact at most once per direction")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, yaml or mermaid")
	return cmd
}

func newCompareCmd(flags *rootFlags) *cobra.Command {
	var baseID, baseAt, targetID, targetAt string

	cmd := &cobra.Command{
		Use:   "compare TYPE:ID",
		Short: "Diff two versions of an artifact",
		Long: `Diff two versions of an artifact. Each side is chosen by id, by time,
or defaults to the latest version.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			ref, err := knowledge.ParseArtifactRef(args[0])
			if err != nil {
				return err
			}
			base, err := selector(baseID, baseAt)
			if err != nil {
				return err
			}
			target, err := selector(targetID, targetAt)
			if err != nil {
				return err
			}

			cmp, err := a.engine.CompareVersions(ctx, ref, base, target)
			if err != nil {
				return err
			}
			return export.WriteJSON(cmd.OutOrStdout(), cmp)
		}),
	}
	cmd.Flags().StringVar(&baseID, "base", "", "base version id")
	cmd.Flags().StringVar(&baseAt, "base-at", "", "RFC 3339 instant selecting the base version")
	cmd.Flags().StringVar(&targetID, "target", "", "target version id")
	cmd.Flags().StringVar(&targetAt, "target-at", "", "RFC 3339 instant selecting the target version")
	return cmd
}
