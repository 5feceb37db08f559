package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryotapoi/restruct/internal/core"
)

func newPlanCmd(g *globalOptions) *cobra.Command {
	var layoutPath, format string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview the moves and edits a layout requires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			if layoutPath == "" {
				return fmt.Errorf("--layout is required")
			}
			_, _, plan, err := buildPlan(g, layoutPath)
			if err != nil {
				return err
			}
			if format == "json" {
				return printPlanJSON(cmd.OutOrStdout(), plan)
			}
			printPlanText(cmd.OutOrStdout(), plan)
			return nil
		},
	}
	cmd.Flags().StringVar(&layoutPath, "layout", "", "layout file (YAML or JSON)")
	cmd.Flags().StringVar(&format, "format", "text", "output format (json or text)")
	return cmd
}

// buildPlan loads the project and computes the plan for layoutPath.
func buildPlan(g *globalOptions, layoutPath string) (string, core.Config, *core.RefactorPlan, error) {
	root, cfg, err := loadProject(g)
	if err != nil {
		return "", core.Config{}, nil, err
	}
	layout, err := core.LoadLayout(layoutPath)
	if err != nil {
		return "", core.Config{}, nil, err
	}
	tree, err := core.NewOSTree(root, cfg)
	if err != nil {
		return "", core.Config{}, nil, err
	}
	plan, err := core.BuildPlan(tree, cfg, layout)
	if err != nil {
		return "", core.Config{}, nil, err
	}
	return root, cfg, plan, nil
}
