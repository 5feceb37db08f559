package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ryotapoi/restruct/internal/core"
)

func newLayoutCmd(g *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the current tree as an editable layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := loadProject(g)
			if err != nil {
				return err
			}
			tree, err := core.NewOSTree(root, cfg)
			if err != nil {
				return err
			}
			layout := core.MirrorLayout(tree)
			if output == "" {
				return layout.Encode(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := layout.Encode(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the layout to a file instead of stdout")
	return cmd
}
