package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryotapoi/restruct/internal/core"
)

func newResolveCmd(g *globalOptions) *cobra.Command {
	var from, ref string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show which file an include reference resolves to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return fmt.Errorf("--from is required")
			}
			if ref == "" {
				return fmt.Errorf("--ref is required")
			}
			root, cfg, err := loadProject(g)
			if err != nil {
				return err
			}
			tree, err := core.NewOSTree(root, cfg)
			if err != nil {
				return err
			}
			target, ok := core.NewResolver(tree, cfg).Resolve(core.NormalizePath(from), ref)
			if !ok {
				return fmt.Errorf("unresolved: %q from %s", ref, from)
			}
			fmt.Fprintln(cmd.OutOrStdout(), target)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "including file (root-relative)")
	cmd.Flags().StringVar(&ref, "ref", "", "include path as written")
	return cmd
}
