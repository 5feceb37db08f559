package main

import (
	"github.com/spf13/cobra"

	"github.com/ryotapoi/restruct/internal/core"
)

func newRevertCmd(g *globalOptions) *cobra.Command {
	var dryRun, force bool
	cmd := &cobra.Command{
		Use:   "revert",
		Short: "Undo the most recent apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := loadProject(g)
			if err != nil {
				return err
			}
			if !core.JournalExists(root) {
				return core.ErrNoSession
			}
			j, err := core.OpenJournal(root)
			if err != nil {
				return err
			}
			defer j.Close()

			out := cmd.OutOrStdout()
			log := openLogger(root, cfg, dryRun, "text", out)
			defer log.Close()
			exec := core.NewExecutor(root, cfg, core.DetectMover(cmd.Context(), root, cfg.VCS), log)

			res, err := core.Revert(cmd.Context(), exec, j, core.RevertOptions{DryRun: dryRun, Force: force})
			if err != nil {
				return err
			}
			printRevertText(out, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be undone without writing")
	cmd.Flags().BoolVar(&force, "force", false, "restore files even if they changed since the apply")
	return cmd
}
