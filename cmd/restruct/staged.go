package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryotapoi/restruct/internal/core"
)

func newStagedCmd(g *globalOptions) *cobra.Command {
	var updateRefs, revertMoves, cmakeOnly, dryRun, backup bool
	cmd := &cobra.Command{
		Use:   "staged",
		Short: "Handle renames already staged in git",
		Long: `staged looks for renames in the git index.

  --revert-moves (default)  move the files back to their old paths
  --update-refs             keep the moves and rewrite references to match`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmakeOnly && !updateRefs {
				return fmt.Errorf("--cmake-only requires --update-refs")
			}
			root, cfg, err := loadProject(g)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			moves, err := core.DetectStagedMoves(cmd.Context(), root)
			if err != nil {
				return err
			}
			if moves.Len() == 0 {
				fmt.Fprintln(out, "No staged moves detected.")
				return nil
			}

			log := openLogger(root, cfg, dryRun, "text", out)
			defer log.Close()
			exec := core.NewExecutor(root, cfg, core.DetectMover(cmd.Context(), root, cfg.VCS), log)
			if updateRefs && !dryRun {
				j, err := core.OpenJournal(root)
				if err != nil {
					return err
				}
				defer j.Close()
				exec.Journal = j
			}

			_, res, err := core.ApplyStaged(cmd.Context(), exec, moves, core.StagedOptions{
				UpdateRefs:      updateRefs,
				DescriptorsOnly: cmakeOnly,
				DryRun:          dryRun,
				Backup:          backup,
			})
			if err != nil {
				return err
			}
			printApplyText(out, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&updateRefs, "update-refs", false, "keep staged moves and update references")
	cmd.Flags().BoolVar(&revertMoves, "revert-moves", false, "move staged renames back (default)")
	cmd.Flags().BoolVar(&cmakeOnly, "cmake-only", false, "with --update-refs, only edit build descriptors")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would change without writing")
	cmd.Flags().BoolVar(&backup, "backup", false, "back up every edited file first")
	cmd.MarkFlagsMutuallyExclusive("update-refs", "revert-moves")
	return cmd
}
