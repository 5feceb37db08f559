package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ryotapoi/restruct/internal/core"
)

type applyFlags struct {
	layout    string
	format    string
	buildCmd  string
	dryRun    bool
	backup    bool
	overwrite bool
	verify    bool
}

func newApplyCmd(g *globalOptions) *cobra.Command {
	f := &applyFlags{}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Move files to match a layout and rewrite references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(f.format); err != nil {
				return err
			}
			if f.layout == "" {
				return fmt.Errorf("--layout is required")
			}
			root, cfg, plan, err := buildPlan(g, f.layout)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			log := openLogger(root, cfg, f.dryRun, f.format, out)
			defer log.Close()
			for _, w := range plan.Warnings {
				log.Logf("Warning: %s", w)
			}

			exec := core.NewExecutor(root, cfg, core.DetectMover(cmd.Context(), root, cfg.VCS), log)
			if !f.dryRun {
				j, err := core.OpenJournal(root)
				if err != nil {
					return err
				}
				defer j.Close()
				exec.Journal = j
			}

			res, err := exec.Apply(cmd.Context(), plan, core.ApplyOptions{
				DryRun:         f.dryRun,
				Backup:         f.backup,
				AllowOverwrite: f.overwrite,
				Verify:         f.verify,
				BuildCommand:   f.buildCmd,
				BuildOutput:    cmd.ErrOrStderr(),
			})
			if f.format == "json" {
				if perr := printApplyJSON(out, res); perr != nil && err == nil {
					err = perr
				}
				return err
			}
			if err != nil {
				return err
			}
			printApplyText(out, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.layout, "layout", "", "layout file (YAML or JSON)")
	cmd.Flags().StringVar(&f.format, "format", "text", "output format (json or text)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "show what would change without writing")
	cmd.Flags().BoolVar(&f.backup, "backup", false, "back up every edited file first")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "allow moves onto existing files")
	cmd.Flags().BoolVar(&f.verify, "verify", false, "run the build command after applying")
	cmd.Flags().StringVar(&f.buildCmd, "build-cmd", "", "build command for --verify (default from config)")
	return cmd
}

// openLogger returns the session logger. Dry runs only echo so the tree stays
// untouched; JSON output suppresses the echo.
func openLogger(root string, cfg core.Config, dryRun bool, format string, out io.Writer) *core.Logger {
	echo := out
	if format == "json" {
		echo = nil
	}
	if dryRun {
		return core.NewLogger(nil, echo)
	}
	return core.OpenSessionLog(filepath.Join(root, filepath.FromSlash(cfg.LogFile)), echo)
}
