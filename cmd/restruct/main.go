package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/ryotapoi/restruct/internal/core"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions holds flags shared by every subcommand.
type globalOptions struct {
	root string
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "restruct",
		Short: "Restructure a C/C++ project tree and keep its references valid.",
		Long: `restruct moves the files of a C/C++ project according to a layout file and
rewrites #include directives and build descriptors so the project still builds.

Typical flow:
  restruct layout > layout.yaml   # edit the tree
  restruct plan --layout layout.yaml
  restruct apply --layout layout.yaml --backup`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("restruct version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&g.root, "root", ".", "project root directory")

	cmd.AddCommand(
		newLayoutCmd(g),
		newPlanCmd(g),
		newApplyCmd(g),
		newStagedCmd(g),
		newRevertCmd(g),
		newHistoryCmd(g),
		newResolveCmd(g),
	)
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	return cmd
}

func versionString() string {
	v := version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return v
}

// loadProject resolves the root directory and reads its configuration.
func loadProject(g *globalOptions) (string, core.Config, error) {
	root, err := filepath.Abs(g.root)
	if err != nil {
		return "", core.Config{}, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", core.Config{}, err
	}
	if !info.IsDir() {
		return "", core.Config{}, fmt.Errorf("not a directory: %s", root)
	}
	cfg, err := core.LoadConfig(root)
	if err != nil {
		return "", core.Config{}, err
	}
	return root, cfg, nil
}
