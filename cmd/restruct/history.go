package main

import (
	"github.com/spf13/cobra"

	"github.com/ryotapoi/restruct/internal/core"
)

func newHistoryCmd(g *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			root, _, err := loadProject(g)
			if err != nil {
				return err
			}
			var sessions []core.Session
			if core.JournalExists(root) {
				j, err := core.OpenJournal(root)
				if err != nil {
					return err
				}
				defer j.Close()
				if sessions, err = j.Sessions(); err != nil {
					return err
				}
			}
			if format == "json" {
				return printHistoryJSON(cmd.OutOrStdout(), sessions)
			}
			printHistoryText(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format (json or text)")
	return cmd
}
