package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newGrammarsCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "grammars",
		Short: "List the languages the registry can resolve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var rows [][]string
			for _, e := range s.manager.Registry().Entries() {
				source := "builtin"
				if e.Overridden {
					source = "override"
				}
				rows = append(rows, []string{e.LanguageID, e.Artifact, strings.Join(e.Extensions, " "), source})
			}

			out := cmd.OutOrStdout()
			if plain {
				for _, r := range rows {
					fmt.Fprintln(out, strings.Join(r, "\t"))
				}
				return nil
			}
			header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
			cell := lipgloss.NewStyle().Padding(0, 1)
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("LANGUAGE", "ARTIFACT", "EXTENSIONS", "SOURCE").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return header
					}
					return cell
				})
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Print tab-separated rows without a table")
	return cmd
}
