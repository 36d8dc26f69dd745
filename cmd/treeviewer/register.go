package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/LukasParke/treeviewer/inspector"
)

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register LANGUAGE ARTIFACT",
		Short: "Check that a grammar loads and print its settings entry",
		Long: `Load ARTIFACT as the grammar for LANGUAGE and, if it loads, print the
overrides entry to add to the settings file. ARTIFACT is a builtin:<name>
locator or a path to a shared library.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			d, err := inspector.New(s.manager, inspector.WithLogger(s.logger)).
				RegisterGrammar(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s loads; add to %s:\n", d.LanguageID, settingsPath())
			entry := map[string]map[string]string{"overrides": {d.LanguageID: d.Artifact}}
			return toml.NewEncoder(out).Encode(entry)
		},
	}
	return cmd
}
