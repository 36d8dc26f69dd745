package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/LukasParke/treeviewer/inspector"
	"github.com/LukasParke/treeviewer/projection"
	"github.com/LukasParke/treeviewer/treesitter"
)

func newQueryCmd() *cobra.Command {
	var (
		lang string
		step bool
	)
	cmd := &cobra.Command{
		Use:   "query FILE [PATTERN]",
		Short: "Run a tree-sitter query against a file",
		Long: `Run a tree-sitter query against a file and list the captured nodes.
Without PATTERN the query is read from standard input. With --step the
matches are shown one at a time.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if _, err := s.open(args[0], lang); err != nil {
				return err
			}
			var pattern string
			if len(args) == 2 {
				pattern = args[1]
			}

			out := cmd.OutOrStdout()
			insp := inspector.New(s.manager,
				inspector.WithPrompter(inspector.NewLinePrompter(cmd.InOrStdin(), out)),
				inspector.WithRevealer(inspector.NewLineRevealer(out)),
				inspector.WithLogger(s.logger),
			)
			matches, visited, err := insp.Query(cmd.Context(), pattern, step)
			if errors.Is(err, inspector.ErrCancelled) {
				return nil
			}
			if err != nil {
				return err
			}
			if step {
				fmt.Fprintf(out, "%d of %d matches shown\n", visited, len(matches))
				return nil
			}
			return writeMatches(out, matches)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Language ID (default: from the file extension)")
	cmd.Flags().BoolVar(&step, "step", false, "Step through the matches one at a time")
	return cmd
}

func writeMatches(w io.Writer, matches []treesitter.Match) error {
	if len(matches) == 0 {
		_, err := fmt.Fprintln(w, "no matches")
		return err
	}
	for _, m := range matches {
		_, err := fmt.Fprintf(w, "@%s\t%s %s\t%s\n",
			m.CaptureName, m.Node.Type(), projection.Span(m.Node), strconv.Quote(m.Node.Text()))
		if err != nil {
			return err
		}
	}
	return nil
}
