package main

import (
	"github.com/spf13/cobra"

	"github.com/LukasParke/treeviewer/projection"
)

func newTreeCmd() *cobra.Command {
	var (
		lang      string
		depth     int
		positions bool
	)
	cmd := &cobra.Command{
		Use:   "tree FILE",
		Short: "Print the syntax tree of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if _, err := s.open(args[0], lang); err != nil {
				return err
			}
			tree, err := s.manager.GetCurrentTree(cmd.Context(), false)
			if err != nil {
				return err
			}
			p := projection.Projector{ShowPositions: positions || s.settings.ShowPositions}
			return p.Write(cmd.OutOrStdout(), p.Root(tree), depth)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Language ID (default: from the file extension)")
	cmd.Flags().IntVar(&depth, "depth", -1, "Levels to expand below the root (-1 for all)")
	cmd.Flags().BoolVar(&positions, "positions", false, "Show source spans next to node types")
	return cmd
}
