// Command treeviewer browses and queries tree-sitter syntax trees from the
// terminal, and serves them to editors over JSON-RPC.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	flagConfig     string
	flagGrammarDir string
	flagLogLevel   string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "treeviewer",
		Short:         "Inspect tree-sitter syntax trees and run structural queries",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Settings file (default: user config dir)")
	root.PersistentFlags().StringVar(&flagGrammarDir, "grammar-dir", "", "Directory for relative grammar artifacts")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newTreeCmd(),
		newQueryCmd(),
		newGrammarsCmd(),
		newRegisterCmd(),
		newBrowseCmd(),
		newServeCmd(),
	)
	return root
}
