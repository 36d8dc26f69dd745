package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/LukasParke/treeviewer"
	"github.com/LukasParke/treeviewer/inspector"
	"github.com/LukasParke/treeviewer/transport"
)

func newServeCmd() *cobra.Command {
	var (
		spec  transport.Spec
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve syntax trees to an editor over JSON-RPC",
		Long: `Serve one editor session over JSON-RPC. The transport defaults to stdio;
listening transports wait for the first client to connect. Logs go to
standard error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			opts := []treeviewer.Option{treeviewer.WithSettings(settings)}
			if watch {
				opts = append(opts, treeviewer.WithConfigFile(settingsPath()))
			}
			if cb := (inspector.SystemClipboard{}); cb.Available() {
				opts = append(opts, treeviewer.WithClipboard(cb))
			}

			s, err := treeviewer.NewServer("treeviewer", version, opts...)
			if err != nil {
				return err
			}
			defer s.Close()

			err = treeviewer.Serve(cmd.Context(), s, spec)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&spec.Stdio, "stdio", false, "Use stdin and stdout (default)")
	cmd.Flags().StringVar(&spec.TCP, "tcp", "", "Listen on a TCP address")
	cmd.Flags().StringVar(&spec.Socket, "socket", "", "Listen on a Unix socket path")
	cmd.Flags().StringVar(&spec.Pipe, "pipe", "", "Listen on a named pipe")
	cmd.Flags().StringVar(&spec.WebSocket, "ws", "", "Listen for a WebSocket client on an address")
	cmd.Flags().BoolVar(&spec.NodeIPC, "node-ipc", false, "Use the Node.js IPC channel")
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload the settings file when it changes")
	cmd.MarkFlagsMutuallyExclusive("stdio", "tcp", "socket", "pipe", "ws", "node-ipc")
	return cmd
}
