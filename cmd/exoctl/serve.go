package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/exokit/internal/inspect"
)

var serveAddr string

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Boot a machine and serve its state over HTTP",
		Long: `The serve command boots a machine and keeps it running behind an HTTP
introspection server. Allocator state is served as JSON and allocations can
be driven with POST requests.

Routes:
  GET  /boot /pmm /pmm/frames /slab /syscall
  POST /alloc?size=N /free?addr=A&size=N
  POST /allocpg?count=N /freepg?addr=A&count=N

Example:
  exoctl serve --listen 127.0.0.1:8066
  curl -X POST '127.0.0.1:8066/alloc?size=64'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	cmd.Flags().StringVar(&serveAddr, "listen", "127.0.0.1:8066", "Address to listen on")
	return cmd
}

func runServe() error {
	m, err := bootMachine()
	if err != nil {
		return err
	}
	defer m.Close()

	printInfo("Serving machine state on http://%s\n", serveAddr)
	return inspect.New(m).ListenAndServe(serveAddr)
}
