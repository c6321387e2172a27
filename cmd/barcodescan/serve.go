package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ericlevine/zxscan/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP decode server",
		Long: `Start an HTTP server that decodes uploaded images.

The server provides the following endpoints:
  POST /decode   - decode an uploaded image (multipart field "image" or raw body)
  GET  /ws/scan  - websocket stream: binary frames are images, text frames set options
  GET  /health   - health check
  GET  /metrics  - prometheus metrics

Examples:
  barcodescan serve
  barcodescan serve --host 0.0.0.0 --port 3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.NewServer(a.cfg, a.logger)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}
	f := cmd.Flags()
	f.String("host", "localhost", "address to listen on")
	f.IntP("port", "p", 8080, "port to listen on")
	f.Int("max-upload-mb", 20, "largest accepted upload in MiB")
	a.bind(cmd, false, map[string]string{
		"host":          "server.host",
		"port":          "server.port",
		"max-upload-mb": "server.max_upload_mb",
	})
	return cmd
}
