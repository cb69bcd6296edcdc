package main

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/deep-rent/wiring/app"
)

func newServeCmd(f *flags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the puppy API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			logger := newLogger(cfg)
			r := assemble(cfg, logger)

			if cfg.Eager {
				if err := r.Compile(); err != nil {
					return fmt.Errorf("failed to compile routes: %w", err)
				}
			}

			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
			}
			logger.Info("Server listening", "addr", ln.Addr().String())

			srv := &http.Server{
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}
			return app.Run(
				app.Serve(srv, ln),
				app.WithContext(cmd.Context()),
				app.WithLogger(logger),
				app.WithTimeout(cfg.ShutdownTimeout),
			)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the configuration)")
	return cmd
}
