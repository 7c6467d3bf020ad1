package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/honeyid/config"
	"github.com/jonwraymond/honeyid/observe"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	var opts appOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference App server",
		Long: "Serves the honey.id App endpoints over WebSocket at " + wsPath + " and\n" +
			"health probes at /healthz, /readyz and /health.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx, *configPath)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, opts)
			if err != nil {
				return err
			}
			return serve(ctx, a)
		},
	}
	cmd.Flags().IntVar(&opts.maxConnections, "max-connections", 0, "maximum concurrent WebSocket connections (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.checkIdentity, "check-identity", false, "dial the identity service from /readyz")
	return cmd
}

// serve runs until ctx is done, then shuts down the HTTP server and the app.
func serve(ctx context.Context, a *app) error {
	ln, err := net.Listen("tcp", a.cfg.Listen)
	if err != nil {
		return errors.Join(err, a.Close(context.WithoutCancel(ctx)))
	}
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	a.logger.Info(ctx, "app server listening", observe.F("addr", ln.Addr().String()))
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	a.logger.Info(sctx, "app server shutting down")

	// Hijacked WebSocket connections are not tracked by http.Server, so the
	// app closes them itself.
	errs := []error{srv.Shutdown(sctx), a.Close(sctx)}
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		errs = append(errs, serveErr)
	}
	return errors.Join(errs...)
}
