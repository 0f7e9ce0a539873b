package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cvexport "github.com/nchhillar/cvexport"
	"github.com/nchhillar/cvexport/internal/metrics"
	"github.com/nchhillar/cvexport/internal/resumepage"
	"github.com/nchhillar/cvexport/internal/server"
	"github.com/nchhillar/cvexport/internal/telemetry"
)

const (
	readHeaderTimeout      = 10 * time.Second
	fallbackShutdownWindow = 10 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the resume page and export endpoint",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				if port < 1 || port > 65535 {
					return fmt.Errorf("%w: --port %d out of range", errUsage, port)
				}
				a.cfg.Server.Port = port
			}

			ctx, stop := notifyContext(cmd.Context())
			defer stop()

			ln, err := net.Listen("tcp", server.Addr(a.cfg.Server.Host, a.cfg.Server.Port))
			if err != nil {
				return err
			}
			return a.serve(ctx, ln)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&host, "host", "", "listen host (overrides server.host)")
	fs.IntVarP(&port, "port", "p", 0, "listen port (overrides server.port and PORT)")
	return cmd
}

// serve runs the HTTP server on ln until ctx is canceled, then shuts it
// down gracefully.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	exp, err := a.exporter(ctx)
	if err != nil {
		return err
	}
	page, err := a.page(ctx)
	if err != nil {
		return err
	}
	a.preflight(ctx, exp, page)

	var reg *metrics.Registry
	if a.cfg.Server.Metrics {
		reg = metrics.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := server.NewRouter(server.Options{
		Exporter:  exp,
		Metrics:   reg,
		Page:      page,
		PublicDir: a.cfg.Server.PublicDir,
		Origin:    a.cfg.Export.Origin,
		Hints:     a.hintContext(),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		telemetry.Info("server.start", map[string]any{
			"addr":   ln.Addr().String(),
			"mode":   string(exp.Mode()),
			"page":   page != nil,
			"format": a.cfg.Export.Format,
		})
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		window := a.cfg.Server.ShutdownTimeout.Std()
		if window <= 0 {
			window = fallbackShutdownWindow
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), window)
		defer cancel()
		telemetry.Info("server.stop", nil)
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// preflight logs configuration problems that would only surface on the
// first download.
func (a *app) preflight(ctx context.Context, exp cvexport.Exporter, page []byte) {
	if page != nil {
		if err := resumepage.VerifyContainer(page, a.cfg.Export.Selector); err != nil {
			telemetry.Warn("page.container_mismatch", map[string]any{"selector": a.cfg.Export.Selector, "error": err})
		}
	}

	static, ok := exp.(*cvexport.StaticExporter)
	if !ok {
		return
	}
	st, err := a.store(ctx)
	if err != nil {
		telemetry.Warn("static.unavailable", map[string]any{"error": err})
		return
	}
	rep, err := checkStatic(ctx, st, static.Key(), a.cfg.Static.MaxSize)
	if err != nil {
		telemetry.Warn("static.unavailable", map[string]any{"location": a.staticLocation(), "error": err})
		return
	}
	telemetry.Info("static.ready", map[string]any{"location": a.staticLocation(), "pages": rep.Pages, "bytes": rep.Bytes})
}
