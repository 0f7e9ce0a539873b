package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cvexport "github.com/nchhillar/cvexport"
	"github.com/nchhillar/cvexport/internal/artifactcheck"
	"github.com/nchhillar/cvexport/internal/fileutil"
	"github.com/nchhillar/cvexport/internal/server"
	"github.com/nchhillar/cvexport/internal/telemetry"
)

// errWriteOutput marks failures writing the exported file.
var errWriteOutput = errors.New("failed to write output")

type exportFlags struct {
	origin string
	out    string
	format string
	engine string
	upload bool
}

func addExportFlags(fs *pflag.FlagSet, f *exportFlags) {
	fs.StringVar(&f.origin, "origin", "", "site origin to render, e.g. https://example.com (default: built-in page on a local port)")
	fs.StringVarP(&f.out, "out", "o", "", `output file, "-" for stdout (default: <filenameBase>.<ext>)`)
	fs.StringVarP(&f.format, "format", "f", "", "pdf or jpeg (overrides export.format)")
	fs.StringVar(&f.engine, "engine", "", "rod or chromedp (overrides browser.engine)")
	fs.BoolVar(&f.upload, "upload", false, "also store the PDF in the static store under static.key")
}

func newExportCmd(a *app) *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the resume once and write it to a file",
		Long: `Render the resume once and write it to a file.

Without --origin the built-in resume page is served on a loopback port
for the duration of the export. Use --upload to pre-build the artifact
served by the static mode.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := notifyContext(cmd.Context())
			defer stop()
			return a.export(ctx, f)
		},
	}
	addExportFlags(cmd.Flags(), &f)
	return cmd
}

func (a *app) export(ctx context.Context, f exportFlags) error {
	if f.format != "" {
		a.cfg.Export.Format = f.format
	}
	if f.engine != "" {
		a.cfg.Browser.Engine = f.engine
	}
	format, err := a.format()
	if err != nil {
		return err
	}
	if f.upload && format != cvexport.FormatPDF {
		return fmt.Errorf("%w: --upload requires pdf output (static mode serves PDF only)", errUsage)
	}

	origin := f.origin
	if origin == "" {
		origin = a.cfg.Export.Origin
	}
	builtin := origin == ""
	if builtin {
		a.cfg.Export.ResumePath = server.ResumePath
	}

	exp, err := a.dynamicExporter()
	if err != nil {
		return err
	}
	if builtin {
		local, stop, err := a.serveBuiltinPage(ctx, exp)
		if err != nil {
			return err
		}
		defer stop()
		origin = local
	}

	art, err := exp.Export(ctx, cvexport.Request{Origin: origin})
	if err != nil {
		return err
	}
	rep, err := artifactcheck.Check(string(art.Format), art.Content)
	if err != nil {
		return err
	}

	if f.upload {
		st, err := a.store(ctx)
		if err != nil {
			return err
		}
		n, err := st.Put(ctx, a.cfg.Static.Key, art.ContentType, bytes.NewReader(art.Content))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.env.Stderr, "uploaded %d bytes to %s\n", n, a.staticLocation())
	}

	out := f.out
	if out == "" {
		out = art.Filename
	}
	if out == "-" {
		if _, err := a.env.Stdout.Write(art.Content); err != nil {
			return fmt.Errorf("%w: stdout: %v", errWriteOutput, err)
		}
	} else if err := fileutil.WriteFileAtomic(out, art.Content, 0o644); err != nil {
		return fmt.Errorf("%w: %v", errWriteOutput, err)
	}

	fmt.Fprintf(a.env.Stderr, "%s: %s (from %s)\n", out, rep, art.SourceURL)
	return nil
}

// serveBuiltinPage serves the built-in resume page on a loopback port and
// returns its origin and a func that stops the server.
func (a *app) serveBuiltinPage(ctx context.Context, exp cvexport.Exporter) (string, func(), error) {
	page, err := a.buildPage(ctx)
	if err != nil {
		return "", nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := server.NewRouter(server.Options{Exporter: exp, Page: page})
	if err != nil {
		return "", nil, err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Error("export.local_server", map[string]any{"error": err})
		}
	}()

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), fallbackShutdownWindow)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return "http://" + ln.Addr().String(), stop, nil
}
