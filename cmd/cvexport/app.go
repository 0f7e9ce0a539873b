package main

import (
	"context"
	"fmt"
	"path"
	"strings"

	cvexport "github.com/nchhillar/cvexport"
	"github.com/nchhillar/cvexport/internal/config"
	"github.com/nchhillar/cvexport/internal/dateutil"
	"github.com/nchhillar/cvexport/internal/hints"
	"github.com/nchhillar/cvexport/internal/resumepage"
	"github.com/nchhillar/cvexport/internal/server"
	"github.com/nchhillar/cvexport/internal/storage"
	"github.com/nchhillar/cvexport/internal/storage/local"
	s3store "github.com/nchhillar/cvexport/internal/storage/s3"
)

// app binds the effective configuration to the library constructors.
type app struct {
	env *Environment
	cfg *config.Config
}

func (a *app) format() (cvexport.Format, error) {
	return cvexport.ParseFormat(a.cfg.Export.Format)
}

func (a *app) printOverrides() (cvexport.PrintOverrides, error) {
	o := cvexport.DefaultPrintOverrides()
	if len(a.cfg.Export.Overrides) > 0 {
		rules, err := cvexport.ParseOverrides(a.cfg.Export.Overrides)
		if err != nil {
			return cvexport.PrintOverrides{}, err
		}
		o.Rules = rules
	}
	o.Container = a.cfg.Export.Selector
	return o, nil
}

// dynamicExporter builds the render exporter from the export and browser
// sections.
func (a *app) dynamicExporter() (*cvexport.DynamicExporter, error) {
	ec := a.cfg.Export

	launcher, err := cvexport.NewLauncher(a.cfg.Browser.Engine)
	if err != nil {
		return nil, err
	}
	format, err := a.format()
	if err != nil {
		return nil, err
	}
	overrides, err := a.printOverrides()
	if err != nil {
		return nil, err
	}

	pdf := cvexport.DefaultPDFSettings()
	pdf.Scale = ec.Scale
	pdf.MarginMM = ec.MarginMM

	limiter := cvexport.NewLimiter(cvexport.ResolveRenderLimit(ec.MaxConcurrent))

	return cvexport.NewDynamicExporter(launcher, limiter,
		cvexport.WithFormat(format),
		cvexport.WithResumePath(ec.ResumePath),
		cvexport.WithPrintOverrides(overrides),
		cvexport.WithSelector(ec.Selector),
		cvexport.WithTimeouts(ec.NavigationTimeout.Std(), ec.SelectorTimeout.Std()),
		cvexport.WithPDFSettings(pdf),
		cvexport.WithImageSettings(cvexport.ImageSettings{Quality: ec.Quality}),
		cvexport.WithFilenameBase(ec.FilenameBase),
		cvexport.WithBrowser(a.cfg.Browser.Bin, a.cfg.Browser.NoSandbox),
	)
}

// store opens the configured static artifact store.
func (a *app) store(ctx context.Context) (storage.Store, error) {
	sc := a.cfg.Static
	switch sc.Backend {
	case config.BackendS3:
		return s3store.New(ctx, s3store.Options{
			Region:   sc.S3.Region,
			Bucket:   sc.S3.Bucket,
			Prefix:   sc.S3.Prefix,
			Endpoint: sc.S3.Endpoint,
			KMSKeyID: sc.S3.KMSKeyID,
		})
	case config.BackendLocal, "":
		return local.New(sc.Dir), nil
	}
	return nil, fmt.Errorf("%w: unknown static backend %q", config.ErrConfigInvalid, sc.Backend)
}

func (a *app) staticExporter(ctx context.Context) (*cvexport.StaticExporter, storage.Store, error) {
	st, err := a.store(ctx)
	if err != nil {
		return nil, nil, err
	}
	exp, err := cvexport.NewStaticExporter(st, a.cfg.Static.Key,
		cvexport.WithStaticFilenameBase(a.cfg.Export.FilenameBase),
		cvexport.WithMaxStaticSize(a.cfg.Static.MaxSize),
	)
	if err != nil {
		return nil, nil, err
	}
	return exp, st, nil
}

// exporter returns the variant selected by export.mode.
func (a *app) exporter(ctx context.Context) (cvexport.Exporter, error) {
	mode, err := cvexport.ParseMode(a.cfg.Export.Mode)
	if err != nil {
		return nil, err
	}
	if mode == cvexport.ModeStatic {
		exp, _, err := a.staticExporter(ctx)
		return exp, err
	}
	return a.dynamicExporter()
}

// page renders the built-in resume page, or returns nil when disabled.
func (a *app) page(ctx context.Context) ([]byte, error) {
	if !a.cfg.Page.Enabled {
		return nil, nil
	}
	return a.buildPage(ctx)
}

func (a *app) buildPage(ctx context.Context) ([]byte, error) {
	pc := a.cfg.Page
	label := "Download PDF"
	if f, err := a.format(); err == nil && f == cvexport.FormatJPEG && a.cfg.Export.Mode != string(cvexport.ModeStatic) {
		label = "Download image"
	}

	updated, err := dateutil.Resolve(pc.Updated, a.env.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: page.updated: %v", config.ErrConfigInvalid, err)
	}

	return resumepage.Build(ctx, resumepage.Options{
		Title:         pc.Title,
		Email:         pc.Email,
		ContainerID:   containerID(a.cfg.Export.Selector),
		DownloadPath:  server.DownloadPath,
		DownloadLabel: label,
		AssetDir:      pc.AssetDir,
		ContentName:   pc.Content,
		Updated:       updated,
	})
}

// containerID derives the element id the built-in page must carry so the
// configured selector matches it.
func containerID(selector string) string {
	if id, ok := strings.CutPrefix(selector, "#"); ok && id != "" && !strings.ContainsAny(id, " .[:>#") {
		return id
	}
	return resumepage.DefaultContainerID
}

// hintContext gathers the settings error hints mention.
func (a *app) hintContext() hints.Context {
	return hints.Context{
		NoSandbox:      a.cfg.Browser.NoSandbox,
		BrowserBin:     a.cfg.Browser.Bin,
		Selector:       a.cfg.Export.Selector,
		StaticLocation: a.staticLocation(),
	}
}

func (a *app) staticLocation() string {
	sc := a.cfg.Static
	if sc.Backend == config.BackendS3 {
		return "s3://" + path.Join(sc.S3.Bucket, sc.S3.Prefix, sc.Key)
	}
	return path.Join(sc.Dir, sc.Key)
}
