// Package cvexport exports a resume web page as a PDF or JPEG using a
// headless browser, or serves a pre-built PDF from storage.
//
// # Quick Start
//
// Build a dynamic exporter and export the page served at an origin:
//
//	launcher, err := cvexport.NewLauncher(cvexport.EngineRod)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	exp, err := cvexport.NewDynamicExporter(launcher, nil,
//	    cvexport.WithFormat(cvexport.FormatPDF),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	art, err := exp.Export(ctx, cvexport.Request{Origin: "https://example.com"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(art.Filename, art.Content, 0o644)
//
// # Export Pipeline
//
// Every dynamic export runs one sequential attempt in its own browser:
//
//  1. Launch an isolated headless browser (Render Session)
//  2. Navigate to <origin>/resume and wait for network idle
//  3. Wait for the content container (#cv-content by default)
//  4. PDF: inject print overrides and print A4; JPEG: screenshot the container
//  5. Close the browser, then build the Artifact
//
// WithSession scopes the browser so it is closed on every exit path,
// including failures and request cancellation.
//
// # Engines
//
// Two Launcher implementations are provided: go-rod (EngineRod, default)
// and chromedp (EngineChromedp). Tests can supply their own Launcher.
//
// # Static Variant
//
// StaticExporter reads a pre-built PDF from any StaticSource. The
// internal/storage package provides local-directory and S3 sources.
//
// # Concurrency
//
// Exporters are safe for concurrent use. Renders are unbounded unless a
// Limiter is supplied; see ResolveRenderLimit.
//
// # Errors
//
// Failures wrap the sentinel errors in errors.go and can be classified
// with errors.Is:
//
//	if errors.Is(err, cvexport.ErrContentNotFound) {
//	    // the page never rendered its container
//	}
package cvexport
