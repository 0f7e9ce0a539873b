// Package resumepage renders the resume page that the exporter captures
// and checks that a served page exposes the capture container.
package resumepage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/nchhillar/cvexport/internal/assets"
)

// Defaults for Options.
const (
	DefaultContainerID   = "cv-content"
	DefaultDownloadPath  = "/api/download-resume"
	DefaultDownloadLabel = "Download PDF"
)

// ErrTemplate indicates the page template failed to parse or execute.
var ErrTemplate = errors.New("resume page template failed")

// Options controls page rendering. Zero values use the defaults.
type Options struct {
	Title         string
	Email         string
	ContainerID   string
	DownloadPath  string
	DownloadLabel string
	AssetDir      string // custom assets, falls back to embedded
	ContentName   string
	StyleName     string
	TemplateName  string
	Updated       string // shown as "Last updated ..." when set
}

func (o Options) withDefaults() Options {
	if o.ContainerID == "" {
		o.ContainerID = DefaultContainerID
	}
	if o.DownloadPath == "" {
		o.DownloadPath = DefaultDownloadPath
	}
	if o.DownloadLabel == "" {
		o.DownloadLabel = DefaultDownloadLabel
	}
	if o.ContentName == "" {
		o.ContentName = assets.DefaultContentName
	}
	if o.StyleName == "" {
		o.StyleName = assets.DefaultStyleName
	}
	if o.TemplateName == "" {
		o.TemplateName = assets.DefaultTemplateName
	}
	return o
}

// pageData feeds templates/page.html.
type pageData struct {
	Title          string
	Style          template.CSS
	HighlightStyle template.CSS
	Name           string
	DownloadLabel  string
	DownloadPath   string
	Email          string
	ContainerID    string
	Body           template.HTML
	Updated        string
}

// Build renders the full resume page.
func Build(ctx context.Context, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	resolver, err := assets.NewAssetResolver(opts.AssetDir)
	if err != nil {
		return nil, err
	}
	content, err := resolver.LoadContent(opts.ContentName)
	if err != nil {
		return nil, err
	}
	style, err := resolver.LoadStyle(opts.StyleName)
	if err != nil {
		return nil, err
	}
	tmplSrc, err := resolver.LoadTemplate(opts.TemplateName)
	if err != nil {
		return nil, err
	}

	frag, err := newMarkdownConverter().convert(ctx, content)
	if err != nil {
		return nil, err
	}
	hl, err := highlightCSS()
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(opts.TemplateName).Parse(tmplSrc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	title := opts.Title
	if title == "" {
		title = frag.Name
	}
	if title == "" {
		title = "Resume"
	}

	data := pageData{
		Title:          title,
		Style:          template.CSS(style), // #nosec G203 -- stylesheet comes from trusted assets
		HighlightStyle: template.CSS(hl),    // #nosec G203 -- generated by chroma
		Name:           frag.Name,
		DownloadLabel:  opts.DownloadLabel,
		DownloadPath:   opts.DownloadPath,
		Email:          strings.TrimSpace(opts.Email),
		ContainerID:    opts.ContainerID,
		Body:           template.HTML(frag.HTML), // #nosec G203 -- goldmark output without raw HTML
		Updated:        strings.TrimSpace(opts.Updated),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return buf.Bytes(), nil
}
