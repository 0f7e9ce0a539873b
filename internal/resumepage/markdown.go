package resumepage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrMarkdown indicates the resume Markdown could not be converted.
var ErrMarkdown = errors.New("resume markdown conversion failed")

// highlightStyle is the chroma style used for fenced code blocks.
const highlightStyle = "github"

// markdownConverter turns resume Markdown into an HTML fragment.
type markdownConverter struct {
	md goldmark.Markdown
}

func newMarkdownConverter() *markdownConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(highlightStyle),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		// Raw HTML in the resume is dropped; WithUnsafe is not set.
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)
	return &markdownConverter{md: md}
}

// fragment is a converted resume body.
type fragment struct {
	HTML string
	Name string // text of the first h1, "" if none
}

// convert renders content and wraps the leading h1 and its tagline
// paragraph in a <header>, so the printed page keeps the resume's own
// header while site headers are hidden. Goldmark ignores ctx, so the
// conversion runs in a goroutine and the caller stops waiting on cancel.
func (c *markdownConverter) convert(ctx context.Context, content string) (fragment, error) {
	if err := ctx.Err(); err != nil {
		return fragment{}, err
	}

	type result struct {
		frag fragment
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrMarkdown, err)}
			return
		}
		frag, err := wrapHeader(buf.String())
		done <- result{frag: frag, err: err}
	}()

	select {
	case <-ctx.Done():
		return fragment{}, ctx.Err()
	case r := <-done:
		return r.frag, r.err
	}
}

func wrapHeader(body string) (fragment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + body + "</body>"))
	if err != nil {
		return fragment{}, fmt.Errorf("%w: %v", ErrMarkdown, err)
	}

	var name string
	h1 := doc.Find("body > h1").First()
	if h1.Length() > 0 {
		name = strings.TrimSpace(h1.Text())
		group := h1
		if next := h1.Next(); next.Is("p") {
			group = group.AddSelection(next)
		}
		group.WrapAllHtml(`<header class="cv-header"></header>`)
	}

	out, err := doc.Find("body").Html()
	if err != nil {
		return fragment{}, fmt.Errorf("%w: %v", ErrMarkdown, err)
	}
	return fragment{HTML: out, Name: name}, nil
}

// highlightCSS returns the stylesheet for chroma's class-based output.
func highlightCSS() (string, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(highlightStyle)); err != nil {
		return "", fmt.Errorf("writing highlight CSS: %w", err)
	}
	return buf.String(), nil
}
