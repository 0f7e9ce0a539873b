package assets

import (
	"errors"
	"strings"
	"testing"
)

func TestEmbeddedLoader(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	tests := []struct {
		name        string
		load        func(string) (string, error)
		asset       string
		wantErr     error
		wantContain string
	}{
		{name: "default style", load: loader.LoadStyle, asset: DefaultStyleName, wantContain: ".cv"},
		{name: "default template", load: loader.LoadTemplate, asset: DefaultTemplateName, wantContain: `id="{{.ContainerID}}"`},
		{name: "default content", load: loader.LoadContent, asset: DefaultContentName, wantContain: "# Neha Chhillar"},
		{name: "missing style", load: loader.LoadStyle, asset: "nonexistent", wantErr: ErrStyleNotFound},
		{name: "missing template", load: loader.LoadTemplate, asset: "nonexistent", wantErr: ErrTemplateNotFound},
		{name: "missing content", load: loader.LoadContent, asset: "nonexistent", wantErr: ErrContentNotFound},
		{name: "traversal", load: loader.LoadContent, asset: "../resume", wantErr: ErrInvalidAssetName},
		{name: "empty", load: loader.LoadStyle, asset: "", wantErr: ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.load(tt.asset)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(got, tt.wantContain) {
				t.Errorf("content does not contain %q", tt.wantContain)
			}
		})
	}
}

func TestEmbeddedTemplate_PageContract(t *testing.T) {
	t.Parallel()

	tmpl, err := NewEmbeddedLoader().LoadTemplate(DefaultTemplateName)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`<nav class="site-nav fixed`,
		`class="download-actions"`,
		`class="share-actions"`,
		"navigator.share",
		"navigator.clipboard",
		"mailto:",
	} {
		if !strings.Contains(tmpl, want) {
			t.Errorf("page template missing %q", want)
		}
	}
}
