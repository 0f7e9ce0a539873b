package yamlutil_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/nchhillar/cvexport/internal/yamlutil"
)

type exportSection struct {
	Mode   string `yaml:"mode"`
	Format string `yaml:"format"`
	Limit  int    `yaml:"limit"`
}

type document struct {
	Export exportSection `yaml:"export"`
	Debug  bool          `yaml:"debug"`
}

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		data       []byte
		dest       any
		wantErr    error
		wantErrMsg string
		check      func(t *testing.T, d *document)
	}{
		{
			name: "known fields",
			data: []byte("export:\n  mode: static\n  format: pdf\n  limit: 2\ndebug: true\n"),
			dest: &document{},
			check: func(t *testing.T, d *document) {
				if d.Export.Mode != "static" || d.Export.Format != "pdf" || d.Export.Limit != 2 || !d.Debug {
					t.Errorf("decoded = %+v", d)
				}
			},
		},
		{
			name:       "unknown nested field",
			data:       []byte("export:\n  mood: static\n"),
			dest:       &document{},
			wantErrMsg: "mood",
		},
		{
			name:       "type mismatch",
			data:       []byte("export:\n  limit: many\n"),
			dest:       &document{},
			wantErrMsg: "yamlutil:",
		},
		{name: "nil data", data: nil, dest: &document{}, wantErr: yamlutil.ErrNilData},
		{name: "empty data", data: []byte{}, dest: &document{}, wantErr: yamlutil.ErrNilData},
		{name: "nil destination", data: []byte("debug: true"), dest: nil, wantErr: yamlutil.ErrNilDestination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.UnmarshalStrict(tt.data, tt.dest)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			case tt.wantErrMsg != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErrMsg) {
					t.Errorf("error = %v, want it to mention %q", err, tt.wantErrMsg)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				tt.check(t, tt.dest.(*document))
			}
		})
	}
}

func TestUnmarshalStrict_PreservesUnsetFields(t *testing.T) {
	t.Parallel()

	d := &document{Export: exportSection{Mode: "dynamic", Format: "pdf"}}
	if err := yamlutil.UnmarshalStrict([]byte("export:\n  format: jpeg\n"), d); err != nil {
		t.Fatal(err)
	}
	if d.Export.Mode != "dynamic" || d.Export.Format != "jpeg" {
		t.Errorf("decoded = %+v, want mode kept and format replaced", d.Export)
	}
}

func TestUnmarshalStrict_InputSizeLimit(t *testing.T) {
	t.Parallel()

	big := []byte("debug: true\n" + strings.Repeat("#", yamlutil.MaxInputSize))
	if err := yamlutil.UnmarshalStrict(big, &document{}); !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Errorf("error = %v, want ErrInputTooLarge", err)
	}
}

func TestMarshal(t *testing.T) {
	t.Parallel()

	out, err := yamlutil.Marshal(document{Export: exportSection{Mode: "static", Limit: 3}})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"mode: static", "limit: 3", "debug: false"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("Marshal() = %q, missing %q", out, want)
		}
	}

	var back document
	if err := yamlutil.UnmarshalStrict(out, &back); err != nil {
		t.Fatalf("re-decoding marshalled output: %v", err)
	}
	if back.Export.Mode != "static" {
		t.Errorf("round trip mode = %q", back.Export.Mode)
	}
}
