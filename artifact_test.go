package cvexport

import (
	"errors"
	"testing"
)

func TestNewArtifact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		format   Format
		content  []byte
		filename string
		wantErr  error
	}{
		{name: "pdf", format: FormatPDF, content: fakePDF, filename: "cv.pdf"},
		{name: "jpeg", format: FormatJPEG, content: fakeJPEG, filename: "cv.jpg"},
		{name: "uppercase extension", format: FormatPDF, content: fakePDF, filename: "CV.PDF"},
		{name: "empty content", format: FormatPDF, content: nil, filename: "cv.pdf", wantErr: ErrEmptyArtifact},
		{name: "extension mismatch", format: FormatJPEG, content: fakeJPEG, filename: "cv.pdf", wantErr: ErrFormatMismatch},
		{name: "no extension", format: FormatPDF, content: fakePDF, filename: "cv", wantErr: ErrFormatMismatch},
		{name: "unknown format", format: "svg", content: fakePDF, filename: "cv.svg", wantErr: ErrInvalidFormat},
		{name: "header injection", format: FormatPDF, content: fakePDF, filename: "cv\r\nX-Evil: 1.pdf", wantErr: ErrInvalidFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := NewArtifact(tt.format, "https://x/resume", tt.content, tt.filename, CacheControlNoStore)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.ContentType != tt.format.ContentType() {
				t.Errorf("ContentType = %q", a.ContentType)
			}
			if a.Size() != len(tt.content) {
				t.Errorf("Size() = %d, want %d", a.Size(), len(tt.content))
			}
		})
	}
}

func TestArtifact_ContentDisposition(t *testing.T) {
	t.Parallel()

	a, err := NewArtifact(FormatPDF, "", fakePDF, "Neha_Chhillar_Resume.pdf", CacheControlNoStore)
	if err != nil {
		t.Fatal(err)
	}
	want := `attachment; filename="Neha_Chhillar_Resume.pdf"`
	if got := a.ContentDisposition(); got != want {
		t.Errorf("ContentDisposition() = %q, want %q", got, want)
	}
}

func TestValidateFilename(t *testing.T) {
	t.Parallel()

	valid := []string{"resume.pdf", "Neha Chhillar Résumé.pdf", "cv-2024.jpg"}
	for _, name := range valid {
		if err := ValidateFilename(name); err != nil {
			t.Errorf("ValidateFilename(%q) error = %v", name, err)
		}
	}

	invalid := []string{"", `a"b.pdf`, "a/b.pdf", `a\b.pdf`, "a\x00.pdf", "a\tb.pdf", "a\x7f.pdf"}
	for _, name := range invalid {
		if err := ValidateFilename(name); !errors.Is(err, ErrInvalidFilename) {
			t.Errorf("ValidateFilename(%q) error = %v, want ErrInvalidFilename", name, err)
		}
	}
}
