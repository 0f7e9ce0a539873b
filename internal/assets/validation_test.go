package assets

import (
	"errors"
	"testing"
)

func TestValidateAssetName(t *testing.T) {
	t.Parallel()

	valid := []string{"resume", "page", "my-resume", "resume_2024", "Resume"}
	for _, name := range valid {
		if err := ValidateAssetName(name); err != nil {
			t.Errorf("ValidateAssetName(%q) unexpected error: %v", name, err)
		}
	}

	invalid := []string{
		"",
		"   ",
		"path/to/resume",
		`path\to\resume`,
		"../secret",
		`..\secret`,
		"resume.md",
		".hidden",
		".",
		"..",
		"/etc/passwd",
		`C:\Windows`,
		"re\x00sume",
	}
	for _, name := range invalid {
		if err := ValidateAssetName(name); !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("ValidateAssetName(%q) error = %v, want ErrInvalidAssetName", name, err)
		}
	}
}
