package fileutil_test

// Notes:
// - Write, Sync and Close error branches in WriteFileAtomic are not tested
//   because triggering disk failures is platform-specific.

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/nchhillar/cvexport/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestWriteFileAtomic - Atomic writes
// ---------------------------------------------------------------------------

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	t.Run("creates parents and writes content", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "public", "resume.pdf")
		if err := fileutil.WriteFileAtomic(path, []byte("%PDF-1.7"), 0o644); err != nil {
			t.Fatalf("WriteFileAtomic() error = %v", err)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "%PDF-1.7" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("replaces existing file and leaves no temp files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "cv.jpg")
		if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := fileutil.WriteFileAtomic(path, []byte("new"), 0o600); err != nil {
			t.Fatalf("WriteFileAtomic() error = %v", err)
		}

		got, _ := os.ReadFile(path)
		if string(got) != "new" {
			t.Errorf("content = %q, want new", got)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("directory has %d entries, want 1 (temp file leaked)", len(entries))
		}

		if runtime.GOOS != "windows" {
			info, _ := os.Stat(path)
			if info.Mode().Perm() != 0o600 {
				t.Errorf("perm = %v, want 0600", info.Mode().Perm())
			}
		}
	})

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()

		if err := fileutil.WriteFileAtomic("", nil, 0o644); !errors.Is(err, fileutil.ErrEmptyPath) {
			t.Errorf("error = %v, want ErrEmptyPath", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestSafeJoin - Key containment
// ---------------------------------------------------------------------------

func TestSafeJoin(t *testing.T) {
	t.Parallel()

	base := filepath.Join("srv", "public")

	tests := []struct {
		name    string
		key     string
		want    string
		wantErr error
	}{
		{name: "plain file", key: "resume.pdf", want: filepath.Join(base, "resume.pdf")},
		{name: "nested key", key: "cv/2024/resume.pdf", want: filepath.Join(base, "cv", "2024", "resume.pdf")},
		{name: "inner dots collapse", key: "cv/../resume.pdf", want: filepath.Join(base, "resume.pdf")},
		{name: "dotdot-prefixed name is fine", key: "..resume.pdf", want: filepath.Join(base, "..resume.pdf")},
		{name: "empty", key: "", wantErr: fileutil.ErrEmptyPath},
		{name: "parent escape", key: "../etc/passwd", wantErr: fileutil.ErrUnsafeName},
		{name: "bare parent", key: "..", wantErr: fileutil.ErrUnsafeName},
		{name: "absolute", key: "/etc/passwd", wantErr: fileutil.ErrUnsafeName},
		{name: "null byte", key: "a\x00b", wantErr: fileutil.ErrUnsafeName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := fileutil.SafeJoin(base, tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("SafeJoin(%q) error = %v, want %v", tt.key, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SafeJoin(%q) unexpected error: %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("SafeJoin(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestFileExists / TestDirExists / TestIsURL
// ---------------------------------------------------------------------------

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "f.pdf")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !fileutil.FileExists(file) {
		t.Error("FileExists(file) = false")
	}
	if fileutil.FileExists(dir) {
		t.Error("FileExists(dir) = true")
	}
	if fileutil.FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists(missing) = true")
	}
	if !fileutil.DirExists(dir) || fileutil.DirExists(file) {
		t.Error("DirExists misclassified")
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	for s, want := range map[string]bool{
		"https://cv.example.com": true,
		"http://localhost:8080":  true,
		"ftp://x":                false,
		"./public/resume.pdf":    false,
	} {
		if got := fileutil.IsURL(s); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", s, got, want)
		}
	}
}
