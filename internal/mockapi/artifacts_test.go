package mockapi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteUploadReturnsAbsolutePath(t *testing.T) {
	w := newArtifactWriter(t.TempDir())

	path, err := w.WriteUpload("ma-1", "view_000.jpg", []byte("jpeg bytes"))
	if err != nil {
		t.Fatalf("WriteUpload: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("path %q is not absolute", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Errorf("artifact content = %q", data)
	}
}

func TestWriteUploadDefaultsFileName(t *testing.T) {
	root := t.TempDir()
	w := newArtifactWriter(root)

	path, err := w.WriteUpload("ma-2", "", []byte("x"))
	if err != nil {
		t.Fatalf("WriteUpload: %v", err)
	}
	if filepath.Base(path) != "upload.bin" {
		t.Errorf("path %q, want upload.bin base name", path)
	}
}

func TestWriteUploadStripsDirectoryComponents(t *testing.T) {
	root := t.TempDir()
	w := newArtifactWriter(root)

	path, err := w.WriteUpload("ma-3", "../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatalf("WriteUpload: %v", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		t.Fatal(err)
	}
	rel, err := filepath.Rel(absRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		t.Errorf("path %q escaped artifact root %q", path, absRoot)
	}
}
