package mockapi

import (
	"os"
	"path/filepath"
)

// artifactWriter mirrors received uploads onto disk so a mock run leaves an
// inspectable artifact trail next to the server.
type artifactWriter struct {
	rootDir string
}

func newArtifactWriter(rootDir string) *artifactWriter {
	return &artifactWriter{rootDir: rootDir}
}

// WriteUpload stores the raw upload bytes under uploads/<assetID>/<name>.
func (w *artifactWriter) WriteUpload(assetID, fileName string, data []byte) (string, error) {
	if fileName == "" {
		fileName = "upload.bin"
	}
	dst := filepath.Join(w.rootDir, "uploads", assetID, filepath.Base(fileName))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		return "", err
	}
	return abs, nil
}
