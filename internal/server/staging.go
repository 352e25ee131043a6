package server

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hetulpatel/pdfvalidator/internal/hashutil"
)

// stagedFile is an upload copied to disk for the lifetime of one request.
type stagedFile struct {
	Path   string
	Size   int64
	SHA256 string
}

// errTooLarge is returned by stageUpload when the upload exceeds the limit.
type errTooLarge struct {
	limit int64
}

func (e *errTooLarge) Error() string {
	return fmt.Sprintf("File too large; maximum size is %d MB", e.limit>>20)
}

// stagingName builds temp_<unix>_<uuid>_<basename>. Only the base of the
// client supplied name is kept.
func stagingName(filename string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		base = "upload"
	}
	return fmt.Sprintf("temp_%d_%s_%s", now.Unix(), uuid.NewString(), base)
}

// stageUpload copies src into dir, hashing as it goes. The partial file is
// removed when the copy fails or exceeds limit; on success the caller owns
// removal.
func stageUpload(dir, filename string, src io.Reader, limit int64) (*stagedFile, error) {
	path := filepath.Join(dir, stagingName(filename, time.Now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}

	digest := hashutil.NewDigest()
	n, copyErr := io.Copy(io.MultiWriter(f, digest), io.LimitReader(src, limit+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		os.Remove(path)
		return nil, fmt.Errorf("write staging file: %w", copyErr)
	case n > limit:
		os.Remove(path)
		return nil, &errTooLarge{limit: limit}
	case closeErr != nil:
		os.Remove(path)
		return nil, fmt.Errorf("close staging file: %w", closeErr)
	}
	return &stagedFile{Path: path, Size: n, SHA256: digest.Hex()}, nil
}

func (s *stagedFile) remove() error {
	if s == nil {
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
