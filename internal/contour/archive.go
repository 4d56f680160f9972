package contour

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/adiwenz/crescendo-sub001/internal/model"
)

// ArchivePath returns the on-disk archive location for an attempt.
func ArchivePath(dir string, attemptID int64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.contour.json.zst", attemptID))
}

// WriteArchive stores a zstd-compressed contour snapshot beside the database.
func WriteArchive(dir string, attemptID int64, frames []model.PitchFrame) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive dir: %w", err)
	}
	path := ArchivePath(dir, attemptID)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close on encoder failure.
			_ = cerr
		}
		return "", fmt.Errorf("failed to create encoder: %w", err)
	}
	if _, err := enc.Write(EncodeContour(frames)); err != nil {
		if cerr := enc.Close(); cerr != nil {
			_ = cerr
		}
		if cerr := f.Close(); cerr != nil {
			_ = cerr
		}
		return "", fmt.Errorf("failed to compress contour: %w", err)
	}
	if err := enc.Close(); err != nil {
		if cerr := f.Close(); cerr != nil {
			_ = cerr
		}
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive: %w", err)
	}
	return path, nil
}

// ReadArchive loads an archived contour. Missing or corrupt archives yield an
// empty contour; review falls back to the attempt row.
func ReadArchive(dir string, attemptID int64) []model.PitchFrame {
	data, err := os.ReadFile(ArchivePath(dir, attemptID))
	if err != nil {
		return nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil
	}
	return ParseContour(raw)
}
