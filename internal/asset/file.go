package asset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
)

// SaveFile writes an asset through write into a temp file next to path and
// renames it into place once synced.
func SaveFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating asset directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp asset file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return fmt.Errorf("encoding asset: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing asset: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing asset file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing asset file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming asset file: %w", err)
	}
	return nil
}

// LoadFile opens path and decodes it with read. A missing file is reported
// as ErrAssetNotFound.
func LoadFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zero, fmt.Errorf("%w: %s", apperrors.ErrAssetNotFound, path)
		}
		return zero, fmt.Errorf("opening asset file: %w", err)
	}
	defer f.Close()
	v, err := read(bufio.NewReader(f))
	if err != nil {
		return zero, fmt.Errorf("loading %s: %w", path, err)
	}
	return v, nil
}
