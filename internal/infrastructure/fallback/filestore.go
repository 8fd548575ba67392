// Package fallback implements the read-only last-resort product store: a
// directory of <barcode>.json files written by earlier analyses.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/unpackeat/backend/internal/domain"
)

// FileStore looks records up as <dir>/<barcode>.json
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore creates a store rooted at dir on the given filesystem
func NewFileStore(fsys afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fsys, dir: dir}
}

// NewOSFileStore creates a store reading from the local filesystem
func NewOSFileStore(dir string) *FileStore {
	return NewFileStore(afero.NewReadOnlyFs(afero.NewOsFs()), dir)
}

// Name implements domain.ProductSource
func (s *FileStore) Name() domain.Source {
	return domain.SourceFallbackStore
}

// Lookup reads and validates the record file for barcode
func (s *FileStore) Lookup(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	// Barcodes are used as file names; anything that could escape dir is a miss
	if barcode == "" || strings.ContainsAny(barcode, `/\`) || strings.Contains(barcode, "..") {
		return nil, domain.ErrProductNotFound
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := path.Join(s.dir, barcode+".json")
	data, err := afero.ReadFile(s.fs, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read fallback record %s: %w", name, err)
	}

	if !domain.IsJSONObject(data) {
		return nil, fmt.Errorf("fallback record %s is not a JSON object", name)
	}

	return &domain.ProductRecord{Barcode: barcode, Payload: data}, nil
}
