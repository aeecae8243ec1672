// Package storage keeps the bytes of files staged in a project draft until
// the draft is published.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"maderalink/internal/apperrors"
)

// ErrTooLarge is returned by Save when the upload exceeds the size limit.
var ErrTooLarge = &apperrors.CustomError{Err: apperrors.ErrValidation, Message: "file is too large"}

// LocalStorage saves staged files on the local filesystem, one directory per
// draft, under generated names.
type LocalStorage struct {
	basePath string
	maxSize  int64
	log      *zap.Logger
}

// NewLocalStorage ensures basePath exists. maxSize <= 0 disables the limit.
func NewLocalStorage(basePath string, maxSize int64, log *zap.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory %s: %w", basePath, err)
	}
	log = log.Named("storage")
	log.Info("Staging directory ensured", zap.String("path", basePath))
	return &LocalStorage{basePath: basePath, maxSize: maxSize, log: log}, nil
}

// Save copies r into the draft's directory and returns the stored path,
// relative to the storage root, and the number of bytes written.
func (ls *LocalStorage) Save(draftID, filename string, r io.Reader) (string, int64, error) {
	dir := filepath.Join(ls.basePath, filepath.Base(draftID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create draft directory: %w", err)
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	dstPath := filepath.Join(dir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", 0, fmt.Errorf("create staged file: %w", err)
	}

	src := r
	if ls.maxSize > 0 {
		src = io.LimitReader(r, ls.maxSize+1)
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && ls.maxSize > 0 && n > ls.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dstPath)
		if errors.Is(err, ErrTooLarge) {
			return "", 0, err
		}
		return "", 0, fmt.Errorf("save staged file: %w", err)
	}

	rel := filepath.Join(filepath.Base(draftID), name)
	ls.log.Debug("File staged", zap.String("filename", filename), zap.String("path", rel), zap.Int64("size", n))
	return rel, n, nil
}

// Open returns the staged file at path for reading.
func (ls *LocalStorage) Open(path string) (io.ReadCloser, error) {
	full, err := ls.fullPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	return f, nil
}

// Delete removes one staged file. Missing files are not an error.
func (ls *LocalStorage) Delete(path string) error {
	if path == "" {
		return nil
	}
	full, err := ls.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete staged file: %w", err)
	}
	return nil
}

// DeleteDraft removes every file staged for draftID.
func (ls *LocalStorage) DeleteDraft(draftID string) error {
	name := filepath.Base(draftID)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid draft id %q", draftID)
	}
	if err := os.RemoveAll(filepath.Join(ls.basePath, name)); err != nil {
		return fmt.Errorf("delete draft files: %w", err)
	}
	return nil
}

func (ls *LocalStorage) fullPath(path string) (string, error) {
	full := filepath.Join(ls.basePath, filepath.Clean("/"+path))
	if !strings.HasPrefix(full, filepath.Clean(ls.basePath)+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid staged path %q", path)
	}
	return full, nil
}
