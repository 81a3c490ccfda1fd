package blobsvc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/trezcool/tributes/core"
)

const defaultContentType = "image/jpeg"

// LocalStore keeps blobs as files of a single directory.
type LocalStore struct {
	dir string
}

var _ core.BlobStore = (*LocalStore)(nil)

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating blob directory")
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", core.ErrBlobNotFound
	}
	return filepath.Join(s.dir, key), nil
}

// Put writes body to a temporary file first, so that readers never see a partial blob.
func (s *LocalStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	dest, err := s.path(key)
	if err != nil {
		return errors.Errorf("invalid blob key %q", key)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing blob")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing blob")
	}
	return errors.Wrap(os.Rename(tmp.Name(), dest), "moving blob in place")
}

// Get sniffs the content type off the stored bytes.
func (s *LocalStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", core.ErrBlobNotFound
		}
		return nil, "", errors.Wrap(err, "opening blob")
	}

	contentType := defaultContentType
	if mt, err := mimetype.DetectFile(p); err == nil {
		contentType = strings.SplitN(mt.String(), ";", 2)[0]
	}
	return f, contentType, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return nil // nothing is ever stored under an invalid key
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing blob")
	}
	return nil
}
