package export

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/tribute"
)

var ErrImageTooLarge = errors.New("image exceeds the export size limit")

// Fetcher retrieves the bytes of an image reference. Fetches are independent: one failing has no
// bearing on the others.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// HTTPFetcher downloads images over HTTP(S). Relative references are resolved against BaseURL.
type HTTPFetcher struct {
	Client   *http.Client
	BaseURL  string
	MaxBytes int64 // <= 0: unbounded
}

var _ Fetcher = (*HTTPFetcher)(nil)

func NewHTTPFetcher(baseURL string, timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: timeout},
		BaseURL:  baseURL,
		MaxBytes: maxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	url := absoluteURL(ref, f.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building image request")
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching image")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching image: HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return readLimited(resp.Body, f.MaxBytes)
}

// StoreFetcher reads images uploaded to this site straight from the blob store, and hands any
// other reference to Fallback.
type StoreFetcher struct {
	Store    core.BlobStore
	Fallback Fetcher
	BaseURL  string // absolute references under BaseURL + /api/images/ are read from Store too
	MaxBytes int64
}

var _ Fetcher = (*StoreFetcher)(nil)

func (f *StoreFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	key, ok := f.storeKey(ref)
	if !ok {
		if f.Fallback == nil {
			return nil, fmt.Errorf("no fetcher for image %q", ref)
		}
		return f.Fallback.Fetch(ctx, ref)
	}

	body, _, err := f.Store.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "reading stored image")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer body.Close()
	return readLimited(body, f.MaxBytes)
}

func (f *StoreFetcher) storeKey(ref string) (string, bool) {
	rel := ref
	if base := strings.TrimRight(f.BaseURL, "/"); base != "" && strings.HasPrefix(ref, base+"/") {
		rel = strings.TrimPrefix(ref, base)
	}
	if !strings.HasPrefix(rel, tribute.ImagePathPrefix) {
		return "", false
	}
	key := strings.TrimPrefix(rel, tribute.ImagePathPrefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, tribute.ValidImageKey(key)
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		data, err := io.ReadAll(r)
		return data, errors.Wrap(err, "reading image")
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading image")
	}
	if int64(len(data)) > max {
		return nil, ErrImageTooLarge
	}
	return data, nil
}
