package tribute

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math/big"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	_ "golang.org/x/image/webp"

	"github.com/trezcool/tributes/core"
)

const (
	// ImagePathPrefix is where stored images are served from.
	ImagePathPrefix = "/api/images/"
	MaxImageSize    = 10 << 20 // 10MiB

	errImageTooLarge   = "Image file size must be less than 10MB"
	errImageType       = "Invalid file type. Only JPG, PNG, GIF, and WebP are allowed."
	errImageCorrupted  = "Invalid image file"
	suffixAlphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
	imageKeySuffixSize = 9
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// checkImage sniffs the image type (client provided types are not trusted) and makes sure its header decodes.
func checkImage(data []byte) (contentType string, err error) {
	if len(data) > MaxImageSize {
		return "", core.NewValidationMessage(errImageTooLarge)
	}
	contentType = strings.SplitN(mimetype.Detect(data).String(), ";", 2)[0]
	if !allowedImageTypes[contentType] {
		return "", core.NewValidationMessage(errImageType)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", core.NewValidationMessage(errImageCorrupted)
	}
	return contentType, nil
}

func (svc *Service) storeImage(ctx context.Context, data []byte, contentType string) (string, error) {
	suffix, err := randomSuffix(imageKeySuffixSize)
	if err != nil {
		return "", pkgerrors.Wrap(err, "generating image key")
	}
	subtype := contentType[strings.Index(contentType, "/")+1:]
	key := fmt.Sprintf("tribute-%d-%s.%s", NowFunc().UnixNano()/1e6, suffix, subtype)

	if err := svc.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		svc.logger.Error("storing tribute image", pkgerrors.Wrap(err, key))
		return "", ErrImageUpload
	}
	return ImagePathPrefix + key, nil
}

// discardImage removes the image of a submission that could not be saved. Best effort: a failure
// only leaves an unreferenced blob behind.
func (svc *Service) discardImage(imageURL null.String) {
	if !imageURL.Valid {
		return
	}
	key := strings.TrimPrefix(imageURL.String, ImagePathPrefix)
	if err := svc.blobs.Delete(context.Background(), key); err != nil {
		svc.logger.Warn("discarding orphaned tribute image", pkgerrors.Wrap(err, key))
	}
}

// OpenImage returns a stored image. Returns core.ErrBlobNotFound for unknown (or malformed) keys.
func (svc *Service) OpenImage(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !ValidImageKey(key) {
		return nil, "", core.ErrBlobNotFound
	}
	return svc.blobs.Get(ctx, key)
}

// ValidImageKey rejects keys that could escape the image namespace.
func ValidImageKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.ContainsAny(key, `/\`)
}

func randomSuffix(n int) (string, error) {
	max := big.NewInt(int64(len(suffixAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = suffixAlphabet[idx.Int64()]
	}
	return string(b), nil
}
