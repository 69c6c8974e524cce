package content

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// ErrNotAnImage is returned by DataURLEncoder for payloads that do not sniff
// as an image.
var ErrNotAnImage = errors.New("content: payload is not an image")

// ImageEncoder turns raw image bytes into the string reference stored in the
// document.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, data []byte) (string, error)
}

// ImageEncoderFunc adapts a function to ImageEncoder.
type ImageEncoderFunc func(ctx context.Context, data []byte) (string, error)

// EncodeImage implements ImageEncoder.
func (f ImageEncoderFunc) EncodeImage(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// DataURLEncoder embeds images as base64 data URLs.
type DataURLEncoder struct {
	// MaxBytes rejects larger payloads when positive.
	MaxBytes int
}

// EncodeImage implements ImageEncoder.
func (e DataURLEncoder) EncodeImage(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("content: empty image payload")
	}
	if e.MaxBytes > 0 && len(data) > e.MaxBytes {
		return "", errors.New("content: image payload too large")
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", ErrNotAnImage
	}

	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}
