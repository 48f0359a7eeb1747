package canvas

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
)

// ErrCompressionFailure marks a failed snapshot encode. The reply is
// simply not sent; the requester can re-request.
var ErrCompressionFailure = errors.New("canvas: snapshot compression failed")

// DefaultQuality is the fixed JPEG quality for snapshot replies,
// trading size for fidelity.
const DefaultQuality = 80

// EncodeJPEG compresses img for transmission as a snapshot frame.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailure, err)
	}
	return buf.Bytes(), nil
}

// EncodePNG writes img losslessly, for the viewer and PDF export.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// DecodeImage sniffs and decodes a received snapshot payload.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailure, err)
	}
	return img, nil
}
