// Package preprocess converts raw upload bytes into the tensor shape the
// classifier expects. The transform is fixed: grayscale, 224x224 Lanczos
// resize, normalize to [-1, 1]. No data-dependent statistics, no randomness,
// so identical bytes always yield an identical tensor.
package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
)

const (
	// ImageSize is the spatial resolution of the model input.
	ImageSize = 224

	// TensorLen is the flattened NCHW length of one input tensor.
	TensorLen = 1 * 1 * ImageSize * ImageSize
)

// Normalization constants matching the checkpoint's training transform.
const (
	normMean = 0.5
	normStd  = 0.5
)

var (
	ErrInputTooLarge       = errors.New("image exceeds maximum allowed size")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrDecode              = errors.New("unable to decode image")
)

// Normalizer validates and converts raw image bytes into model input
// tensors. The zero value is not usable; construct with NewNormalizer.
type Normalizer struct {
	maxBytes int64
}

// NewNormalizer returns a Normalizer that rejects payloads larger than
// maxBytes.
func NewNormalizer(maxBytes int64) *Normalizer {
	return &Normalizer{maxBytes: maxBytes}
}

// Tensor decodes, converts to grayscale, resizes and normalizes raw image
// bytes. declaredType is the media type the client claimed for the upload;
// it must be an image type, and the sniffed content must agree.
func (n *Normalizer) Tensor(data []byte, declaredType string) ([]float32, error) {
	if int64(len(data)) > n.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrInputTooLarge, len(data), n.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	if declaredType != "" && !isImageType(declaredType) {
		return nil, fmt.Errorf("%w: declared %q", ErrUnsupportedMediaType, declaredType)
	}
	if detected := mimetype.Detect(data); !isImageType(detected.String()) {
		return nil, fmt.Errorf("%w: detected %q", ErrUnsupportedMediaType, detected.String())
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return toTensor(img), nil
}

func isImageType(mediaType string) bool {
	// Parameters such as "; charset=" never appear on image types, but the
	// declared value comes from an untrusted form part.
	mediaType = strings.TrimSpace(strings.Split(mediaType, ";")[0])
	return strings.HasPrefix(mediaType, "image/")
}

// toTensor applies the fixed grayscale -> resize -> normalize transform.
func toTensor(img image.Image) []float32 {
	gray := toGray(img)
	resized := resize.Resize(ImageSize, ImageSize, gray, resize.Lanczos3)

	tensor := make([]float32, TensorLen)
	for y := 0; y < ImageSize; y++ {
		for x := 0; x < ImageSize; x++ {
			g := color.GrayModel.Convert(resized.At(x, y)).(color.Gray)
			v := float32(g.Y) / 255.0
			tensor[y*ImageSize+x] = (v - normMean) / normStd
		}
	}
	return tensor
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}
