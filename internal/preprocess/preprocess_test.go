package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

const testMaxBytes = 10 << 20

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// gradientRGBA builds a color test image so grayscale conversion is exercised.
func gradientRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 251 % 256),
				G: uint8(y * 241 % 256),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func TestTensorShapeAndRange(t *testing.T) {
	req := require.New(t)
	n := NewNormalizer(testMaxBytes)

	for _, size := range [][2]int{{64, 48}, {224, 224}, {513, 301}} {
		data := encodePNG(t, gradientRGBA(size[0], size[1]))
		tensor, err := n.Tensor(data, "image/png")
		req.NoError(err)
		req.Len(tensor, TensorLen)
		for _, v := range tensor {
			req.GreaterOrEqual(v, float32(-1.0))
			req.LessOrEqual(v, float32(1.0))
		}
	}
}

func TestTensorDeterminism(t *testing.T) {
	req := require.New(t)
	n := NewNormalizer(testMaxBytes)
	data := encodeJPEG(t, gradientRGBA(320, 280))

	first, err := n.Tensor(data, "image/jpeg")
	req.NoError(err)

	// Bit-identical across repeated calls and across normalizer instances.
	for i := 0; i < 3; i++ {
		again, err := NewNormalizer(testMaxBytes).Tensor(data, "image/jpeg")
		req.NoError(err)
		req.Equal(first, again)
	}
}

func TestTensorGrayscaleInputUnchangedSemantics(t *testing.T) {
	req := require.New(t)
	n := NewNormalizer(testMaxBytes)

	// A uniform mid-gray image should normalize close to zero everywhere.
	img := image.NewGray(image.Rect(0, 0, 224, 224))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	tensor, err := n.Tensor(encodePNG(t, img), "image/png")
	req.NoError(err)
	for _, v := range tensor {
		req.InDelta(0.0, float64(v), 0.02)
	}
}

func TestTensorRejectsOversizedPayload(t *testing.T) {
	req := require.New(t)
	n := NewNormalizer(128)

	data := encodePNG(t, gradientRGBA(64, 64))
	_, err := n.Tensor(data, "image/png")
	req.ErrorIs(err, ErrInputTooLarge)
}

func TestTensorRejectsNonImageMediaType(t *testing.T) {
	req := require.New(t)
	n := NewNormalizer(testMaxBytes)

	data := encodePNG(t, gradientRGBA(32, 32))
	_, err := n.Tensor(data, "application/pdf")
	req.ErrorIs(err, ErrUnsupportedMediaType)

	// Sniffed type wins even when the declared type lies.
	_, err = n.Tensor([]byte("definitely not an image"), "image/png")
	req.ErrorIs(err, ErrUnsupportedMediaType)
}

func TestTensorRejectsUndecodableBytes(t *testing.T) {
	req := require.New(t)
	n := NewNormalizer(testMaxBytes)

	// Valid PNG magic followed by garbage: passes sniffing, fails decoding.
	data := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0xAB}, 64)...)
	_, err := n.Tensor(data, "image/png")
	req.ErrorIs(err, ErrDecode)

	_, err = n.Tensor(nil, "image/png")
	req.ErrorIs(err, ErrDecode)
}
