package validation_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-service/internal/validation"
)

type stubDetector struct {
	faces int
	err   error
}

func (d *stubDetector) CountFaces(ctx context.Context, imageData []byte) (int, error) {
	return d.faces, d.err
}

// checkerboard produces a high-contrast image that easily clears the
// sharpness threshold.
func checkerboard(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// flatGray has zero edge response everywhere, so it reads as blurry.
func flatGray(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func TestValidate_AllChecksPass(t *testing.T) {
	v := validation.NewValidator(&stubDetector{faces: 1})

	result, err := v.Validate(context.Background(), checkerboard(600, 600))
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Equal(t, "All checks passed", result.Reason)
	assert.True(t, result.Checks.FaceDetected)
	assert.True(t, result.Checks.IsSharp)
	assert.True(t, result.Checks.IsHighRes)
	assert.Equal(t, 1, result.Checks.FaceCount)
	assert.Equal(t, "600x600", result.Checks.Resolution)
}

func TestValidate_Blurry(t *testing.T) {
	v := validation.NewValidator(&stubDetector{faces: 1})

	result, err := v.Validate(context.Background(), flatGray(600, 600))
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.False(t, result.Checks.IsSharp)
	assert.Contains(t, result.Reason, "Image is too blurry")
}

func TestValidate_LowResolution(t *testing.T) {
	v := validation.NewValidator(&stubDetector{faces: 1})

	result, err := v.Validate(context.Background(), checkerboard(300, 600))
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.False(t, result.Checks.IsHighRes)
	assert.Contains(t, result.Reason, "Low resolution (300px < 500px)")
}

func TestValidate_WrongFaceCount(t *testing.T) {
	v := validation.NewValidator(&stubDetector{faces: 3})

	result, err := v.Validate(context.Background(), checkerboard(600, 600))
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.False(t, result.Checks.FaceDetected)
	assert.Equal(t, 3, result.Checks.FaceCount)
	assert.Contains(t, result.Reason, "Found 3 faces (expected 1)")
}

func TestValidate_MultipleFailuresJoined(t *testing.T) {
	v := validation.NewValidator(&stubDetector{faces: 0})

	result, err := v.Validate(context.Background(), flatGray(300, 300))
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "; ")
}

func TestValidate_UndecodableImage(t *testing.T) {
	v := validation.NewValidator(&stubDetector{faces: 1})

	result, err := v.Validate(context.Background(), []byte("not an image"))
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, "Could not decode image.", result.Reason)
}

func TestIsAllowedMIMEType(t *testing.T) {
	assert.True(t, validation.IsAllowedMIMEType("image/jpeg"))
	assert.True(t, validation.IsAllowedMIMEType("image/png"))
	assert.False(t, validation.IsAllowedMIMEType("image/gif"))
	assert.False(t, validation.IsAllowedMIMEType("application/pdf"))
}
