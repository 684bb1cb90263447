package validation

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"storybook-service/internal/models"
	"storybook-service/internal/vision"
)

// Acceptance gates. A photo passes only when all three hold.
const (
	MinSharpnessScore = 100
	MinDimensionPx    = 500
	ExpectedFaces     = 1
)

// Upload gates applied before any pixel work. Shared with the client-side
// pre-check so both ends reject the same inputs.
const (
	MaxUploadBytes = 20 << 20 // 20 MiB
)

var AllowedMIMETypes = []string{"image/jpeg", "image/png"}

// IsAllowedMIMEType reports whether the detected content type is accepted.
func IsAllowedMIMEType(mimeType string) bool {
	for _, allowed := range AllowedMIMETypes {
		if mimeType == allowed {
			return true
		}
	}
	return false
}

// Result is the outcome of validating one photo.
type Result struct {
	Valid  bool
	Reason string
	Checks models.ValidationChecks
}

// Validator runs quality checks on uploaded photos: sharpness and
// resolution locally, face count via the detector service.
type Validator struct {
	detector vision.Detector
}

func NewValidator(detector vision.Detector) *Validator {
	return &Validator{detector: detector}
}

// Validate decodes the photo and evaluates every check, collecting all
// failures into one reason string rather than stopping at the first.
func (v *Validator) Validate(ctx context.Context, imageData []byte) (*Result, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return &Result{
			Valid:  false,
			Reason: "Could not decode image.",
		}, nil
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	minDim := width
	if height < minDim {
		minDim = height
	}

	gray := toGray(img)
	blurScore := laplacianVariance(gray)
	isSharp := blurScore >= MinSharpnessScore

	faceCount, err := v.detector.CountFaces(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	hasOneFace := faceCount == ExpectedFaces

	isHighRes := minDim >= MinDimensionPx

	var failures []string
	if !isSharp {
		failures = append(failures, "Image is too blurry")
	}
	if !hasOneFace {
		failures = append(failures, fmt.Sprintf("Found %d faces (expected 1)", faceCount))
	}
	if !isHighRes {
		failures = append(failures, fmt.Sprintf("Low resolution (%dpx < %dpx)", minDim, MinDimensionPx))
	}

	reason := "All checks passed"
	if len(failures) > 0 {
		reason = strings.Join(failures, "; ")
	}

	return &Result{
		Valid:  isSharp && hasOneFace && isHighRes,
		Reason: reason,
		Checks: models.ValidationChecks{
			FaceDetected: hasOneFace,
			IsSharp:      isSharp,
			IsHighRes:    isHighRes,
			FaceCount:    faceCount,
			BlurScore:    int(blurScore),
			Resolution:   fmt.Sprintf("%dx%d", width, height),
		},
	}, nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

// laplacianVariance measures sharpness as the variance of the image's
// Laplacian response: blurry images have uniformly small second
// derivatives, in-focus ones do not.
func laplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	n := 0
	mean := 0.0
	m2 := 0.0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := float64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			up := float64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y-1).Y)
			down := float64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y+1).Y)
			left := float64(gray.GrayAt(bounds.Min.X+x-1, bounds.Min.Y+y).Y)
			right := float64(gray.GrayAt(bounds.Min.X+x+1, bounds.Min.Y+y).Y)

			lap := up + down + left + right - 4*c

			// Welford's online variance.
			n++
			delta := lap - mean
			mean += delta / float64(n)
			m2 += delta * (lap - mean)
		}
	}

	if n < 2 {
		return 0
	}
	return m2 / float64(n)
}
