package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"net/http"
	"time"

	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// whiteThreshold: pixels with all channels above this are treated as
// background when a character image carries no alpha.
const whiteThreshold = 240

// alphaTrimThreshold ignores faint glows/shadows when trimming borders.
// Kept low so soft-edged limbs are not cut off.
const alphaTrimThreshold = 50

// Placement positions a character inside a page's face slot. X and Y are
// the top-left of the scaled character box; Width is the target width in
// template pixels; Angle is degrees clockwise.
type Placement struct {
	Character image.Image
	X         int
	Y         int
	Width     int
	Angle     float64
}

// Engine composites character images onto story page templates.
type Engine struct {
	httpClient *http.Client
}

func NewEngine() *Engine {
	return &Engine{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchImage downloads and decodes an image by URL.
func (e *Engine) FetchImage(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", url, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", url, err)
	}

	return img, nil
}

// PrepareCharacter turns a raw character image into a paste-ready cutout:
// near-white background made transparent, then transparent borders trimmed.
func PrepareCharacter(img image.Image) *image.NRGBA {
	return TrimTransparent(RemoveWhiteBackground(img))
}

// RemoveWhiteBackground converts near-white pixels to fully transparent.
// Generated character assets usually arrive on a flat white field.
func RemoveWhiteBackground(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R > whiteThreshold && c.G > whiteThreshold && c.B > whiteThreshold {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 0}
			}
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

// TrimTransparent crops away fully (or nearly) transparent borders.
func TrimTransparent(img *image.NRGBA) *image.NRGBA {
	bounds := img.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.NRGBAAt(x, y).A > alphaTrimThreshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	if maxX < minX || maxY < minY {
		// Fully transparent; nothing to trim.
		return img
	}

	rect := image.Rect(minX, minY, maxX+1, maxY+1)
	out := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Draw(out, out.Bounds(), img, rect.Min, xdraw.Src)
	return out
}

// ComposePage draws each character into its slot on the template and
// returns the finished page as PNG bytes.
func (e *Engine) ComposePage(template image.Image, placements []Placement) ([]byte, error) {
	bounds := template.Bounds()
	canvas := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(canvas, canvas.Bounds(), template, bounds.Min, xdraw.Src)

	for _, p := range placements {
		if p.Character == nil || p.Width <= 0 {
			continue
		}
		char := PrepareCharacter(p.Character)
		if err := drawPlacement(canvas, char, p); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}
	return buf.Bytes(), nil
}

// drawPlacement maps the character into the slot with one affine
// transform: scale to the slot width, rotate about the slot center,
// translate into position.
func drawPlacement(canvas *image.NRGBA, char *image.NRGBA, p Placement) error {
	sb := char.Bounds()
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	if sw == 0 || sh == 0 {
		return fmt.Errorf("empty character image")
	}

	scale := float64(p.Width) / sw
	theta := p.Angle * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)

	// Center of the scaled box in template coordinates.
	cx := float64(p.X) + float64(p.Width)/2
	cy := float64(p.Y) + scale*sh/2

	// dst = T(cx,cy) * R(theta) * S(scale) * T(-sw/2,-sh/2) * src
	m := f64.Aff3{
		scale * cos, -scale * sin, cx - scale*(cos*sw/2-sin*sh/2),
		scale * sin, scale * cos, cy - scale*(sin*sw/2+cos*sh/2),
	}

	xdraw.CatmullRom.Transform(canvas, m, char, sb, xdraw.Over, nil)
	return nil
}
