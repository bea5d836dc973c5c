// Package photo turns a camera frame into an immutable captured photo.
package photo

import (
	"errors"
	"image"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// ErrEmptyFrame is returned when there is no frame to capture.
var ErrEmptyFrame = errors.New("empty frame")

// Photo is a captured still. Image is owned by the Photo and must not be
// modified after Capture returns.
type Photo struct {
	ID         string
	Image      *image.RGBA
	Width      int
	Height     int
	Mirrored   bool
	CapturedAt time.Time
	// Distance is the hand distance that triggered the capture, if known.
	Distance float64
	// SessionID is set by the frame loop before the photo is shown.
	SessionID string
}

// Capture copies frame into a fresh RGBA buffer, mirrors it horizontally when
// mirror is true, and wraps it in a Photo. The frame itself is never modified.
func Capture(frame image.Image, mirror bool) (*Photo, error) {
	if frame == nil {
		return nil, ErrEmptyFrame
	}
	b := frame.Bounds()
	if b.Empty() {
		return nil, ErrEmptyFrame
	}

	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(img, image.Point{}, frame, b, draw.Src, nil)

	if mirror {
		mirrorInPlace(img)
	}

	return &Photo{
		ID:         uuid.NewString(),
		Image:      img,
		Width:      b.Dx(),
		Height:     b.Dy(),
		Mirrored:   mirror,
		CapturedAt: time.Now(),
	}, nil
}

// Mirror returns a horizontally flipped copy of img: the pixel at (x, y) moves
// to (W-1-x, y). The result always has its origin at (0, 0).
func Mirror(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(out, image.Point{}, img, b, draw.Src, nil)
	mirrorInPlace(out)
	return out
}

// mirrorInPlace swaps pixel columns of a zero-origin RGBA image.
func mirrorInPlace(img *image.RGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			li, ri := l*4, r*4
			row[li], row[ri] = row[ri], row[li]
			row[li+1], row[ri+1] = row[ri+1], row[li+1]
			row[li+2], row[ri+2] = row[ri+2], row[li+2]
			row[li+3], row[ri+3] = row[ri+3], row[li+3]
		}
	}
}
