package display

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"sync"

	"golang.org/x/image/draw"

	"github.com/ayusman/akushu/internal/detector"
	"github.com/ayusman/akushu/internal/handshake"
	"github.com/ayusman/akushu/internal/photo"
)

// ErrNoPhoto is returned when nothing has been captured yet.
var ErrNoPhoto = errors.New("no photo captured")

// Latest keeps the most recent captured photo in memory, replacing the
// previous one.
type Latest struct {
	mu sync.RWMutex
	p  *photo.Photo
}

func NewLatest() *Latest {
	return &Latest{}
}

// ShowHands is a no-op; Latest only tracks photos.
func (l *Latest) ShowHands([]detector.Hand, handshake.Result) {}

func (l *Latest) ShowPhoto(p *photo.Photo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.p = p
}

// Photo returns the latest photo, or nil.
func (l *Latest) Photo() *photo.Photo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.p
}

// Image returns the latest photo scaled to fit within maxWidth pixels.
// A non-positive maxWidth returns it at full size.
func (l *Latest) Image(maxWidth int) (image.Image, error) {
	p := l.Photo()
	if p == nil {
		return nil, ErrNoPhoto
	}
	return Thumbnail(p.Image, maxWidth), nil
}

// EncodePNG returns the latest photo as PNG.
func (l *Latest) EncodePNG(maxWidth int) ([]byte, error) {
	img, err := l.Image(maxWidth)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJPEG returns the latest photo as JPEG.
func (l *Latest) EncodeJPEG(maxWidth, quality int) ([]byte, error) {
	img, err := l.Image(maxWidth)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Thumbnail scales src down to maxWidth keeping its aspect ratio. Images that
// are already small enough are returned unchanged.
func Thumbnail(src image.Image, maxWidth int) image.Image {
	bw, bh := src.Bounds().Dx(), src.Bounds().Dy()
	if maxWidth <= 0 || bw <= maxWidth {
		return src
	}

	scale := float64(maxWidth) / float64(bw)
	w := maxWidth
	h := int(math.Max(1, math.Round(float64(bh)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
