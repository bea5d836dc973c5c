package display

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	fcolor "github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/akushu/internal/detector"
	"github.com/ayusman/akushu/internal/handshake"
	"github.com/ayusman/akushu/internal/photo"
)

type recorder struct {
	hands  int
	photos []*photo.Photo
}

func (r *recorder) ShowHands([]detector.Hand, handshake.Result) { r.hands++ }
func (r *recorder) ShowPhoto(p *photo.Photo)                    { r.photos = append(r.photos, p) }

func testPhoto(t *testing.T, w, h int) *photo.Photo {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	p, err := photo.Capture(img, false)
	require.NoError(t, err)
	return p
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b}

	m.ShowHands(nil, handshake.Result{})
	m.ShowPhoto(&photo.Photo{ID: "x"})

	for _, r := range []*recorder{a, b} {
		require.Equal(t, 1, r.hands)
		require.Len(t, r.photos, 1)
	}
}

func TestConsole(t *testing.T) {
	fcolor.NoColor = true

	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	pair := detector.HandPair(100, 100, 50)
	c.ShowHands(nil, handshake.Result{})
	c.ShowHands(pair, handshake.Result{Handshake: true, Measured: true, Distance: 50})
	c.ShowHands(pair, handshake.Result{Handshake: true, Measured: true, Distance: 48})
	c.ShowPhoto(&photo.Photo{ID: "p1", Width: 640, Height: 480, Mirrored: true})

	out := buf.String()
	require.Equal(t, 1, strings.Count(out, "hands: 2"), out)
	require.Equal(t, 1, strings.Count(out, "handshake!"), out)
	require.Contains(t, out, "hands: 0")
	require.Contains(t, out, "photo p1 captured 640x480 mirrored=true")
	require.NotContains(t, out, "hand distance")
}

func TestConsole_Verbose(t *testing.T) {
	fcolor.NoColor = true

	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.ShowHands(detector.HandPair(100, 100, 150), handshake.Result{Measured: true, Distance: 150})

	require.Contains(t, buf.String(), "hand distance: 150.0 px")
}

func TestLatest(t *testing.T) {
	l := NewLatest()

	_, err := l.Image(0)
	require.ErrorIs(t, err, ErrNoPhoto)
	require.Nil(t, l.Photo())

	first := testPhoto(t, 40, 30)
	second := testPhoto(t, 20, 10)
	l.ShowPhoto(first)
	l.ShowPhoto(second)

	require.Same(t, second, l.Photo())

	data, err := l.EncodePNG(0)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())

	jpg, err := l.EncodeJPEG(10, 80)
	require.NoError(t, err)
	require.NotEmpty(t, jpg)
}

func TestThumbnail(t *testing.T) {
	src := testPhoto(t, 200, 100).Image

	tests := []struct {
		name     string
		maxWidth int
		want     image.Rectangle
	}{
		{"no limit", 0, image.Rect(0, 0, 200, 100)},
		{"larger than source", 400, image.Rect(0, 0, 200, 100)},
		{"half", 100, image.Rect(0, 0, 100, 50)},
		{"tiny", 3, image.Rect(0, 0, 3, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Thumbnail(src, tt.maxWidth).Bounds())
		})
	}
}
