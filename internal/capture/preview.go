package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// Preview keeps the most recent frame as JPEG for the MJPEG stream. Frames are
// flipped horizontally before encoding when mirror is set, using the same
// policy as captured photos.
type Preview struct {
	mu     sync.RWMutex
	mirror bool
	jpeg   []byte
	seq    uint64
	width  int
	height int
}

// NewPreview creates an empty preview.
func NewPreview(mirror bool) *Preview {
	return &Preview{mirror: mirror}
}

// Update encodes frame and makes it the current preview image.
func (p *Preview) Update(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return ErrNoFrame
	}

	src := *frame
	if p.mirror {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(*frame, &flipped, 1)
		src = flipped
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, src)
	if err != nil {
		return err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	p.mu.Lock()
	p.jpeg = data
	p.seq++
	p.width, p.height = frame.Cols(), frame.Rows()
	p.mu.Unlock()
	return nil
}

// JPEG returns the current preview image and its sequence number. The
// sequence is zero until the first Update.
func (p *Preview) JPEG() ([]byte, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.jpeg, p.seq
}

// Mirrored reports whether previews are flipped.
func (p *Preview) Mirrored() bool {
	return p.mirror
}

// Size returns the dimensions of the current preview image, or zeros before
// the first Update.
func (p *Preview) Size() (width, height int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.width, p.height
}
