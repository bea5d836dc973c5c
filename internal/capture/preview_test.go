package capture

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"gocv.io/x/gocv"
)

func TestPreview_Empty(t *testing.T) {
	p := NewPreview(true)

	if data, seq := p.JPEG(); data != nil || seq != 0 {
		t.Errorf("new preview = %d bytes seq %d, want empty", len(data), seq)
	}
	if err := p.Update(nil); err != ErrNoFrame {
		t.Errorf("Update(nil) = %v, want ErrNoFrame", err)
	}
	if !p.Mirrored() {
		t.Error("expected mirrored preview")
	}
	if w, h := p.Size(); w != 0 || h != 0 {
		t.Errorf("Size() = %dx%d before any frame", w, h)
	}
}

func TestPreview_Update(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	for _, mirror := range []bool{false, true} {
		p := NewPreview(mirror)

		frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		if err := p.Update(&frame); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if err := p.Update(&frame); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		frame.Close()

		data, seq := p.JPEG()
		if seq != 2 {
			t.Errorf("seq = %d, want 2", seq)
		}

		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("preview is not a JPEG: %v", err)
		}
		if img.Bounds() != image.Rect(0, 0, 64, 48) {
			t.Errorf("preview bounds = %v", img.Bounds())
		}
		if w, h := p.Size(); w != 64 || h != 48 {
			t.Errorf("Size() = %dx%d, want 64x48", w, h)
		}
	}
}
