// Package display fans pipeline output out to whatever is presenting it.
package display

import (
	"github.com/ayusman/akushu/internal/detector"
	"github.com/ayusman/akushu/internal/handshake"
	"github.com/ayusman/akushu/internal/photo"
)

// Display receives per-frame hand data and captured photos. Implementations
// are called from the frame loop and must not block for long.
type Display interface {
	ShowHands(hands []detector.Hand, result handshake.Result)
	ShowPhoto(p *photo.Photo)
}

// Multi forwards every call to each display in order.
type Multi []Display

func (m Multi) ShowHands(hands []detector.Hand, result handshake.Result) {
	for _, d := range m {
		d.ShowHands(hands, result)
	}
}

func (m Multi) ShowPhoto(p *photo.Photo) {
	for _, d := range m {
		d.ShowPhoto(p)
	}
}
