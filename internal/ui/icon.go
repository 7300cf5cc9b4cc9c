package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

var iconOnce struct {
	sync.Once
	data []byte
}

// iconBytes renders the tray icon: a 16x16 filmstrip block with sprocket
// holes, encoded as PNG. Rendering at startup keeps binary assets out of
// the repo.
func iconBytes() []byte {
	iconOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		body := color.RGBA{R: 0x2b, G: 0x2b, B: 0x2b, A: 0xff}
		hole := color.RGBA{R: 0xf5, G: 0xf5, B: 0xf5, A: 0xff}

		for y := 2; y < 14; y++ {
			for x := 0; x < 16; x++ {
				img.Set(x, y, body)
			}
		}
		for _, y := range []int{3, 12} {
			for x := 1; x < 16; x += 4 {
				img.Set(x, y, hole)
				img.Set(x+1, y, hole)
			}
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return
		}
		iconOnce.data = buf.Bytes()
	})
	return iconOnce.data
}
