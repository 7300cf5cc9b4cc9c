package api

import (
	"github.com/reelcut/reelcut-agent/internal/track"
)

func trackRect(x, y, w, h float64) track.Rect {
	return track.Rect{X: x, Y: y, Width: w, Height: h}
}

func trackEllipse(x, y, rx, ry float64) track.Ellipse {
	return track.Ellipse{X: x, Y: y, RadiusX: rx, RadiusY: ry, Opacity: 1, Color: "#ffcc00"}
}
