// Package space converts spatial rectangles and highlight shapes between
// the working (cropped clip) pixel space and the original source pixel
// space. The active crop rectangle, in source pixels, fully determines the
// affine mapping at a given frame.
package space

import (
	"github.com/reelcut/reelcut-agent/internal/track"
)

// Dims is the working video's pixel dimensions.
type Dims struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Mapped is the result of a rectangle conversion. Visible is false when the
// mapped rectangle lies wholly outside the destination space.
type Mapped struct {
	Rect    track.Rect
	Visible bool
}

func usable(crop track.Rect, dims Dims) bool {
	return crop.Width > 0 && crop.Height > 0 && dims.Width > 0 && dims.Height > 0
}

// SourceToWorking maps a rectangle in source pixels into working pixels
// through the active crop. A degenerate crop or dims yields an invisible
// zero rectangle rather than dividing by zero.
func SourceToWorking(r track.Rect, crop track.Rect, dims Dims) Mapped {
	if !usable(crop, dims) {
		return Mapped{}
	}
	sx := dims.Width / crop.Width
	sy := dims.Height / crop.Height
	out := track.Rect{
		X:      (r.X - crop.X) * sx,
		Y:      (r.Y - crop.Y) * sy,
		Width:  r.Width * sx,
		Height: r.Height * sy,
	}
	return Mapped{Rect: out, Visible: intersects(out, 0, 0, dims.Width, dims.Height)}
}

// WorkingToSource is the exact inverse of SourceToWorking. Visible reports
// whether the mapped rectangle intersects the crop window, i.e. whether any
// part of it would show in the working clip.
func WorkingToSource(r track.Rect, crop track.Rect, dims Dims) Mapped {
	if !usable(crop, dims) {
		return Mapped{}
	}
	sx := crop.Width / dims.Width
	sy := crop.Height / dims.Height
	out := track.Rect{
		X:      r.X*sx + crop.X,
		Y:      r.Y*sy + crop.Y,
		Width:  r.Width * sx,
		Height: r.Height * sy,
	}
	return Mapped{Rect: out, Visible: intersects(out, crop.X, crop.Y, crop.X+crop.Width, crop.Y+crop.Height)}
}

// EllipseSourceToWorking maps a highlight shape from source to working
// pixels. Radii scale with the crop like width/height; opacity and color
// pass through. The boolean mirrors Mapped.Visible.
func EllipseSourceToWorking(e track.Ellipse, crop track.Rect, dims Dims) (track.Ellipse, bool) {
	m := SourceToWorking(boundsOf(e), crop, dims)
	return ellipseFromBounds(m.Rect, e), m.Visible
}

// EllipseWorkingToSource maps a highlight shape from working to source
// pixels.
func EllipseWorkingToSource(e track.Ellipse, crop track.Rect, dims Dims) (track.Ellipse, bool) {
	m := WorkingToSource(boundsOf(e), crop, dims)
	return ellipseFromBounds(m.Rect, e), m.Visible
}

func boundsOf(e track.Ellipse) track.Rect {
	return track.Rect{
		X:      e.X - e.RadiusX,
		Y:      e.Y - e.RadiusY,
		Width:  2 * e.RadiusX,
		Height: 2 * e.RadiusY,
	}
}

func ellipseFromBounds(r track.Rect, from track.Ellipse) track.Ellipse {
	return track.Ellipse{
		X:       r.X + r.Width/2,
		Y:       r.Y + r.Height/2,
		RadiusX: r.Width / 2,
		RadiusY: r.Height / 2,
		Opacity: from.Opacity,
		Color:   from.Color,
	}
}

func intersects(r track.Rect, minX, minY, maxX, maxY float64) bool {
	return r.X < maxX && r.X+r.Width > minX && r.Y < maxY && r.Y+r.Height > minY
}
