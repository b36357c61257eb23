// Package coordmap maps pointer samples from local viewport coordinates
// to server-display coordinates, handling the letterbox/pillarbox padding
// that appears whenever the two aspect ratios differ. It is a pure
// function of its inputs plus the caller-supplied UI offset; it holds no
// state of its own and is free of any pointer-listener type, per the
// source's cyclic/polymorphic rework note.
package coordmap

// Viewport is the local window rectangle the pointer sample is relative
// to, in client-window pixels.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// Display is the remote server's monitor resolution.
type Display struct {
	Width, Height int
}

// Map converts a local pointer sample (xl, yl) inside viewport into a
// server-display coordinate, applying uiOffsetY after scaling. ok is
// false when the sample falls outside the viewport or inside the
// letterbox/pillarbox padding and should be dropped.
func Map(xl, yl int, v Viewport, d Display, uiOffsetY int) (xs, ys int, ok bool) {
	if v.Width <= 0 || v.Height <= 0 || d.Width <= 0 || d.Height <= 0 {
		return 0, 0, false
	}
	if xl < v.X || xl >= v.X+v.Width || yl < v.Y || yl >= v.Y+v.Height {
		return 0, 0, false
	}

	rx := float64(xl - v.X)
	ry := float64(yl - v.Y)

	serverAR := float64(d.Width) / float64(d.Height)
	viewAR := float64(v.Width) / float64(v.Height)

	var fx, fy float64 // scaled, unoffset coordinates in [0, Sw), [0, Sh)

	if serverAR > viewAR {
		// Letterbox: image fills the viewport width, padded top/bottom.
		effectiveHeight := float64(v.Width) / serverAR
		padV := (float64(v.Height) - effectiveHeight) / 2
		if ry < padV || ry > float64(v.Height)-padV {
			return 0, 0, false
		}
		fx = rx * float64(d.Width) / float64(v.Width)
		fy = (ry - padV) * float64(d.Height) / effectiveHeight
	} else {
		// Pillarbox: image fills the viewport height, padded left/right.
		effectiveWidth := float64(v.Height) * serverAR
		padH := (float64(v.Width) - effectiveWidth) / 2
		if rx < padH || rx > float64(v.Width)-padH {
			return 0, 0, false
		}
		fx = (rx - padH) * float64(d.Width) / effectiveWidth
		fy = ry * float64(d.Height) / float64(v.Height)
	}

	xs = round(fx)
	ys = round(fy) + uiOffsetY

	xs = clamp(xs, 0, d.Width-1)
	ys = clamp(ys, 0, d.Height-1)
	return xs, ys, true
}

func round(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
