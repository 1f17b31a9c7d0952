package framebuffer

// Region is a pixel-space crop rectangle within a source frame.
type Region struct {
	X, Y, W, H int
}

// ApplyPreset derives a clamped crop region from a preset's per-mille
// coordinates against a W×H source frame, grounded on the original source's
// AgentApplyFramebufferPresetCrop.
func ApplyPreset(p Preset, width, height int) Region {
	x := width * p.XMilli / 1000
	y := height * p.YMilli / 1000
	w := width * p.WMilli / 1000
	h := height * p.HMilli / 1000
	return clampRegion(x, y, w, h, width, height)
}

// ExplicitRegion derives a crop region from request arguments that may be
// partially absent; an absent coordinate defaults to 0 and an absent size
// defaults to the remaining frame extent, per spec.md §4.3 ("unspecified
// arguments default to the full frame").
func ExplicitRegion(x, y, w, h *int, width, height int) Region {
	cx, cy, cw, ch := 0, 0, width, height
	if x != nil {
		cx = *x
	}
	if y != nil {
		cy = *y
	}
	if w != nil {
		cw = *w
	} else {
		cw = width - cx
	}
	if h != nil {
		ch = *h
	} else {
		ch = height - cy
	}
	return clampRegion(cx, cy, cw, ch, width, height)
}

// clampRegion enforces x,y >= 0; x < W, y < H; w,h >= 1; x+w <= W, y+h <= H.
func clampRegion(x, y, w, h, width, height int) Region {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if width > 0 && x >= width {
		x = width - 1
	}
	if height > 0 && y >= height {
		y = height - 1
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if x+w > width {
		w = width - x
	}
	if y+h > height {
		h = height - y
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return Region{X: x, Y: y, W: w, H: h}
}

// ScaleOutput computes the downsampled output size for a crop region under
// scale_div (scale_div >= 1), per spec.md §4.3: nearest-neighbor, output
// size max(1, crop/scale_div).
func ScaleOutput(crop Region, scaleDiv int) (outW, outH int) {
	if scaleDiv < 1 {
		scaleDiv = 1
	}
	outW = crop.W / scaleDiv
	if outW < 1 {
		outW = 1
	}
	outH = crop.H / scaleDiv
	if outH < 1 {
		outH = 1
	}
	return outW, outH
}

// SourceCoord maps an output pixel (ox, oy) back to its source pixel under
// the crop region and scale divisor, clamped to the source frame.
func SourceCoord(crop Region, scaleDiv, ox, oy, frameW, frameH int) (sx, sy int) {
	if scaleDiv < 1 {
		scaleDiv = 1
	}
	sx = crop.X + ox*scaleDiv
	sy = crop.Y + oy*scaleDiv
	if sx >= frameW {
		sx = frameW - 1
	}
	if sy >= frameH {
		sy = frameH - 1
	}
	if sx < 0 {
		sx = 0
	}
	if sy < 0 {
		sy = 0
	}
	return sx, sy
}

// RotatedSourceCoord is SourceCoord with a 180° rotation applied to the
// output coordinate first, per spec.md §4.3's depth-buffer rotation rule.
func RotatedSourceCoord(crop Region, scaleDiv, outW, outH, ox, oy, frameW, frameH int) (sx, sy int) {
	return SourceCoord(crop, scaleDiv, outW-1-ox, outH-1-oy, frameW, frameH)
}
