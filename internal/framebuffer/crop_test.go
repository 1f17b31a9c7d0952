package framebuffer

import "testing"

func TestClampRegionBasic(t *testing.T) {
	r := clampRegion(10, 10, 100, 100, 200, 150)
	if r.X != 10 || r.Y != 10 || r.W != 100 || r.H != 100 {
		t.Fatalf("region = %+v", r)
	}
}

func TestClampRegionOverflow(t *testing.T) {
	r := clampRegion(150, 100, 100, 100, 200, 150)
	if r.X+r.W > 200 {
		t.Fatalf("region overflows width: %+v", r)
	}
	if r.Y+r.H > 150 {
		t.Fatalf("region overflows height: %+v", r)
	}
}

func TestClampRegionNegative(t *testing.T) {
	r := clampRegion(-5, -5, 50, 50, 200, 150)
	if r.X != 0 || r.Y != 0 {
		t.Fatalf("region = %+v, want x=0,y=0", r)
	}
}

func TestClampRegionMinSize(t *testing.T) {
	r := clampRegion(0, 0, 0, 0, 200, 150)
	if r.W < 1 || r.H < 1 {
		t.Fatalf("region = %+v, want w,h >= 1", r)
	}
}

func TestExplicitRegionDefaultsToFullFrame(t *testing.T) {
	r := ExplicitRegion(nil, nil, nil, nil, 320, 240)
	if r.X != 0 || r.Y != 0 || r.W != 320 || r.H != 240 {
		t.Fatalf("region = %+v, want full frame", r)
	}
}

func TestExplicitRegionPartial(t *testing.T) {
	x, y := 10, 20
	r := ExplicitRegion(&x, &y, nil, nil, 320, 240)
	if r.X != 10 || r.Y != 20 {
		t.Fatalf("region = %+v", r)
	}
	if r.X+r.W != 320 || r.Y+r.H != 240 {
		t.Fatalf("region = %+v, want size to extend to the frame edge", r)
	}
}

func TestScaleOutputOneToOne(t *testing.T) {
	outW, outH := ScaleOutput(Region{W: 640, H: 480}, 1)
	if outW != 640 || outH != 480 {
		t.Fatalf("ScaleOutput(1) = %d,%d", outW, outH)
	}
}

func TestScaleOutputDownsample(t *testing.T) {
	outW, outH := ScaleOutput(Region{W: 640, H: 480}, 4)
	if outW != 160 || outH != 120 {
		t.Fatalf("ScaleOutput(4) = %d,%d", outW, outH)
	}
}

func TestScaleOutputMinimumOne(t *testing.T) {
	outW, outH := ScaleOutput(Region{W: 3, H: 3}, 10)
	if outW != 1 || outH != 1 {
		t.Fatalf("ScaleOutput floor = %d,%d, want >= 1", outW, outH)
	}
}

func TestSourceCoordClampedToFrame(t *testing.T) {
	crop := Region{X: 0, Y: 0, W: 640, H: 480}
	sx, sy := SourceCoord(crop, 1, 1000, 1000, 640, 480)
	if sx != 639 || sy != 479 {
		t.Fatalf("SourceCoord clamp = %d,%d, want 639,479", sx, sy)
	}
}

func TestRotatedSourceCoordMirrorsOutputCoord(t *testing.T) {
	// The rotated mapping of output pixel (ox, oy) must equal the unrotated
	// mapping of the mirrored output pixel (outW-1-ox, outH-1-oy).
	crop := Region{X: 0, Y: 0, W: 100, H: 100}
	outW, outH := 100, 100

	sx1, sy1 := RotatedSourceCoord(crop, 1, outW, outH, 10, 20, 100, 100)
	sx2, sy2 := SourceCoord(crop, 1, outW-1-10, outH-1-20, 100, 100)
	if sx1 != sx2 || sy1 != sy2 {
		t.Fatalf("rotated coord mismatch: (%d,%d) vs (%d,%d)", sx1, sy1, sx2, sy2)
	}
}
