package inputshadow

import "testing"

func TestButtonMaskFromNameCaseInsensitive(t *testing.T) {
	mask, ok := ButtonMaskFromName("A")
	if !ok || mask != BtnA {
		t.Fatalf("ButtonMaskFromName(A) = %#x, %v", mask, ok)
	}
	mask, ok = ButtonMaskFromName("du")
	if !ok || mask != BtnDpadUp {
		t.Fatalf("ButtonMaskFromName(du) = %#x, %v", mask, ok)
	}
	mask, ok = ButtonMaskFromName("DPAD_UP")
	if !ok || mask != BtnDpadUp {
		t.Fatalf("ButtonMaskFromName(DPAD_UP) = %#x, %v", mask, ok)
	}
}

func TestButtonMaskFromNameUnknown(t *testing.T) {
	if _, ok := ButtonMaskFromName("select"); ok {
		t.Fatal("expected unknown button to fail")
	}
}

func TestInputShadowComposition(t *testing.T) {
	// End-to-end scenario 2: press A then Z, expect 0x00A0.
	table := NewTable()
	table.ClearAll()

	aMask, _ := ButtonMaskFromName("a")
	zMask, _ := ButtonMaskFromName("z")

	table.Press(0, aMask)
	table.Press(0, zMask)

	if got := table.Get(0); got != 0x00A0 {
		t.Fatalf("shadow after press A,Z = %#x, want 0x00a0", got)
	}

	table.Release(0, aMask)
	if got := table.Get(0); got != zMask {
		t.Fatalf("shadow after releasing A = %#x, want %#x", got, zMask)
	}
}

func TestPressIsIdempotent(t *testing.T) {
	table := NewTable()
	mask, _ := ButtonMaskFromName("start")
	table.Press(0, mask)
	table.Press(0, mask)
	table.Press(0, mask)
	if got := table.Get(0); got != mask {
		t.Fatalf("repeated press = %#x, want %#x", got, mask)
	}
}

func TestStickPreservesButtonBits(t *testing.T) {
	table := NewTable()
	mask, _ := ButtonMaskFromName("a")
	table.Press(0, mask)

	table.SetStick(0, 100, -50)
	got := table.Get(0)

	if got&0x0000ffff != mask {
		t.Fatalf("low 16 bits changed by SetStick: %#x", got&0x0000ffff)
	}
	xByte := (got >> 16) & 0xff
	yByte := (got >> 24) & 0xff
	if int8(xByte) != 100 {
		t.Fatalf("x stick byte = %d, want 100", int8(xByte))
	}
	if int8(yByte) != -50 {
		t.Fatalf("y stick byte = %d, want -50", int8(yByte))
	}
}

func TestClampStick(t *testing.T) {
	if v := ClampStick(200); v != 127 {
		t.Fatalf("ClampStick(200) = %d, want 127", v)
	}
	if v := ClampStick(-200); v != -128 {
		t.Fatalf("ClampStick(-200) = %d, want -128", v)
	}
	if v := ClampStick(10); v != 10 {
		t.Fatalf("ClampStick(10) = %d, want 10", v)
	}
}

func TestNormalizePort(t *testing.T) {
	cases := []struct {
		in   int
		want int
		ok   bool
	}{
		{1, 0, true},
		{4, 3, true},
		{0, 0, true},
		{3, 3, true},
		{5, 0, false},
		{-1, 0, false},
	}
	for _, c := range cases {
		got, ok := NormalizePort(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("NormalizePort(%d) = %d, %v; want %d, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestClearAll(t *testing.T) {
	table := NewTable()
	mask, _ := ButtonMaskFromName("b")
	table.Press(0, mask)
	table.Press(2, mask)

	table.ClearAll()

	snap := table.Snapshot()
	for i, v := range snap {
		if v != 0 {
			t.Errorf("port %d not cleared: %#x", i, v)
		}
	}
}
