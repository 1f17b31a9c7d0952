package framebuffer

import "testing"

func TestGetBufferSizesBuckets(t *testing.T) {
	b := GetBuffer(100)
	if len(b) != 100 {
		t.Fatalf("len = %d, want 100", len(b))
	}
	PutBuffer(b)

	b2 := GetBuffer(sizeMedium - 1)
	if len(b2) != sizeMedium-1 {
		t.Fatalf("len = %d, want %d", len(b2), sizeMedium-1)
	}
	PutBuffer(b2)
}

func TestGetBufferOverflow(t *testing.T) {
	b := GetBuffer(sizeLarge + 1)
	if len(b) != sizeLarge+1 {
		t.Fatalf("len = %d, want %d", len(b), sizeLarge+1)
	}
	// Overflow buffers are not pool-backed; Put must not panic.
	PutBuffer(b)
}
