package framebuffer

import (
	"bufio"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func solidFrame(w, h int, r, g, b byte) []byte {
	buf := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		buf[i*3] = r
		buf[i*3+1] = g
		buf[i*3+2] = b
	}
	return buf
}

func TestWritePPMHeaderAndSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.ppm")

	src := solidFrame(640, 480, 10, 20, 30)
	crop := Region{X: 0, Y: 0, W: 640, H: 480}

	outW, outH, err := WritePPM(path, src, 640, 480, crop, 1)
	if err != nil {
		t.Fatalf("WritePPM: %v", err)
	}
	if outW != 640 || outH != 480 {
		t.Fatalf("outW,outH = %d,%d", outW, outH)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic, _ := r.ReadString('\n')
	dims, _ := r.ReadString('\n')
	maxval, _ := r.ReadString('\n')

	if magic != "P6\n" {
		t.Fatalf("magic = %q", magic)
	}
	if dims != "640 480\n" {
		t.Fatalf("dims = %q", dims)
	}
	if maxval != "255\n" {
		t.Fatalf("maxval = %q", maxval)
	}

	pixel := make([]byte, 3)
	if _, err := r.Read(pixel); err != nil {
		t.Fatalf("read pixel: %v", err)
	}
	if pixel[0] != 10 || pixel[1] != 20 || pixel[2] != 30 {
		t.Fatalf("first pixel = %v, want [10 20 30]", pixel)
	}
}

func TestWritePPMPresetHudOn640x480(t *testing.T) {
	// End-to-end scenario 3.
	dir := t.TempDir()
	path := filepath.Join(dir, "hud.ppm")

	p, _ := FindPreset("hud")
	crop := ApplyPreset(p, 640, 480)
	src := solidFrame(640, 480, 1, 2, 3)

	outW, outH, err := WritePPM(path, src, 640, 480, crop, 1)
	if err != nil {
		t.Fatalf("WritePPM: %v", err)
	}
	if outW != 640 || outH != 105 {
		t.Fatalf("outW,outH = %d,%d, want 640,105", outW, outH)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "P6\n640 105\n255\n"
	if string(data[:len(want)]) != want {
		t.Fatalf("header = %q, want %q", data[:len(want)], want)
	}
}

func TestWriteDepthRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "depth.raw")

	w, h := 4, 4
	src := make([]uint16, w*h)
	for i := range src {
		src[i] = uint16(1000 + i)
	}
	crop := Region{X: 0, Y: 0, W: w, H: h}

	outW, outH, err := WriteDepth(path, src, w, h, crop, 1, false)
	if err != nil {
		t.Fatalf("WriteDepth: %v", err)
	}
	if outW != w || outH != h {
		t.Fatalf("outW,outH = %d,%d", outW, outH)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) != w*h*2 {
		t.Fatalf("file size = %d, want %d", len(data), w*h*2)
	}
	for i := 0; i < w*h; i++ {
		v := binary.LittleEndian.Uint16(data[i*2 : i*2+2])
		if v != src[i] {
			t.Fatalf("pixel %d = %d, want %d", i, v, src[i])
		}
	}
}

func TestWriteDepthRotate180Involution(t *testing.T) {
	// Depth rotation is involutive: rotating twice returns the original.
	dir := t.TempDir()
	w, h := 4, 4
	src := make([]uint16, w*h)
	for i := range src {
		src[i] = uint16(i)
	}
	crop := Region{X: 0, Y: 0, W: w, H: h}

	path1 := filepath.Join(dir, "once.raw")
	if _, _, err := WriteDepth(path1, src, w, h, crop, 1, true); err != nil {
		t.Fatalf("WriteDepth: %v", err)
	}
	once, err := os.ReadFile(path1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	rotated := make([]uint16, w*h)
	for i := 0; i < w*h; i++ {
		v := binary.LittleEndian.Uint16(once[i*2 : i*2+2])
		rotated[i] = v
	}

	path2 := filepath.Join(dir, "twice.raw")
	if _, _, err := WriteDepth(path2, rotated, w, h, crop, 1, true); err != nil {
		t.Fatalf("WriteDepth: %v", err)
	}
	twice, err := os.ReadFile(path2)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	for i := 0; i < w*h; i++ {
		v := binary.LittleEndian.Uint16(twice[i*2 : i*2+2])
		if v != src[i] {
			t.Fatalf("pixel %d after double rotation = %d, want %d", i, v, src[i])
		}
	}
}

func TestWritePPMOpenFailureReturnsOpenError(t *testing.T) {
	crop := Region{X: 0, Y: 0, W: 2, H: 2}
	_, _, err := WritePPM("/nonexistent-dir-xyz/out.ppm", solidFrame(2, 2, 1, 2, 3), 2, 2, crop, 1)
	if err == nil {
		t.Fatal("expected an error creating a file in a nonexistent directory")
	}
	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("err = %v (%T), want *OpenError", err, err)
	}
}

func TestWriteDepthOpenFailureReturnsOpenError(t *testing.T) {
	crop := Region{X: 0, Y: 0, W: 2, H: 2}
	src := []uint16{1, 2, 3, 4}
	_, _, err := WriteDepth("/nonexistent-dir-xyz/out.raw", src, 2, 2, crop, 1, false)
	if err == nil {
		t.Fatal("expected an error creating a file in a nonexistent directory")
	}
	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("err = %v (%T), want *OpenError", err, err)
	}
}
