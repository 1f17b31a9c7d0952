package framebuffer

import (
	"bufio"
	"encoding/binary"
	"os"
	"strconv"
)

// OpenError wraps a failure to create the output file, distinguishing it
// from a failure writing to an already-open file: the two map to different
// error strings ("failed to open output path" vs "failed to write
// framebuffer"/"failed to write depth buffer").
type OpenError struct {
	Err error
}

func (e *OpenError) Error() string { return e.Err.Error() }
func (e *OpenError) Unwrap() error { return e.Err }

// WritePPM downsamples src (a W×H, 3-byte-per-pixel, row-major RGB frame)
// through crop and scaleDiv, and writes a PPM ("P6") file to path.
func WritePPM(path string, src []byte, frameW, frameH int, crop Region, scaleDiv int) (outW, outH int, err error) {
	outW, outH = ScaleOutput(crop, scaleDiv)

	f, err := os.Create(path)
	if err != nil {
		return 0, 0, &OpenError{Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("P6\n" + strconv.Itoa(outW) + " " + strconv.Itoa(outH) + "\n255\n"); err != nil {
		return 0, 0, err
	}

	row := GetBuffer(outW * 3)
	defer PutBuffer(row)

	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			sx, sy := SourceCoord(crop, scaleDiv, ox, oy, frameW, frameH)
			srcOff := (sy*frameW + sx) * 3
			dstOff := ox * 3
			if srcOff+3 <= len(src) {
				copy(row[dstOff:dstOff+3], src[srcOff:srcOff+3])
			}
		}
		if _, err := w.Write(row[:outW*3]); err != nil {
			return 0, 0, err
		}
	}

	if err := w.Flush(); err != nil {
		return 0, 0, err
	}
	return outW, outH, nil
}

// WriteDepth downsamples src (a W×H array of 16-bit depth values) through
// crop and scaleDiv, optionally applying a 180° rotation, and writes a raw
// little-endian u16 blob to path (no header).
func WriteDepth(path string, src []uint16, frameW, frameH int, crop Region, scaleDiv int, rotate180 bool) (outW, outH int, err error) {
	outW, outH = ScaleOutput(crop, scaleDiv)

	f, err := os.Create(path)
	if err != nil {
		return 0, 0, &OpenError{Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	row := GetBuffer(outW * 2)
	defer PutBuffer(row)

	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			var sx, sy int
			if rotate180 {
				sx, sy = RotatedSourceCoord(crop, scaleDiv, outW, outH, ox, oy, frameW, frameH)
			} else {
				sx, sy = SourceCoord(crop, scaleDiv, ox, oy, frameW, frameH)
			}
			srcOff := sy*frameW + sx
			var v uint16
			if srcOff < len(src) {
				v = src[srcOff]
			}
			binary.LittleEndian.PutUint16(row[ox*2:ox*2+2], v)
		}
		if _, err := w.Write(row[:outW*2]); err != nil {
			return 0, 0, err
		}
	}

	if err := w.Flush(); err != nil {
		return 0, 0, err
	}
	return outW, outH, nil
}
