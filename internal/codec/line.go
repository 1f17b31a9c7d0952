// Package codec implements the line-framed JSON envelope codec: a minimal
// field extractor rather than a general parser (keys are looked up by name,
// not built into a tree), and a manual response encoder.
package codec

import (
	"bufio"

	"github.com/mupen64plus/agent-control-server/internal/constants"
)

// ReadLine reads a single request line from r one byte at a time, grounded
// on the original AgentReadLine: carriage returns are stripped, and bytes
// past constants.MaxLineBytes are discarded while still scanning through to
// the terminating newline, so a long line never desyncs the stream. Returns
// io.EOF (unwrapped from the underlying reader) when the connection closes
// with no more data.
func ReadLine(r *bufio.Reader) (string, error) {
	buf := make([]byte, 0, constants.MaxLineBytes)
	for {
		c, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if c == '\r' {
			continue
		}
		if c == '\n' {
			return string(buf), nil
		}
		if len(buf) < constants.MaxLineBytes {
			buf = append(buf, c)
		}
	}
}
