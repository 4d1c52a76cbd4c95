package telegram

import (
	"bytes"
	"strings"
)

// FrameAssembler collects raw lines until a checksum line ("!XXXX") arrives.
// Lines are kept byte for byte, terminators included, because the checksum
// covers them.
type FrameAssembler struct {
	buf bytes.Buffer
}

// Push appends a line. When the line completes a frame, the frame is returned
// and the assembler starts over.
func (a *FrameAssembler) Push(line string) ([]byte, bool) {
	a.buf.WriteString(line)
	if !strings.HasPrefix(line, "!") {
		return nil, false
	}

	frame := bytes.Clone(a.buf.Bytes())
	a.buf.Reset()
	return frame, true
}

// Reset drops a partially assembled frame.
func (a *FrameAssembler) Reset() {
	a.buf.Reset()
}

// Pending returns the number of buffered bytes not yet part of a frame.
func (a *FrameAssembler) Pending() int {
	return a.buf.Len()
}
