package preimage

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Hinter is implemented by anything that wants to announce upcoming
// preimage requests to the host.
type Hinter interface {
	Hint(v Hint)
}

// Hint is an application-level, opaque advisory string: "type ‖ payload"
// rendered as hex UTF-8. Only the host interprets its contents.
type Hint interface {
	Hint() string
}

// HintWriter writes hints over the hint channel and blocks for the host's
// single-byte acknowledgement before returning.
type HintWriter struct {
	rw FileChannel
}

func NewHintWriter(rw FileChannel) *HintWriter {
	return &HintWriter{rw: rw}
}

func (hw *HintWriter) Hint(v Hint) {
	hint := v.Hint()
	if err := hw.writeHint(hint); err != nil {
		panic(fmt.Errorf("failed to write hint %q: %w", hint, err))
	}
}

func (hw *HintWriter) writeHint(hint string) error {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(hint)))
	if err := writeAll(hw.rw, length[:]); err != nil {
		return fmt.Errorf("failed to write hint length prefix: %w", err)
	}
	if err := writeAll(hw.rw, []byte(hint)); err != nil {
		return fmt.Errorf("failed to write hint payload: %w", err)
	}
	var ack [1]byte
	if err := readAll(hw.rw, ack[:]); err != nil {
		return fmt.Errorf("failed to read hint ack: %w", err)
	}
	return nil
}

// NoOpHinter drops every hint. Used in ZKVM mode, where the preimage map is
// pre-verified and no host is listening.
type NoOpHinter struct{}

func (NoOpHinter) Hint(Hint) {}

// HintHandler is implemented by the host side: given the raw hint string,
// fetch and cache whatever it refers to.
type HintHandler func(hint string) error

// HintReader reads hint requests off the hint channel (host side) and
// dispatches them to a HintHandler, replying with the single-byte ack.
type HintReader struct {
	rw FileChannel
}

func NewHintReader(rw FileChannel) *HintReader {
	return &HintReader{rw: rw}
}

// NextHint reads, handles, and acknowledges exactly one hint. Returns false
// (with a nil error) when the channel closed cleanly between hints.
func (hr *HintReader) NextHint(handler HintHandler) (bool, error) {
	var length [4]byte
	if _, err := io.ReadFull(hr.rw, length[:]); err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("failed to read hint length prefix: %w", err)
	}
	l := binary.BigEndian.Uint32(length[:])
	payload := make([]byte, l)
	if err := readAll(hr.rw, payload); err != nil {
		return false, fmt.Errorf("failed to read hint payload: %w", err)
	}
	hintErr := handler(string(payload))
	if _, err := hr.rw.Write([]byte{0}); err != nil {
		return false, fmt.Errorf("failed to write hint ack: %w", err)
	}
	return true, hintErr
}
