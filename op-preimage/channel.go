package preimage

import (
	"fmt"
	"io"
	"os"
)

// File descriptor numbers fixed by the FPVM convention. The
// client process inherits these from its parent regardless of whether the
// parent is a real FPVM kernel or a native host spawning a subprocess.
const (
	FdStdin       = 0
	FdStdout      = 1
	FdStderr      = 2
	FdHintWrite   = 3
	FdHintRead    = 4
	FdPreimageWrite = 5
	FdPreimageRead  = 6
)

// FileChannel is a bidirectional byte channel backed by two file handles,
// one to read and one to write. The same interface serves both the FPVM's
// inherited descriptors and a native host's os.Pipe() pairs.
type FileChannel interface {
	io.ReadWriteCloser
}

type readWritePair struct {
	io.Reader
	io.Writer
}

func (r readWritePair) Close() error {
	var reader, writer error
	if c, ok := r.Reader.(io.Closer); ok {
		reader = c.Close()
	}
	if c, ok := r.Writer.(io.Closer); ok {
		writer = c.Close()
	}
	if reader != nil {
		return reader
	}
	return writer
}

// ReadWritePair combines an independent reader and writer into one
// FileChannel, e.g. to pair up the two halves of a hint or preimage channel
// when they are backed by different os.Pipe() pairs.
func ReadWritePair(reader io.Reader, writer io.Writer) FileChannel {
	return readWritePair{Reader: reader, Writer: writer}
}

// ClientFileChannel opens the FPVM-convention hint and preimage channels
// from the descriptors the kernel is expected to have wired up already.
func ClientFileChannel() (hint, preimage FileChannel) {
	hint = ReadWritePair(os.NewFile(FdHintRead, "hint-read"), os.NewFile(FdHintWrite, "hint-write"))
	preimage = ReadWritePair(os.NewFile(FdPreimageRead, "preimage-read"), os.NewFile(FdPreimageWrite, "preimage-write"))
	return
}

// HostFileChannel opens the same fixed descriptors from the host's side
// of the pair: it reads what the client writes and writes what the
// client reads. Used when the host is started in server mode, attached
// to an already-running client (e.g. under cannon) rather than spawning
// one itself.
func HostFileChannel() (hint, preimage FileChannel) {
	hint = ReadWritePair(os.NewFile(FdHintWrite, "hint-write"), os.NewFile(FdHintRead, "hint-read"))
	preimage = ReadWritePair(os.NewFile(FdPreimageWrite, "preimage-write"), os.NewFile(FdPreimageRead, "preimage-read"))
	return
}

// writeAll loops until the full buffer has been written or an error occurs,
// since writes over a pipe are not guaranteed atomic at the application
// layer.
func writeAll(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// readAll loops until the buffer is fully populated or an unrecoverable
// error occurs. Reads may short-read; callers must loop.
func readAll(r io.Reader, data []byte) error {
	for len(data) > 0 {
		n, err := r.Read(data)
		if n > 0 {
			data = data[n:]
		}
		if err != nil {
			if err == io.EOF && len(data) == 0 {
				return nil
			}
			return fmt.Errorf("failed to read full buffer: %w", err)
		}
	}
	return nil
}
