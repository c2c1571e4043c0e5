// Package relay copies a response body from the backend to the client in
// bounded chunks, flushing after every chunk so partial output is visible
// to the client as soon as it arrives.
package relay

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultChunkSize is the read size used when the caller passes a non-positive size.
const DefaultChunkSize = 1024

// ReadError wraps a failure reading from the source. Once headers are
// committed it means the body the client received is truncated.
type ReadError struct{ Err error }

func (e *ReadError) Error() string { return fmt.Sprintf("read source: %v", e.Err) }

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError wraps a failure writing to the destination, typically a
// client that went away.
type WriteError struct{ Err error }

func (e *WriteError) Error() string { return fmt.Sprintf("write destination: %v", e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// Copy reads src in chunks of at most chunkSize bytes and writes each chunk
// to dst in order, flushing dst after every chunk when it implements
// http.Flusher. It returns the number of bytes written and stops at the
// first io.EOF from src, which is not reported as an error.
//
// Errors are *ReadError or *WriteError so callers can tell a broken
// backend from a departed client.
func Copy(dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	flusher, _ := dst.(http.Flusher)

	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr == nil && w != n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return written, &WriteError{Err: werr}
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, &ReadError{Err: rerr}
		}
	}
}
