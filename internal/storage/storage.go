// Package storage abstracts the remote object store behind a small
// streaming interface. The MinIO implementation works with any
// S3-compatible provider; tests use the in-memory implementation.
package storage

import (
	"context"
	"fmt"
	"io"
)

// Storage is the gateway to the object-storage provider.
type Storage interface {
	// OpenStream starts a streamed upload bound to key. Bytes written to
	// the returned stream go to the provider as they arrive; the final
	// result is available through Wait after Close.
	OpenStream(ctx context.Context, key, contentType string) (*UploadStream, error)
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
	// PublicURL constructs the browser-accessible URL for a key.
	PublicURL(key string) string
	// Provider names the backing provider ("minio", "memory").
	Provider() string
}

// UploadResult is the provider's view of a completed upload. Size is the
// authoritative final byte count.
type UploadResult struct {
	Size   int64
	URL    string
	Key    string
	Format string
}

// ProviderError wraps a provider failure. Retryable marks transient
// (network / provider-side) failures as opposed to permanent ones such as
// bad credentials or an invalid key.
type ProviderError struct {
	Op        string
	Key       string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// UploadStream is one in-flight streamed upload: a writer feeding the
// provider plus a completion future. Write after Close or Abort fails with
// io.ErrClosedPipe.
type UploadStream struct {
	pw     *io.PipeWriter
	done   chan struct{}
	result *UploadResult
	err    error
}

// newUploadStream wires an io.Pipe to the provider call run, which
// consumes the read side until EOF and returns the completion result.
func newUploadStream(run func(r io.Reader) (*UploadResult, error)) *UploadStream {
	pr, pw := io.Pipe()
	s := &UploadStream{
		pw:   pw,
		done: make(chan struct{}),
	}
	go func() {
		res, err := run(pr)
		if err != nil {
			// Unblock any writer still feeding the pipe.
			_ = pr.CloseWithError(err)
		}
		s.result, s.err = res, err
		close(s.done)
	}()
	return s
}

// Write forwards one chunk to the provider. It blocks while the provider
// drains previously written bytes, which paces a sender that outruns the
// destination.
func (s *UploadStream) Write(p []byte) (int, error) {
	return s.pw.Write(p)
}

// Close signals end of input. It does not wait for the provider to finish.
func (s *UploadStream) Close() error {
	return s.pw.Close()
}

// Abort tears the stream down with cause; the provider call fails and the
// completion future resolves with an error.
func (s *UploadStream) Abort(cause error) {
	_ = s.pw.CloseWithError(cause)
}

// Wait blocks until the provider finishes (or ctx expires) and returns the
// completion result.
func (s *UploadStream) Wait(ctx context.Context) (*UploadResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return s.result, s.err
	}
}
