package upload

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/07Akashh/DriveBackend/internal/storage"
)

// State of one upload session. The first chunk write moves acknowledged
// to streaming implicitly; end-of-input moves streaming to finishing.
// Completion, failure and abort all end with the session leaving the
// registry, so they need no state of their own.
type State string

const (
	StateAcknowledged State = "acknowledged"
	StateStreaming    State = "streaming"
	StateFinishing    State = "finishing"
)

// Session is the ephemeral per-connection upload in progress. It lives
// from an accepted upload:start until completion, failure or disconnect.
type Session struct {
	ConnectionID string
	UserID       int64
	OwnerEmail   string
	Filename     string
	DeclaredSize int64
	MimeType     string
	FileKey      string
	Folder       string
	StartedAt    time.Time

	stream *storage.UploadStream

	mu           sync.Mutex
	state        State
	uploadedSize int64
}

func NewSession(connectionID string, userID int64, ownerEmail, filename string, declaredSize int64, mimeType, fileKey, folder string, stream *storage.UploadStream) *Session {
	return &Session{
		ConnectionID: connectionID,
		UserID:       userID,
		OwnerEmail:   strings.ToLower(ownerEmail),
		Filename:     filename,
		DeclaredSize: declaredSize,
		MimeType:     mimeType,
		FileKey:      fileKey,
		Folder:       folder,
		StartedAt:    time.Now(),
		stream:       stream,
		state:        StateAcknowledged,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) UploadedSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadedSize
}

// WriteChunk forwards one normalized chunk to the pipe and returns the new
// cumulative size. Empty chunks are ignored. A write failure does not tear
// the session down; the caller reports it and the client may retry or end.
func (s *Session) WriteChunk(data []byte) (int64, error) {
	if len(data) == 0 {
		return s.UploadedSize(), nil
	}

	s.mu.Lock()
	if s.state == StateFinishing {
		s.mu.Unlock()
		return 0, ErrSessionFinishing
	}
	s.state = StateStreaming
	s.mu.Unlock()

	if _, err := s.stream.Write(data); err != nil {
		return s.UploadedSize(), fmt.Errorf("write chunk: %w", err)
	}

	s.mu.Lock()
	s.uploadedSize += int64(len(data))
	size := s.uploadedSize
	s.mu.Unlock()
	return size, nil
}

// Finish signals end-of-input to the pipe. The session stays registered
// until the completion future resolves.
func (s *Session) Finish() error {
	s.mu.Lock()
	s.state = StateFinishing
	s.mu.Unlock()
	return s.stream.Close()
}

// Abort destroys the pipe with cause. No compensating delete is issued
// against the provider, so a partial object may remain there.
func (s *Session) Abort(cause error) {
	s.stream.Abort(cause)
}

// Stream exposes the completion future to the socket handler.
func (s *Session) Stream() *storage.UploadStream { return s.stream }

// DeriveFileKey builds the collision-free destination key for a declared
// filename: timestamp, random token, then the extensionless base name.
func DeriveFileKey(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString(), base)
}
