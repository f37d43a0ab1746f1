package upload

import (
	"encoding/json"
	"time"
)

// Channel event names. The client sends start, then chunks, then end; the
// server answers with acknowledged/chunk-received/complete/error.
const (
	EventStart         = "upload:start"
	EventChunk         = "upload:chunk"
	EventEnd           = "upload:end"
	EventAcknowledged  = "upload:acknowledged"
	EventChunkReceived = "upload:chunk-received"
	EventComplete      = "upload:complete"
	EventError         = "upload:error"
)

// ClientMessage is one inbound text frame. Chunk stays raw until the
// session normalizes it; clients send it in several representations.
type ClientMessage struct {
	Event      string          `json:"event"`
	Filename   string          `json:"filename,omitempty"`
	Size       int64           `json:"size,omitempty"`
	MimeType   string          `json:"mimeType,omitempty"`
	UserID     int64           `json:"userId,omitempty"`
	Chunk      json.RawMessage `json:"chunk,omitempty"`
	ChunkIndex int             `json:"chunkIndex,omitempty"`
}

// ServerMessage is one outbound event.
type ServerMessage struct {
	Event        string     `json:"event"`
	ConnectionID string     `json:"connectionId,omitempty"`
	FileKey      string     `json:"fileKey,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	UploadedSize int64      `json:"uploadedSize,omitempty"`
	ChunkIndex   *int       `json:"chunkIndex,omitempty"`
	FileID       string     `json:"fileId,omitempty"`
	Filename     string     `json:"filename,omitempty"`
	FileURL      string     `json:"fileUrl,omitempty"`
	Size         int64      `json:"size,omitempty"`
	MimeType     string     `json:"mimeType,omitempty"`
	Error        string     `json:"error,omitempty"`
}

func NewAcknowledgedEvent(connectionID, fileKey string) *ServerMessage {
	now := time.Now()
	return &ServerMessage{
		Event:        EventAcknowledged,
		ConnectionID: connectionID,
		FileKey:      fileKey,
		Timestamp:    &now,
	}
}

// NewChunkReceivedEvent echoes the cumulative received size plus the
// client-supplied index. The index is client UI feedback only; the server
// never reorders or validates sequencing.
func NewChunkReceivedEvent(uploadedSize int64, chunkIndex int) *ServerMessage {
	return &ServerMessage{
		Event:        EventChunkReceived,
		UploadedSize: uploadedSize,
		ChunkIndex:   &chunkIndex,
	}
}

func NewCompleteEvent(fileID, filename, fileURL string, size int64, mimeType string) *ServerMessage {
	return &ServerMessage{
		Event:    EventComplete,
		FileID:   fileID,
		Filename: filename,
		FileURL:  fileURL,
		Size:     size,
		MimeType: mimeType,
	}
}

func NewErrorEvent(filename, message string) *ServerMessage {
	return &ServerMessage{
		Event:    EventError,
		Filename: filename,
		Error:    message,
	}
}
