package upload

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/07Akashh/DriveBackend/internal/pkg/validator"
	"github.com/07Akashh/DriveBackend/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,

	// Chunk uploads come from browser clients on other origins; actual
	// authorization happens per upload via the start payload.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsConn serializes writes to one websocket connection. Chunk acks from
// the read loop and completion events from the waiter goroutine share it.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) Send(msg *ServerMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(msg)
}

func (w *wsConn) Ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

// SocketHandler owns the upload channel: one websocket connection drives
// at most one upload session at a time through the registry.
type SocketHandler struct {
	registry   *Registry
	store      storage.Storage
	users      UserStore
	reconciler *Reconciler
}

func NewSocketHandler(registry *Registry, store storage.Storage, users UserStore, reconciler *Reconciler) *SocketHandler {
	return &SocketHandler{
		registry:   registry,
		store:      store,
		users:      users,
		reconciler: reconciler,
	}
}

func (h *SocketHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/upload", h.HandleWebSocket)
}

// HandleWebSocket upgrades the request and runs the connection until the
// client goes away. Session eviction on close is unconditional.
func (h *SocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("upload: websocket upgrade failed: %v", err)
		return
	}

	connID := uuid.NewString()
	w := &wsConn{conn: conn}
	log.Printf("upload: connection %s opened", connID)

	defer func() {
		h.handleDisconnect(connID)
		conn.Close()
		log.Printf("upload: connection %s closed", connID)
	}()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	go h.pingLoop(w)

	h.readLoop(w, connID)
}

func (h *SocketHandler) pingLoop(w *wsConn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := w.Ping(); err != nil {
			return
		}
	}
}

func (h *SocketHandler) readLoop(w *wsConn, connID string) {
	for {
		msgType, raw, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Printf("upload: connection %s read error: %v", connID, err)
			}
			return
		}

		// A binary frame is a raw chunk for the active session.
		if msgType == websocket.BinaryMessage {
			h.handleChunkData(w, connID, raw, 0)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = w.Send(NewErrorEvent("", "Failed to parse message"))
			continue
		}

		switch msg.Event {
		case EventStart:
			h.handleStart(w, connID, msg)
		case EventChunk:
			h.handleChunk(w, connID, msg)
		case EventEnd:
			h.handleEnd(w, connID)
		default:
			_ = w.Send(NewErrorEvent("", "Unknown event: "+msg.Event))
		}
	}
}

// startPayload is the validated subset of upload:start. MimeType may be
// empty; unknown types land in the default folder. Size zero is a valid
// empty file.
type startPayload struct {
	Filename string `validate:"required"`
	Size     int64  `validate:"gte=0"`
	UserID   int64  `validate:"required,gt=0"`
}

func (h *SocketHandler) handleStart(w *wsConn, connID string, msg ClientMessage) {
	ctx := context.Background()

	payload := startPayload{Filename: msg.Filename, Size: msg.Size, UserID: msg.UserID}
	if fieldErrs := validator.Validate(payload); fieldErrs != nil {
		log.Printf("upload: invalid start payload on %s: %v", connID, fieldErrs)
		_ = w.Send(NewErrorEvent(msg.Filename, "Invalid upload request"))
		return
	}

	user, err := h.users.GetByID(ctx, msg.UserID)
	if err != nil || user == nil {
		_ = w.Send(NewErrorEvent(msg.Filename, "User not found"))
		return
	}

	if !user.HasStorageSpace(msg.Size) {
		_ = w.Send(NewErrorEvent(msg.Filename, "Insufficient storage space"))
		return
	}

	folder := storage.FolderFor(msg.MimeType)
	key := folder + "/" + DeriveFileKey(msg.Filename)

	// The stream gets a background context on purpose: once the client
	// signals end-of-input the upload must resolve and be persisted even
	// if the connection disappears before the provider finishes.
	stream, err := h.store.OpenStream(context.Background(), key, msg.MimeType)
	if err != nil {
		log.Printf("upload: open stream for %s failed: %v", connID, err)
		_ = w.Send(NewErrorEvent(msg.Filename, "Internal server error during upload initialization"))
		return
	}

	sess := NewSession(connID, user.ID, user.Email, msg.Filename, msg.Size, msg.MimeType, key, folder, stream)
	if old := h.registry.Put(sess); old != nil {
		// A second start while one upload is active displaces the first
		// session; its pipe is left dangling, not destroyed.
		log.Printf("upload: connection %s replaced active session for %q", connID, old.Filename)
	}

	_ = w.Send(NewAcknowledgedEvent(connID, key))
}

func (h *SocketHandler) handleChunk(w *wsConn, connID string, msg ClientMessage) {
	sess, ok := h.registry.Get(connID)
	if !ok {
		// Best effort: chunks without an active session are dropped.
		return
	}

	data, err := DecodeChunk(msg.Chunk)
	if err != nil {
		_ = w.Send(NewErrorEvent(sess.Filename, "Failed to process file chunk"))
		return
	}

	h.handleChunkData(w, connID, data, msg.ChunkIndex)
}

func (h *SocketHandler) handleChunkData(w *wsConn, connID string, data []byte, chunkIndex int) {
	sess, ok := h.registry.Get(connID)
	if !ok || len(data) == 0 {
		return
	}

	size, err := sess.WriteChunk(data)
	if err != nil {
		// The session stays registered after a failed write; teardown only
		// happens on end-of-input resolution or disconnect.
		log.Printf("upload: chunk write on %s failed: %v", connID, err)
		_ = w.Send(NewErrorEvent(sess.Filename, "Failed to process file chunk"))
		return
	}

	_ = w.Send(NewChunkReceivedEvent(size, chunkIndex))
}

func (h *SocketHandler) handleEnd(w *wsConn, connID string) {
	sess, ok := h.registry.Get(connID)
	if !ok {
		return
	}

	if err := sess.Finish(); err != nil {
		log.Printf("upload: finish on %s failed: %v", connID, err)
	}

	go h.awaitCompletion(w, sess)
}

// awaitCompletion resolves the pipe's completion future and hands off to
// the reconciler. It runs off the read loop so control frames and
// disconnects keep being processed while the provider finishes.
func (h *SocketHandler) awaitCompletion(w *wsConn, sess *Session) {
	defer h.registry.Remove(sess.ConnectionID, sess)

	res, err := sess.Stream().Wait(context.Background())
	if err != nil {
		log.Printf("upload: stream for %s failed: %v", sess.ConnectionID, err)
		_ = w.Send(NewErrorEvent(sess.Filename, clientMessage(err)))
		return
	}

	m, err := h.reconciler.Complete(context.Background(), sess, res, h.store.Provider())
	if err != nil {
		log.Printf("upload: persisting completion for %s failed: %v", sess.ConnectionID, err)
		_ = w.Send(NewErrorEvent(sess.Filename, "Failed to save file metadata"))
		return
	}

	_ = w.Send(NewCompleteEvent(m.ID, m.OriginalName, m.FileURL, m.Size, m.MimeType))
}

// handleDisconnect aborts an unfinished session. A session already in
// finishing is left to resolve naturally: the completion still updates
// persistent state, only the client-visible confirmation is lost. Aborted
// uploads leave no metadata behind, but bytes already streamed are not
// deleted from the provider, so an orphaned partial object may remain.
func (h *SocketHandler) handleDisconnect(connID string) {
	sess, ok := h.registry.Get(connID)
	if !ok {
		return
	}

	if sess.State() == StateFinishing {
		return
	}

	log.Printf("upload: aborting active upload on %s (disconnect)", connID)
	sess.Abort(errors.New("client disconnected"))
	h.registry.Remove(connID, sess)
}

// clientMessage maps an internal failure to the string sent on the error
// event, keeping provider details out of the client channel.
func clientMessage(err error) string {
	var provErr *storage.ProviderError
	if errors.As(err, &provErr) {
		return "Upload failed"
	}
	return err.Error()
}
