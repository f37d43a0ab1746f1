package upload

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/07Akashh/DriveBackend/internal/domain"
	"github.com/07Akashh/DriveBackend/internal/modules/media"
	"github.com/07Akashh/DriveBackend/internal/storage"
)

// UserStore is the slice of the user repository the upload pipeline needs.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// AddStorageUsed must apply the delta atomically in the store.
	AddStorageUsed(ctx context.Context, id int64, delta int64) error
}

// Reconciler turns a provider completion into persistent state: the media
// record, an upload audit entry and the owner's quota usage. These are
// three separate writes with no cross-entity transaction; the media record
// is authoritative and later steps are log-and-continue.
type Reconciler struct {
	media *media.Repository
	users UserStore
}

func NewReconciler(mediaRepo *media.Repository, users UserStore) *Reconciler {
	return &Reconciler{media: mediaRepo, users: users}
}

// Complete persists the finished upload. Size is always the
// provider-reported final byte count, never the client's declared size.
func (r *Reconciler) Complete(ctx context.Context, sess *Session, res *storage.UploadResult, provider string) (*domain.Media, error) {
	now := time.Now()
	m := &domain.Media{
		ID:             uuid.NewString(),
		Filename:       sess.Filename,
		OriginalName:   sess.Filename,
		MimeType:       sess.MimeType,
		Size:           res.Size,
		UploadProvider: provider,
		FileURL:        res.URL,
		FileKey:        res.Key,
		Folder:         sess.Folder,
		OwnerUserID:    sess.UserID,
		OwnerEmail:     sess.OwnerEmail,
		UploadedAt:     now,
	}

	if err := r.media.Create(ctx, m); err != nil {
		return nil, err
	}

	r.auditUpload(ctx, m, sess)

	// Quota bump is a separate persistence step. If it fails the usage
	// counter under-counts; the object itself is already durable, so we
	// log and keep going rather than unwind the upload.
	if err := r.users.AddStorageUsed(ctx, sess.UserID, res.Size); err != nil {
		log.Printf("upload: storage usage update for user %d failed: %v", sess.UserID, err)
	}

	return m, nil
}

func (r *Reconciler) auditUpload(ctx context.Context, m *domain.Media, sess *Session) {
	metadata, _ := json.Marshal(map[string]any{
		"fileSize": m.Size,
		"mimeType": m.MimeType,
		"provider": m.UploadProvider,
	})

	uid := sess.UserID
	entry := &domain.AuditEntry{
		MediaID:   m.ID,
		Action:    domain.AuditActionUpload,
		UserID:    &uid,
		Email:     sess.OwnerEmail,
		Metadata:  string(metadata),
		CreatedAt: time.Now(),
	}
	if err := r.media.AppendAudit(ctx, entry); err != nil {
		log.Printf("upload: audit entry for %s failed: %v", m.ID, err)
	}
}
