package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/07Akashh/DriveBackend/internal/domain"
	"github.com/07Akashh/DriveBackend/internal/storage"
)

// Service implements read, sharing and lifecycle operations over stored
// media. Authorization is evaluated through Decide for reads and through
// ownership-conditional repository mutations for writes; the service never
// formats transport responses.
type Service struct {
	repo  *Repository
	store storage.Storage
}

func NewService(repo *Repository, store storage.Storage) *Service {
	return &Service{repo: repo, store: store}
}

// DownloadInfo is what a transport adapter needs to serve the file bytes.
type DownloadInfo struct {
	FileURL      string
	MimeType     string
	OriginalName string
	Size         int64
}

// AccessReport answers "can this principal reach this object, and as what".
type AccessReport struct {
	HasAccess  bool          `json:"hasAccess"`
	AccessType AccessRole    `json:"accessType"`
	Media      *domain.Media `json:"media"`
}

// Get returns download info for an accessible object and records an
// `access` audit entry.
func (s *Service) Get(ctx context.Context, id string, principal *domain.Principal) (*DownloadInfo, error) {
	m, err := s.repo.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}

	if d := Decide(m, principal); !d.Granted {
		return nil, ErrAccessDenied
	}

	s.audit(ctx, m.ID, domain.AuditActionAccess, principal, nil)

	return &DownloadInfo{
		FileURL:      m.FileURL,
		MimeType:     m.MimeType,
		OriginalName: m.OriginalName,
		Size:         m.Size,
	}, nil
}

// Download is Get plus the download bookkeeping: the counter and access
// time are bumped atomically and a `download` entry is appended.
func (s *Service) Download(ctx context.Context, id string, principal *domain.Principal) (*DownloadInfo, error) {
	m, err := s.repo.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}

	if d := Decide(m, principal); !d.Granted {
		return nil, ErrAccessDenied
	}

	if err := s.repo.TouchDownload(ctx, m.ID); err != nil {
		log.Printf("media: download counter for %s failed: %v", m.ID, err)
	}
	s.audit(ctx, m.ID, domain.AuditActionDownload, principal, map[string]any{
		"size": m.Size, "mimeType": m.MimeType,
	})

	return &DownloadInfo{
		FileURL:      m.FileURL,
		MimeType:     m.MimeType,
		OriginalName: m.OriginalName,
		Size:         m.Size,
	}, nil
}

// Stream resolves the provider URL for inline playback. No audit entry;
// players issue many range requests for one viewing.
func (s *Service) Stream(ctx context.Context, id string, principal *domain.Principal) (*DownloadInfo, error) {
	m, err := s.repo.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}

	if d := Decide(m, principal); !d.Granted {
		return nil, ErrAccessDenied
	}

	return &DownloadInfo{
		FileURL:      m.FileURL,
		MimeType:     m.MimeType,
		OriginalName: m.OriginalName,
		Size:         m.Size,
	}, nil
}

// Details reports the principal's access level along with the object.
func (s *Service) Details(ctx context.Context, id string, principal *domain.Principal) (*AccessReport, error) {
	m, err := s.repo.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}

	d := Decide(m, principal)
	if !d.Granted {
		return nil, ErrAccessDenied
	}

	return &AccessReport{HasAccess: true, AccessType: d.Role, Media: m}, nil
}

// Delete soft-deletes an owned object. Deletion revokes shared and public
// access implicitly since every non-trash read filters on is_deleted.
func (s *Service) Delete(ctx context.Context, id string, principal *domain.Principal) error {
	if err := s.repo.SoftDelete(ctx, id, principal.UserID); err != nil {
		return err
	}
	s.audit(ctx, id, domain.AuditActionDelete, principal, nil)
	return nil
}

// Restore brings a soft-deleted object back from the trash.
func (s *Service) Restore(ctx context.Context, id string, principal *domain.Principal) (*domain.Media, error) {
	if err := s.repo.Restore(ctx, id, principal.UserID); err != nil {
		return nil, err
	}
	s.audit(ctx, id, domain.AuditActionRestore, principal, map[string]any{"mediaId": id})
	return s.repo.Get(ctx, id, true)
}

// PermanentDelete removes a trashed object from the provider and then the
// database. Only trashed objects qualify; an active object must be
// soft-deleted first.
func (s *Service) PermanentDelete(ctx context.Context, id string, principal *domain.Principal) error {
	m, err := s.repo.GetOwnedTrashed(ctx, id, principal.UserID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, m.FileKey); err != nil {
		return err
	}
	return s.repo.HardDelete(ctx, m.ID)
}

// AccessUpdate describes one sharing change: a per-email grant and/or a
// public-flag flip.
type AccessUpdate struct {
	Email      string
	Permission domain.SharePermission
	ExpiresAt  *time.Time
	IsPublic   *bool
}

// ControlAccess applies a sharing change to an owned object. The grant is
// an upsert keyed by lowercase email; an existing grant's permission,
// expiry and shared-at are replaced in place.
func (s *Service) ControlAccess(ctx context.Context, id string, principal *domain.Principal, upd AccessUpdate) error {
	if upd.IsPublic != nil {
		if err := s.repo.SetPublic(ctx, id, principal.UserID, *upd.IsPublic); err != nil {
			return err
		}
	}

	if upd.Email != "" {
		grant := domain.ShareGrant{
			Email:      strings.ToLower(upd.Email),
			Permission: upd.Permission,
			SharedAt:   time.Now(),
			ExpiresAt:  upd.ExpiresAt,
		}
		if err := s.repo.UpsertGrant(ctx, id, principal.UserID, grant); err != nil {
			return err
		}
	}

	s.audit(ctx, id, domain.AuditActionAccessControl, principal, auditMetadata(upd))
	return nil
}

// EditAccess updates an existing grant; a missing grant is
// ErrGrantNotFound, distinct from a missing object.
func (s *Service) EditAccess(ctx context.Context, id string, principal *domain.Principal, email string, permission domain.SharePermission, expiresAt *time.Time) error {
	if err := s.repo.UpdateGrant(ctx, id, principal.UserID, email, permission, expiresAt); err != nil {
		return err
	}
	s.audit(ctx, id, domain.AuditActionEditAccess, principal, map[string]any{
		"email": strings.ToLower(email), "permission": permission,
	})
	return nil
}

// RevokeAccess removes every grant for the email. Revoking an absent
// grant succeeds as a no-op.
func (s *Service) RevokeAccess(ctx context.Context, id string, principal *domain.Principal, email string) error {
	removed, err := s.repo.RemoveGrants(ctx, id, principal.UserID, email)
	if err != nil {
		return err
	}
	s.audit(ctx, id, domain.AuditActionRevokeAccess, principal, map[string]any{
		"email": strings.ToLower(email), "removed": removed,
	})
	return nil
}

// ListQuery is the transport-agnostic listing request.
type ListQuery struct {
	Filename  string
	MimeType  string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// ListResult threads the total through the return value instead of any
// shared state, so concurrent listings cannot clobber each other.
type ListResult struct {
	Total int64          `json:"total"`
	Media []domain.Media `json:"media"`
}

func (s *Service) ListMine(ctx context.Context, ownerID int64, q ListQuery) (*ListResult, error) {
	deleted := false
	return s.list(ctx, ListFilter{
		OwnerUserID: &ownerID,
		IsDeleted:   &deleted,
		Filename:    q.Filename,
		MimeType:    q.MimeType,
		Limit:       q.Limit,
		Offset:      q.Offset,
		SortBy:      q.SortBy,
		SortOrder:   q.SortOrder,
	})
}

func (s *Service) ListTrashed(ctx context.Context, ownerID int64, q ListQuery) (*ListResult, error) {
	deleted := true
	return s.list(ctx, ListFilter{
		OwnerUserID: &ownerID,
		IsDeleted:   &deleted,
		Filename:    q.Filename,
		MimeType:    q.MimeType,
		Limit:       q.Limit,
		Offset:      q.Offset,
		SortBy:      q.SortBy,
		SortOrder:   q.SortOrder,
	})
}

func (s *Service) ListSharedWithMe(ctx context.Context, email string, q ListQuery) (*ListResult, error) {
	deleted := false
	return s.list(ctx, ListFilter{
		SharedWithEmail: email,
		IsDeleted:       &deleted,
		Filename:        q.Filename,
		MimeType:        q.MimeType,
		Limit:           q.Limit,
		Offset:          q.Offset,
		SortBy:          q.SortBy,
		SortOrder:       q.SortOrder,
	})
}

func (s *Service) list(ctx context.Context, f ListFilter) (*ListResult, error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ListResult{Total: total, Media: items}, nil
}

// AuditTrail exposes the append-only log of an owned object.
func (s *Service) AuditTrail(ctx context.Context, id string, principal *domain.Principal) ([]domain.AuditEntry, error) {
	m, err := s.repo.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if m.OwnerUserID != principal.UserID {
		return nil, ErrAccessDenied
	}
	return s.repo.AuditTrail(ctx, m.ID)
}

// audit appends an entry after the primary mutation. Failures are logged
// and never surfaced: a lost audit row must not roll back or block the
// operation it describes.
func (s *Service) audit(ctx context.Context, mediaID, action string, principal *domain.Principal, metadata map[string]any) {
	entry := &domain.AuditEntry{
		MediaID:   mediaID,
		Action:    action,
		CreatedAt: time.Now(),
	}
	if principal != nil {
		uid := principal.UserID
		entry.UserID = &uid
		entry.Email = strings.ToLower(principal.Email)
	}
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			log.Printf("media: audit metadata for %s: %v", mediaID, err)
		} else {
			entry.Metadata = string(b)
		}
	}

	if err := s.repo.AppendAudit(ctx, entry); err != nil {
		log.Printf("media: audit %s for %s failed: %v", action, mediaID, err)
	}
}

func auditMetadata(upd AccessUpdate) map[string]any {
	m := map[string]any{}
	if upd.Email != "" {
		m["email"] = strings.ToLower(upd.Email)
		m["permission"] = upd.Permission
		if upd.ExpiresAt != nil {
			m["expiresAt"] = upd.ExpiresAt.Format(time.RFC3339)
		}
	}
	if upd.IsPublic != nil {
		m["isPublic"] = fmt.Sprintf("%t", *upd.IsPublic)
	}
	return m
}
