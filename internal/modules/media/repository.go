package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/07Akashh/DriveBackend/internal/domain"
)

// Repository persists media objects, share grants and audit entries.
//
// Every owner-only mutation embeds the ownership predicate in the
// conditional UPDATE/DELETE itself (id + owner + deletion flag), so there
// is no read-then-check window. RowsAffected == 0 maps to ErrNotFound.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, m *domain.Media) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// Get loads one object with its share grants. onlyActive excludes
// soft-deleted objects, which is what every non-trash path wants.
func (r *Repository) Get(ctx context.Context, id string, onlyActive bool) (*domain.Media, error) {
	q := r.db.WithContext(ctx).Preload("SharedWith").Where("id = ?", id)
	if onlyActive {
		q = q.Where("is_deleted = ?", false)
	}

	var m domain.Media
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetOwnedTrashed loads a soft-deleted object owned by ownerID; used by
// restore and permanent delete flows.
func (r *Repository) GetOwnedTrashed(ctx context.Context, id string, ownerID int64) (*domain.Media, error) {
	var m domain.Media
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_user_id = ? AND is_deleted = ?", id, ownerID, true).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SoftDelete marks an owned, active object deleted.
func (r *Repository) SoftDelete(ctx context.Context, id string, ownerID int64) error {
	now := time.Now()
	tx := r.db.WithContext(ctx).Model(&domain.Media{}).
		Where("id = ? AND owner_user_id = ? AND is_deleted = ?", id, ownerID, false).
		Updates(map[string]any{"is_deleted": true, "deleted_at": now})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Restore brings an owned, soft-deleted object back.
func (r *Repository) Restore(ctx context.Context, id string, ownerID int64) error {
	tx := r.db.WithContext(ctx).Model(&domain.Media{}).
		Where("id = ? AND owner_user_id = ? AND is_deleted = ?", id, ownerID, true).
		Updates(map[string]any{"is_deleted": false, "deleted_at": nil})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes the object row and its dependent rows. Grants and
// audit entries go with the object; the audit trail of a permanently
// deleted file has no surviving parent to hang off.
func (r *Repository) HardDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("media_id = ?", id).Delete(&domain.ShareGrant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("media_id = ?", id).Delete(&domain.AuditEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.Media{}).Error
	})
}

// SetPublic flips the public flag on an owned, active object.
func (r *Repository) SetPublic(ctx context.Context, id string, ownerID int64, public bool) error {
	tx := r.db.WithContext(ctx).Model(&domain.Media{}).
		Where("id = ? AND owner_user_id = ? AND is_deleted = ?", id, ownerID, false).
		Update("is_public", public)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertGrant adds or replaces the single grant for (media, email). The
// ownership assertion is itself a conditional write inside the same
// transaction, so a concurrent soft-delete cannot slip between check and
// upsert.
func (r *Repository) UpsertGrant(ctx context.Context, mediaID string, ownerID int64, grant domain.ShareGrant) error {
	grant.MediaID = mediaID
	grant.Email = strings.ToLower(grant.Email)
	if grant.Permission == "" {
		grant.Permission = domain.PermissionDownload
	}
	if grant.SharedAt.IsZero() {
		grant.SharedAt = time.Now()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := assertOwnedActive(tx, mediaID, ownerID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "media_id"}, {Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"permission", "shared_at", "expires_at",
			}),
		}).Create(&grant).Error
	})
}

// UpdateGrant edits an existing grant in place. A missing grant on a
// visible object is ErrGrantNotFound, distinct from ErrNotFound.
func (r *Repository) UpdateGrant(ctx context.Context, mediaID string, ownerID int64, email string, permission domain.SharePermission, expiresAt *time.Time) error {
	email = strings.ToLower(email)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := assertOwnedActive(tx, mediaID, ownerID); err != nil {
			return err
		}
		res := tx.Model(&domain.ShareGrant{}).
			Where("media_id = ? AND email = ?", mediaID, email).
			Updates(map[string]any{"permission": permission, "expires_at": expiresAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrGrantNotFound
		}
		return nil
	})
}

// RemoveGrants deletes every grant for email on an owned, active object
// and reports how many were removed. Zero removals is not an error;
// revoking an absent grant is a no-op.
func (r *Repository) RemoveGrants(ctx context.Context, mediaID string, ownerID int64, email string) (int64, error) {
	email = strings.ToLower(email)

	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := assertOwnedActive(tx, mediaID, ownerID); err != nil {
			return err
		}
		res := tx.Where("media_id = ? AND email = ?", mediaID, email).Delete(&domain.ShareGrant{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}

// AppendAudit inserts one append-only audit row. Callers treat failures
// as log-and-continue; the primary mutation is never rolled back for a
// lost audit entry.
func (r *Repository) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// AuditTrail returns the recorded entries for an object, oldest first.
func (r *Repository) AuditTrail(ctx context.Context, mediaID string) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := r.db.WithContext(ctx).
		Where("media_id = ?", mediaID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// TouchDownload bumps the download counter and access time atomically.
func (r *Repository) TouchDownload(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.Media{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"download_count": gorm.Expr("download_count + ?", 1),
			"last_accessed":  time.Now(),
		}).Error
}

// ListFilter narrows a media listing. Nil/zero fields are ignored.
type ListFilter struct {
	OwnerUserID     *int64
	SharedWithEmail string
	IsDeleted       *bool
	IsPublic        *bool
	MimeType        string
	Filename        string
	Limit           int
	Offset          int
	SortBy          string
	SortOrder       string
}

var sortColumns = map[string]string{
	"filename":    "filename",
	"size":        "size",
	"uploaded_at": "uploaded_at",
	"created_at":  "created_at",
}

// List returns one page of objects plus the unpaginated total. The total
// is computed against the same filter and threaded back explicitly rather
// than through shared state.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]domain.Media, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Media{})

	if f.OwnerUserID != nil {
		q = q.Where("owner_user_id = ?", *f.OwnerUserID)
	}
	if f.SharedWithEmail != "" {
		sub := r.db.Model(&domain.ShareGrant{}).
			Select("media_id").
			Where("email = ?", strings.ToLower(f.SharedWithEmail))
		q = q.Where("id IN (?)", sub)
	}
	if f.IsDeleted != nil {
		q = q.Where("is_deleted = ?", *f.IsDeleted)
	}
	if f.IsPublic != nil {
		q = q.Where("is_public = ?", *f.IsPublic)
	}
	if f.MimeType != "" {
		q = q.Where("mime_type = ?", f.MimeType)
	}
	if f.Filename != "" {
		q = q.Where("LOWER(filename) LIKE ?", "%"+strings.ToLower(f.Filename)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "uploaded_at DESC"
	if col, ok := sortColumns[f.SortBy]; ok {
		dir := "DESC"
		if strings.EqualFold(f.SortOrder, "asc") {
			dir = "ASC"
		}
		order = fmt.Sprintf("%s %s", col, dir)
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var items []domain.Media
	err := q.Preload("SharedWith").
		Order(order).
		Limit(limit).
		Offset(f.Offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// assertOwnedActive is the shared ownership gate for grant mutations: a
// conditional write against the media row that fails with ErrNotFound
// when the object is absent, deleted, or owned by someone else.
func assertOwnedActive(tx *gorm.DB, mediaID string, ownerID int64) error {
	res := tx.Model(&domain.Media{}).
		Where("id = ? AND owner_user_id = ? AND is_deleted = ?", mediaID, ownerID, false).
		Update("updated_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// The pure-Go sqlite driver reports constraint failures as plain
	// strings.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
