package domain

import (
	"time"
)

type SharePermission string

const (
	PermissionView     SharePermission = "view"
	PermissionDownload SharePermission = "download"
)

// Audit actions recorded against a media object. The log is append-only;
// entries are never edited or removed.
const (
	AuditActionUpload        = "upload"
	AuditActionDownload      = "download"
	AuditActionDelete        = "delete"
	AuditActionAccess        = "access"
	AuditActionAccessControl = "access_control"
	AuditActionEditAccess    = "edit_access"
	AuditActionRevokeAccess  = "revoke_access"
	AuditActionRestore       = "restore_media"
)

// Media is the persisted record of one stored file plus its sharing and
// audit state. Size is always the provider-reported final byte count,
// never the client-declared size.
type Media struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	Filename       string    `gorm:"column:filename" json:"filename"`
	OriginalName   string    `gorm:"column:original_name" json:"original_name"`
	MimeType       string    `gorm:"column:mime_type" json:"mime_type"`
	Size           int64     `gorm:"column:size" json:"size"`
	UploadProvider string    `gorm:"column:upload_provider" json:"upload_provider"`
	FileURL        string    `gorm:"column:file_url" json:"-"`
	FileKey        string    `gorm:"column:file_key;uniqueIndex" json:"-"`
	Folder         string    `gorm:"column:folder;default:/" json:"folder"`
	OwnerUserID    int64     `gorm:"column:owner_user_id;index" json:"owner_user_id"`
	OwnerEmail     string    `gorm:"column:owner_email" json:"owner_email"`
	IsPublic       bool      `gorm:"column:is_public" json:"is_public"`
	DownloadCount  int64     `gorm:"column:download_count" json:"download_count"`
	IsDeleted      bool      `gorm:"column:is_deleted;index" json:"is_deleted"`

	SharedWith []ShareGrant `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE" json:"shared_with"`
	AuditLog   []AuditEntry `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE" json:"-"`

	LastAccessed *time.Time `gorm:"column:last_accessed" json:"last_accessed,omitempty"`
	DeletedAt    *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
	UploadedAt   time.Time  `gorm:"column:uploaded_at" json:"uploaded_at"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Media) TableName() string { return "media" }

// ShareGrant gives one email holder time-bounded access to one media
// object. At most one grant exists per (media, email) pair; the email is
// stored lowercase.
type ShareGrant struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	MediaID    string          `gorm:"column:media_id;uniqueIndex:idx_media_share_email" json:"-"`
	Email      string          `gorm:"column:email;uniqueIndex:idx_media_share_email" json:"email"`
	Permission SharePermission `gorm:"column:permission;default:download" json:"permission"`
	SharedAt   time.Time       `gorm:"column:shared_at" json:"shared_at"`
	ExpiresAt  *time.Time      `gorm:"column:expires_at" json:"expires_at,omitempty"`
}

func (ShareGrant) TableName() string { return "media_shares" }

// Expired reports whether the grant has an expiry in the past. An expired
// grant is inert but stays in the table until revoked.
func (g ShareGrant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

// AuditEntry is one append-only access/mutation event. UserID is nil for
// anonymous principals.
type AuditEntry struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	MediaID   string    `gorm:"column:media_id;index" json:"-"`
	Action    string    `gorm:"column:action" json:"action"`
	UserID    *int64    `gorm:"column:user_id" json:"user_id,omitempty"`
	Email     string    `gorm:"column:email" json:"email,omitempty"`
	Metadata  string    `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (AuditEntry) TableName() string { return "media_audit_logs" }

// Principal is the authenticated identity an access decision is evaluated
// against. A nil *Principal means anonymous.
type Principal struct {
	UserID int64
	Email  string
}
