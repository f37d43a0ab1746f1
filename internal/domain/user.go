package domain

import "time"

// DefaultStorageLimit is the per-user quota applied at registration.
const DefaultStorageLimit int64 = 15 * 1024 * 1024 * 1024 // 15 GiB

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email" validate:"required,email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	StorageUsed  int64      `json:"storage_used"`
	StorageLimit int64      `json:"storage_limit"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	IsDeleted    bool       `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasStorageSpace reports whether an upload of the declared size would fit
// in the user's remaining quota.
func (u *User) HasStorageSpace(declaredSize int64) bool {
	return u.StorageUsed+declaredSize <= u.StorageLimit
}
