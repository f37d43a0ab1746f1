package auth

import "github.com/07Akashh/DriveBackend/internal/domain"

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserPublic is the account shape returned to clients. Storage figures are
// included so the frontend can render the quota bar without a second call.
type UserPublic struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	StorageUsed  int64  `json:"storage_used"`
	StorageLimit int64  `json:"storage_limit"`
}

func toUserPublic(u *domain.User) UserPublic {
	return UserPublic{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		AvatarURL:    u.AvatarURL,
		StorageUsed:  u.StorageUsed,
		StorageLimit: u.StorageLimit,
	}
}
