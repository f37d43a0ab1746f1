package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/07Akashh/DriveBackend/internal/domain"
)

func grantFor(email string, expiresAt *time.Time) domain.ShareGrant {
	return domain.ShareGrant{
		Email:      email,
		Permission: domain.PermissionDownload,
		SharedAt:   time.Now().Add(-time.Hour),
		ExpiresAt:  expiresAt,
	}
}

func TestDecide(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	owner := &domain.Principal{UserID: 1, Email: "owner@example.com"}
	friend := &domain.Principal{UserID: 2, Email: "friend@example.com"}
	stranger := &domain.Principal{UserID: 3, Email: "stranger@example.com"}

	tests := []struct {
		name      string
		media     *domain.Media
		principal *domain.Principal
		granted   bool
		role      AccessRole
	}{
		{
			name:      "nil object grants nothing",
			media:     nil,
			principal: owner,
			granted:   false,
			role:      RoleNone,
		},
		{
			name: "owner reaches private object",
			media: &domain.Media{
				OwnerUserID: 1,
				OwnerEmail:  "owner@example.com",
			},
			principal: owner,
			granted:   true,
			role:      RoleOwner,
		},
		{
			name: "owner match is case-insensitive",
			media: &domain.Media{
				OwnerUserID: 1,
				OwnerEmail:  "Owner@Example.COM",
			},
			principal: owner,
			granted:   true,
			role:      RoleOwner,
		},
		{
			name: "grantee with unexpired grant",
			media: &domain.Media{
				OwnerUserID: 1,
				OwnerEmail:  "owner@example.com",
				SharedWith:  []domain.ShareGrant{grantFor("friend@example.com", &future)},
			},
			principal: friend,
			granted:   true,
			role:      RoleShared,
		},
		{
			name: "expired grant is inert",
			media: &domain.Media{
				OwnerUserID: 1,
				OwnerEmail:  "owner@example.com",
				SharedWith:  []domain.ShareGrant{grantFor("friend@example.com", &past)},
			},
			principal: friend,
			granted:   false,
			role:      RoleNone,
		},
		{
			name: "grant without expiry never expires",
			media: &domain.Media{
				OwnerUserID: 1,
				OwnerEmail:  "owner@example.com",
				SharedWith:  []domain.ShareGrant{grantFor("friend@example.com", nil)},
			},
			principal: friend,
			granted:   true,
			role:      RoleShared,
		},
		{
			name: "stranger reaches public object",
			media: &domain.Media{
				OwnerUserID: 1,
				OwnerEmail:  "owner@example.com",
				IsPublic:    true,
			},
			principal: stranger,
			granted:   true,
			role:      RolePublic,
		},
		{
			name: "anonymous reaches public object",
			media: &domain.Media{
				OwnerUserID: 1,
				OwnerEmail:  "owner@example.com",
				IsPublic:    true,
			},
			principal: nil,
			granted:   true,
			role:      RolePublic,
		},
		{
			name: "anonymous cannot reach private object",
			media: &domain.Media{
				OwnerUserID: 1,
				OwnerEmail:  "owner@example.com",
			},
			principal: nil,
			granted:   false,
			role:      RoleNone,
		},
		{
			name: "soft-deleted object grants nothing, even to its owner",
			media: &domain.Media{
				OwnerUserID: 1,
				OwnerEmail:  "owner@example.com",
				IsPublic:    true,
				IsDeleted:   true,
			},
			principal: owner,
			granted:   false,
			role:      RoleNone,
		},
		{
			name: "owner role wins over a grant and the public flag",
			media: &domain.Media{
				OwnerUserID: 1,
				OwnerEmail:  "owner@example.com",
				IsPublic:    true,
				SharedWith:  []domain.ShareGrant{grantFor("owner@example.com", &future)},
			},
			principal: owner,
			granted:   true,
			role:      RoleOwner,
		},
		{
			name: "shared role wins over the public flag",
			media: &domain.Media{
				OwnerUserID: 1,
				OwnerEmail:  "owner@example.com",
				IsPublic:    true,
				SharedWith:  []domain.ShareGrant{grantFor("friend@example.com", &future)},
			},
			principal: friend,
			granted:   true,
			role:      RoleShared,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decideAt(tt.media, tt.principal, now)
			assert.Equal(t, tt.granted, d.Granted)
			assert.Equal(t, tt.role, d.Role)
		})
	}
}

func TestDecideExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	exactly := now
	friend := &domain.Principal{UserID: 2, Email: "friend@example.com"}

	m := &domain.Media{
		OwnerUserID: 1,
		OwnerEmail:  "owner@example.com",
		SharedWith:  []domain.ShareGrant{grantFor("friend@example.com", &exactly)},
	}

	// A grant expiring exactly now is already expired.
	d := decideAt(m, friend, now)
	assert.False(t, d.Granted)

	// One instant earlier it still holds.
	d = decideAt(m, friend, now.Add(-time.Nanosecond))
	assert.True(t, d.Granted)
	assert.Equal(t, RoleShared, d.Role)
}
