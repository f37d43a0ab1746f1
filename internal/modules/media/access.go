package media

import (
	"strings"
	"time"

	"github.com/07Akashh/DriveBackend/internal/domain"
)

// AccessRole classifies how a principal may reach an object. Roles are
// reported with precedence owner > shared > public; the grant decision
// itself is true if any condition holds.
type AccessRole string

const (
	RoleOwner  AccessRole = "owner"
	RoleShared AccessRole = "shared"
	RolePublic AccessRole = "public"
	RoleNone   AccessRole = "none"
)

// Decision is the result of evaluating one (object, principal) pair.
type Decision struct {
	Granted bool       `json:"granted"`
	Role    AccessRole `json:"role"`
}

// Decide evaluates access for principal on m. A nil principal is
// anonymous and can only reach public objects. Soft-deleted objects grant
// nothing; owners reach them through the trash listing instead.
func Decide(m *domain.Media, principal *domain.Principal) Decision {
	return decideAt(m, principal, time.Now())
}

func decideAt(m *domain.Media, principal *domain.Principal, now time.Time) Decision {
	if m == nil || m.IsDeleted {
		return Decision{Granted: false, Role: RoleNone}
	}

	var email string
	if principal != nil {
		email = strings.ToLower(principal.Email)
	}

	if email != "" && strings.ToLower(m.OwnerEmail) == email {
		return Decision{Granted: true, Role: RoleOwner}
	}

	if email != "" {
		for _, grant := range m.SharedWith {
			if grant.Email == email && !grant.Expired(now) {
				return Decision{Granted: true, Role: RoleShared}
			}
		}
	}

	if m.IsPublic {
		return Decision{Granted: true, Role: RolePublic}
	}

	return Decision{Granted: false, Role: RoleNone}
}
