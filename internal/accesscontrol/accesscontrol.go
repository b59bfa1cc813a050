// Package accesscontrol holds the pure role and membership predicates.
// Functions here operate only on caller-supplied data and never touch
// storage, so they can be tested in isolation.
package accesscontrol

import (
	"github.com/spec-kit/casework-service/internal/domain"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

var roleRanks = map[domain.Role]int{
	domain.RoleWorker:      0,
	domain.RoleManager:     1,
	domain.RoleAreaManager: 2,
	domain.RoleSystemAdmin: 3,
}

// Rank returns the position of a role in the total order
// WORKER < MANAGER < AREA_MANAGER < SYSTEM_ADMIN. Unknown roles rank
// below WORKER.
func Rank(role domain.Role) int {
	if rank, ok := roleRanks[role]; ok {
		return rank
	}
	return -1
}

// EnsureRole fails unless role is one of the allowed roles.
func EnsureRole(role domain.Role, allowed ...domain.Role) error {
	for _, candidate := range allowed {
		if role == candidate {
			return nil
		}
	}
	return apperrors.NewForbidden("insufficient role")
}

// RoleAtLeast fails unless role ranks at or above minimum.
func RoleAtLeast(role, minimum domain.Role) error {
	if Rank(role) >= Rank(minimum) && Rank(role) >= 0 {
		return nil
	}
	return apperrors.NewForbidden("insufficient role")
}

// CanAccessGroup decides group-level access from the caller's global role
// and memberships. SYSTEM_ADMIN and AREA_MANAGER always pass. MANAGER
// passes with any membership on the target group. Worker-tier callers
// need a membership with in-group role MEMBER; a MANAGER in-group role
// on the same group does not qualify them.
func CanAccessGroup(role domain.Role, memberships []domain.Membership, groupID string) bool {
	switch role {
	case domain.RoleSystemAdmin, domain.RoleAreaManager:
		return true
	case domain.RoleManager:
		for _, m := range memberships {
			if m.GroupID == groupID {
				return true
			}
		}
		return false
	default:
		for _, m := range memberships {
			if m.GroupID == groupID && m.Role == domain.GroupRoleMember {
				return true
			}
		}
		return false
	}
}
