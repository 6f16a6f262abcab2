// Package roles defines publication membership roles and the permission
// predicates gating publication mutations.
package roles

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleWriter Role = "writer"
)

// RoleNone is the absent role: a user with no membership row. It is never
// in any allowed set.
const RoleNone Role = ""

func Valid(role Role) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleEditor, RoleWriter:
		return true
	default:
		return false
	}
}

// Normalize maps a stored role string onto the closed role set. Anything
// outside the set becomes the absent role, which fails every predicate.
func Normalize(role string) Role {
	if Valid(Role(role)) {
		return Role(role)
	}
	return RoleNone
}

// Has reports whether role is in the allowed set. The absent role fails
// every check.
func Has(role Role, allowed ...Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

func IsMember(role Role) bool {
	return Has(role, RoleOwner, RoleAdmin, RoleEditor, RoleWriter)
}

func IsEditor(role Role) bool {
	return Has(role, RoleEditor)
}

func IsAdmin(role Role) bool {
	return Has(role, RoleOwner, RoleAdmin)
}

func IsOwner(role Role) bool {
	return Has(role, RoleOwner)
}

func CanWriteStories(role Role) bool {
	return Has(role, RoleOwner, RoleAdmin, RoleEditor, RoleWriter)
}

func CanEditStories(role Role) bool {
	return Has(role, RoleOwner, RoleAdmin, RoleEditor)
}

func CanSeeInvitations(role Role) bool {
	return Has(role, RoleOwner, RoleAdmin)
}

func CanUpdatePublication(role Role) bool {
	return Has(role, RoleOwner, RoleAdmin)
}
