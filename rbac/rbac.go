// Package rbac maps a resolved principal to a role set from static
// configuration. Roles are recomputed on every request so configuration
// changes take effect without invalidation logic.
package rbac

// RoleType represents a role granted to a principal
type RoleType string

const (
	RoleAdmin     RoleType = "admin"
	RoleModerator RoleType = "moderator"
	RoleUser      RoleType = "user"
)

// RoleSet is the computed role membership for one request.
type RoleSet struct {
	Roles   []RoleType
	IsAdmin bool
}

// Has reports whether the set contains the role.
func (rs RoleSet) Has(role RoleType) bool {
	for _, r := range rs.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Resolver holds the static allow-lists. Membership tests are pure functions
// of the lists and the principal - no per-request caching.
type Resolver struct {
	adminIDs        map[string]struct{}
	adminEmails     map[string]struct{}
	moderatorEmails map[string]struct{}
}

func NewResolver(adminIDs, adminEmails, moderatorEmails []string) *Resolver {
	return &Resolver{
		adminIDs:        toSet(adminIDs),
		adminEmails:     toSet(adminEmails),
		moderatorEmails: toSet(moderatorEmails),
	}
}

// Resolve computes the role set for a user id and email.
func (r *Resolver) Resolve(userID, email string) RoleSet {
	roles := []RoleType{RoleUser}
	isAdmin := false

	if _, ok := r.adminIDs[userID]; ok {
		isAdmin = true
	}
	if _, ok := r.adminEmails[email]; email != "" && ok {
		isAdmin = true
	}
	if isAdmin {
		roles = append(roles, RoleAdmin)
	}

	if _, ok := r.moderatorEmails[email]; email != "" && ok {
		roles = append(roles, RoleModerator)
	}

	return RoleSet{Roles: roles, IsAdmin: isAdmin}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
