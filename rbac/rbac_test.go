package rbac_test

import (
	"testing"

	"github.com/nexahq/nexa-auth/rbac"
	"github.com/stretchr/testify/require"
)

func setupResolver() *rbac.Resolver {
	return rbac.NewResolver(
		[]string{"admin-id-1"},
		[]string{"root@example.com"},
		[]string{"mod@example.com"},
	)
}

func TestResolvePlainUser(t *testing.T) {
	roles := setupResolver().Resolve("user-1", "someone@example.com")

	require.False(t, roles.IsAdmin)
	require.True(t, roles.Has(rbac.RoleUser))
	require.False(t, roles.Has(rbac.RoleAdmin))
	require.False(t, roles.Has(rbac.RoleModerator))
}

func TestResolveAdminByID(t *testing.T) {
	roles := setupResolver().Resolve("admin-id-1", "")

	require.True(t, roles.IsAdmin)
	require.True(t, roles.Has(rbac.RoleAdmin))
	require.True(t, roles.Has(rbac.RoleUser))
}

func TestResolveAdminByEmail(t *testing.T) {
	roles := setupResolver().Resolve("user-2", "root@example.com")

	require.True(t, roles.IsAdmin)
	require.True(t, roles.Has(rbac.RoleAdmin))
}

func TestResolveModerator(t *testing.T) {
	roles := setupResolver().Resolve("user-3", "mod@example.com")

	require.False(t, roles.IsAdmin)
	require.True(t, roles.Has(rbac.RoleModerator))
	require.False(t, roles.Has(rbac.RoleAdmin))
}

func TestEmptyEmailNeverMatches(t *testing.T) {
	// A resolver configured with an empty string must not grant roles to
	// principals with no email.
	resolver := rbac.NewResolver(nil, []string{""}, []string{""})
	roles := resolver.Resolve("user-4", "")

	require.False(t, roles.IsAdmin)
	require.False(t, roles.Has(rbac.RoleModerator))
}
