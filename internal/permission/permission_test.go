package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	m := New(map[string][]string{
		"ADMIN": {"mock_permission:own", "mock_permission:any"},
		"USER":  {"mock_permission:own"},
	})

	assert.True(t, m.Can("ADMIN", "mock_permission:any"))
	assert.True(t, m.Can("USER", "mock_permission:own"))
	assert.False(t, m.Can("USER", "mock_permission:any"))
	assert.False(t, m.Can("GHOST", "mock_permission:own"))
}

func TestIsAllowed(t *testing.T) {
	m := New(map[string][]string{
		"ADMIN": {"mock_permission:own", "mock_permission:any"},
		"USER":  {"mock_permission:own"},
	})

	tests := []struct {
		name     string
		role     string
		required []string
		want     bool
	}{
		{"empty requirement always passes", "USER", nil, true},
		{"empty requirement passes for unknown role", "GHOST", nil, true},
		{"user lacks required action", "USER", []string{"read_users:any"}, false},
		{"admin holds required action", "ADMIN", []string{"mock_permission:any"}, true},
		{"any-of semantics", "USER", []string{"read_users:any", "mock_permission:own"}, true},
		{"unknown role fails closed", "GHOST", []string{"mock_permission:own"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.IsAllowed(tt.role, tt.required))
		})
	}
}

func TestModelCopiesInput(t *testing.T) {
	table := map[string][]string{"USER": {"read_users:own"}}
	m := New(table)

	// Mutating the source table after construction must not leak in.
	table["USER"] = append(table["USER"], "delete_users:any")
	delete(table, "USER")

	assert.True(t, m.Can("USER", "read_users:own"))
	assert.False(t, m.Can("USER", "delete_users:any"))
}

func TestDefaultsRoleOrdering(t *testing.T) {
	m := New(Defaults())

	// ADMIN holds the broad ":any" scopes, USER only ":own" on itself.
	assert.True(t, m.Can("ADMIN", "read_users:any"))
	assert.True(t, m.Can("ADMIN", "delete_users:any"))
	assert.True(t, m.Can("USER", "read_users:own"))
	assert.False(t, m.Can("USER", "read_users:any"))
	assert.False(t, m.Can("USER", "delete_users:own"))
}
