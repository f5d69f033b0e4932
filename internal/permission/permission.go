// Package permission answers "may role R perform action A".  Actions are
// identifiers of the form resource_action:scope (e.g. "read_users:any").
// The table is built once at startup and never mutated afterwards, so the
// model is safe for unsynchronized concurrent reads.
package permission

// Model maps each role to its permitted-action set.  Construct with New;
// the table is copied so later changes to the input cannot leak in.
type Model struct {
	byRole map[string]map[string]struct{}
}

// New builds an immutable Model from a role -> actions table.
func New(table map[string][]string) *Model {
	byRole := make(map[string]map[string]struct{}, len(table))
	for role, actions := range table {
		set := make(map[string]struct{}, len(actions))
		for _, a := range actions {
			set[a] = struct{}{}
		}
		byRole[role] = set
	}
	return &Model{byRole: byRole}
}

// Can reports whether the role holds the single action.  Unknown roles hold
// nothing: the check fails closed.
func (m *Model) Can(role, action string) bool {
	set, ok := m.byRole[role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// IsAllowed reports whether the role holds at least one of the required
// actions.  An empty requirement list means the route declares no
// restriction and always passes.
func (m *Model) IsAllowed(role string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set, ok := m.byRole[role]
	if !ok {
		return false
	}
	for _, a := range required {
		if _, ok := set[a]; ok {
			return true
		}
	}
	return false
}

// Defaults returns the production permission table.  ADMIN holds the broad
// ":any" scopes, USER only the ":own" scopes on its own profile.  The
// table is plain configuration: deployments needing a different split
// construct the Model from their own table.
func Defaults() map[string][]string {
	return map[string][]string{
		"ADMIN": {
			"create_users:own", "create_users:any",
			"read_users:own", "read_users:any",
			"update_users:own", "update_users:any",
			"delete_users:own", "delete_users:any",
		},
		"USER": {
			"read_users:own",
			"update_users:own",
		},
	}
}
