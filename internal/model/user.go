package model

import "time"

// Roles a user account can hold.  The role travels inside signed tokens and
// is matched against the permission table, so the values here must stay in
// sync with permission.Defaults().
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a principal record as stored in the `users` table.  Each
// field corresponds to a column.  The json tags are omitted because these
// structs are used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address, stored lowercase.
//  Name         – display name (optional).
//  Phone        – contact phone (optional).
//  Role         – role name (USER or ADMIN).
//  PasswordHash – bcrypt hashed password; never the plaintext.
//  RefreshHash  – bcrypt hash of the live refresh token, nil when logged out.
//                 A user has at most one live refresh hash at a time; it is
//                 overwritten on every signin/refresh and cleared on logout.
//  ParentID     – optional reference to another user (lookup relation only,
//                 no ownership semantics).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	Name         string    // users.name
	Phone        string    // users.phone
	Role         string    // users.role
	PasswordHash string    // users.password_hash
	RefreshHash  *string   // users.refresh_hash (nullable)
	ParentID     *uint64   // users.parent_id (nullable)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// UserRef is the shallow projection embedded when expanding the parent and
// children of a user.  It carries no credential material.
type UserRef struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// ValidRole reports whether role is one of the enumerated role names.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
