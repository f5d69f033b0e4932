package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/agroview/focal-api/internal/model"
)

// UserRepo persists principals in the 'users' table.  Password and refresh
// hashes are produced by the credential store; this layer never sees a
// plaintext secret.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,name,phone,role,password_hash,refresh_hash,parent_id,created_at,updated_at"

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash, name, phone, role string, parentID *uint64) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, phone, role, parent_id) VALUES (?,?,?,?,?,?)",
		email, passwordHash, name, phone, role, parentID)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns every user ordered by id.  Parent and children references are
// resolved in memory from the loaded set; the relation is a plain lookup, so
// one pass over the result is enough.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ChildrenOf returns the users whose parent_id points at id, ordered by id.
func (r *UserRepo) ChildrenOf(ctx context.Context, id uint64) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE parent_id=? ORDER BY id", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateParams carries the mutable profile fields.  Nil pointers leave the
// corresponding column untouched.
type UpdateParams struct {
	Email        *string
	Name         *string
	Phone        *string
	Role         *string
	PasswordHash *string
	ParentID     *uint64
}

// Update applies the non-nil fields of p to the user row.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UpdateParams) error {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	if p.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*p.Email)))
	}
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *p.Name)
	}
	if p.Phone != nil {
		sets = append(sets, "phone=?")
		args = append(args, *p.Phone)
	}
	if p.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, *p.Role)
	}
	if p.PasswordHash != nil {
		sets = append(sets, "password_hash=?")
		args = append(args, *p.PasswordHash)
	}
	if p.ParentID != nil {
		sets = append(sets, "parent_id=?")
		args = append(args, *p.ParentID)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	return affectedOrNotFound(res)
}

// Delete removes the user row.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// UpdateRefreshHash upserts the stored refresh-token hash for a user.  The
// previous hash is overwritten unconditionally: rotation, not accumulation.
func (r *UserRepo) UpdateRefreshHash(ctx context.Context, id uint64, hash string) error {
	// Rows-affected is not checked: MySQL reports 0 for a no-op write, which
	// would make a repeated store of the same hash look like a missing user.
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_hash=? WHERE id=?", hash, id)
	return err
}

// ClearRefreshHash sets the stored refresh-token hash to NULL.  Clearing an
// already-absent hash is not an error, so logout stays idempotent.
func (r *UserRepo) ClearRefreshHash(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_hash=NULL WHERE id=?", id)
	return err
}

// GetRefreshHash returns the stored refresh-token hash for a user.  The
// second return value is false when the user has no live hash (logged out).
func (r *UserRepo) GetRefreshHash(ctx context.Context, id uint64) (string, bool, error) {
	var hash sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT refresh_hash FROM users WHERE id=? LIMIT 1", id).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, ErrNotFound
		}
		return "", false, err
	}
	if !hash.Valid {
		return "", false, nil
	}
	return hash.String, true, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface{ Scan(dest ...any) error }

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func scanUser(s scanner) (model.User, error) {
	var (
		u        model.User
		name     sql.NullString
		phone    sql.NullString
		refresh  sql.NullString
		parentID sql.NullInt64
	)
	err := s.Scan(&u.ID, &u.Email, &name, &phone, &u.Role, &u.PasswordHash,
		&refresh, &parentID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Name = name.String
	u.Phone = phone.String
	if refresh.Valid {
		v := refresh.String
		u.RefreshHash = &v
	}
	if parentID.Valid {
		v := uint64(parentID.Int64)
		u.ParentID = &v
	}
	return u, nil
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKey detects MySQL error 1062 (duplicate entry for a unique key).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
