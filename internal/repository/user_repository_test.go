package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db), mock
}

func userRows(id uint64, email string, refreshHash any) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "email", "name", "phone", "role", "password_hash",
		"refresh_hash", "parent_id", "created_at", "updated_at",
	}).AddRow(id, email, "Ada", "555-0100", "USER", "$2a$hash", refreshHash, nil, now, now)
}

func TestCreate(t *testing.T) {
	t.Run("normalizes email and returns the new id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("INSERT INTO users (email, password_hash, name, phone, role, parent_id) VALUES (?,?,?,?,?,?)").
			WithArgs("ada@example.com", "$2a$hash", "Ada", "", "USER", nil).
			WillReturnResult(sqlmock.NewResult(7, 1))

		id, err := repo.Create(context.Background(), "  Ada@Example.COM ", "$2a$hash", "Ada", "", "USER", nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate key maps to ErrEmailExists", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("INSERT INTO users (email, password_hash, name, phone, role, parent_id) VALUES (?,?,?,?,?,?)").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ada@example.com' for key 'users.email'"})

		_, err := repo.Create(context.Background(), "ada@example.com", "h", "", "", "USER", nil)
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("unrelated error text mentioning 1062 is not a duplicate", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("INSERT INTO users (email, password_hash, name, phone, role, parent_id) VALUES (?,?,?,?,?,?)").
			WillReturnError(errors.New("write tcp 10.6.2.1:1062: connection reset"))

		_, err := repo.Create(context.Background(), "ada@example.com", "h", "", "", "USER", nil)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrEmailExists)
	})
}

func TestGetByEmail(t *testing.T) {
	const query = "SELECT id,email,name,phone,role,password_hash,refresh_hash,parent_id,created_at,updated_at FROM users WHERE email=? LIMIT 1"

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(query).
			WithArgs("ada@example.com").
			WillReturnRows(userRows(7, "ada@example.com", nil))

		u, err := repo.GetByEmail(context.Background(), "Ada@Example.com")
		require.NoError(t, err)
		assert.Equal(t, uint64(7), u.ID)
		assert.Equal(t, "Ada", u.Name)
		assert.Nil(t, u.RefreshHash)
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(query).
			WithArgs("ghost@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRefreshHashRoundTrip(t *testing.T) {
	t.Run("stored hash is returned", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT refresh_hash FROM users WHERE id=? LIMIT 1").
			WithArgs(uint64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"refresh_hash"}).AddRow("stored-hash"))

		hash, ok, err := repo.GetRefreshHash(context.Background(), 7)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "stored-hash", hash)
	})

	t.Run("NULL hash reports absent", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT refresh_hash FROM users WHERE id=? LIMIT 1").
			WithArgs(uint64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"refresh_hash"}).AddRow(nil))

		_, ok, err := repo.GetRefreshHash(context.Background(), 7)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown user maps to ErrNotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT refresh_hash FROM users WHERE id=? LIMIT 1").
			WithArgs(uint64(9)).
			WillReturnError(sql.ErrNoRows)

		_, _, err := repo.GetRefreshHash(context.Background(), 9)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update overwrites unconditionally", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("UPDATE users SET refresh_hash=? WHERE id=?").
			WithArgs("new-hash", uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateRefreshHash(context.Background(), 7, "new-hash"))
	})

	t.Run("clear sets NULL and tolerates no-ops", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("UPDATE users SET refresh_hash=NULL WHERE id=?").
			WithArgs(uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.ClearRefreshHash(context.Background(), 7))
	})
}

func TestUpdate(t *testing.T) {
	t.Run("builds the SET clause from non-nil fields only", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		email := " New@Example.com "
		name := "New Name"
		mock.ExpectExec("UPDATE users SET email=?,name=? WHERE id=?").
			WithArgs("new@example.com", "New Name", uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), 7, UpdateParams{Email: &email, Name: &name})
		assert.NoError(t, err)
	})

	t.Run("no fields is a no-op", func(t *testing.T) {
		repo, _ := newMockRepo(t)
		assert.NoError(t, repo.Update(context.Background(), 7, UpdateParams{}))
	})

	t.Run("zero rows affected maps to ErrNotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		role := "ADMIN"
		mock.ExpectExec("UPDATE users SET role=? WHERE id=?").
			WithArgs("ADMIN", uint64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), 99, UpdateParams{Role: &role})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM users WHERE id=?").
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), 7))
}

func TestChildrenOf(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := userRows(8, "child@example.com", nil)
	mock.ExpectQuery("SELECT id,email,name,phone,role,password_hash,refresh_hash,parent_id,created_at,updated_at FROM users WHERE parent_id=? ORDER BY id").
		WithArgs(uint64(7)).
		WillReturnRows(rows)

	children, err := repo.ChildrenOf(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, uint64(8), children[0].ID)
}
