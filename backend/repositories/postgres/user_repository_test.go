package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthscope/symptom-checker/backend/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return &DB{DB: mockDB, logger: zap.NewNop()}, mock
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	user := models.NewUser("jane@example.com", "Jane Doe", "hashed-password")

	mock.ExpectExec("INSERT INTO users").
		WithArgs(user.ID, user.Email, user.FullName, user.PasswordHash, user.CreatedAt, user.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	t.Run("found", func(t *testing.T) {
		user := models.NewUser("jane@example.com", "Jane Doe", "hashed-password")

		rows := sqlmock.NewRows([]string{"id", "email", "full_name", "password_hash", "created_at", "updated_at"}).
			AddRow(user.ID, user.Email, user.FullName, user.PasswordHash, user.CreatedAt, user.UpdatedAt)

		mock.ExpectQuery("SELECT id, email, full_name, password_hash").
			WithArgs("jane@example.com").
			WillReturnRows(rows)

		got, err := repo.GetByEmail(context.Background(), "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "jane@example.com", got.Email)
		assert.Equal(t, "Jane Doe", got.FullName)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, full_name, password_hash").
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "password_hash", "created_at", "updated_at"}))

		_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "user not found")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	user := models.NewUser("jane@example.com", "Jane Doe", "hashed-password")

	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "password_hash", "created_at", "updated_at"}).
		AddRow(user.ID, user.Email, user.FullName, user.PasswordHash, user.CreatedAt, user.UpdatedAt)

	mock.ExpectQuery("SELECT id, email, full_name, password_hash").
		WithArgs(user.ID).
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	user := models.NewUser("jane@example.com", "Jane Doe", "hashed-password")
	user.FullName = "Jane A. Doe"
	user.UpdatedAt = time.Now().UTC()

	t.Run("updates existing user", func(t *testing.T) {
		mock.ExpectExec("UPDATE users").
			WithArgs(user.ID, user.Email, user.FullName, user.PasswordHash, user.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), user)
		require.NoError(t, err)
	})

	t.Run("missing user", func(t *testing.T) {
		mock.ExpectExec("UPDATE users").
			WithArgs(user.ID, user.Email, user.FullName, user.PasswordHash, user.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), user)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "user not found")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	user := models.NewUser("jane@example.com", "Jane Doe", "hashed-password")

	t.Run("deletes existing user", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM users").
			WithArgs(user.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(context.Background(), user.ID)
		require.NoError(t, err)
	})

	t.Run("missing user", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM users").
			WithArgs(user.ID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), user.ID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "user not found")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
