package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/simatecve/reten-facil-sub000/internal/domain/identity"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

func setupUserTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&identity.User{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *identity.User {
	t.Helper()

	user, err := identity.NewUser(email, "secreto123", "Maria", "Gonzalez", "0414-5551234")
	require.NoError(t, err)
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestGormUserRepository_FindByEmail(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)

	seeded := seedUser(t, db, "maria@example.com")

	found, err := repo.FindByEmail(context.Background(), "  MARIA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = repo.FindByEmail(context.Background(), "nadie@example.com")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormUserRepository_ExistsByEmail(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)

	seedUser(t, db, "maria@example.com")

	exists, err := repo.ExistsByEmail(context.Background(), "maria@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(context.Background(), "otra@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormUserRepository_FindOperators(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)

	parent := seedUser(t, db, "duena@example.com")

	operator, err := identity.NewOperator(parent.ID, "asistente@example.com", "secreto123", "Pedro", "Lopez", "")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), operator))

	// Another account's operator must not leak in
	other := seedUser(t, db, "otra@example.com")
	foreign, err := identity.NewOperator(other.ID, "ajeno@example.com", "secreto123", "Luis", "Mora", "")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), foreign))

	operators, err := repo.FindOperators(context.Background(), parent.ID)
	require.NoError(t, err)
	require.Len(t, operators, 1)
	assert.Equal(t, operator.ID, operators[0].ID)
}

func TestGormUserRepository_Delete(t *testing.T) {
	db := setupUserTestDB(t)
	repo := NewGormUserRepository(db)

	user := seedUser(t, db, "maria@example.com")

	require.NoError(t, repo.Delete(context.Background(), user.ID))
	assert.ErrorIs(t, repo.Delete(context.Background(), user.ID), shared.ErrNotFound)

	_, err := repo.FindByID(context.Background(), uuid.Nil)
	assert.Error(t, err)
}
