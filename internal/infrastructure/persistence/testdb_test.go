package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/identity"
	"github.com/schoolpay/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, time.May, 10, 12, 0, 0, 0, time.UTC)

// setupTestDB opens an in-memory SQLite database with every table migrated.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// seedUser saves a user with roles and, when careerID is set, a profile
func seedUser(t *testing.T, repo *GormUserRepository, name string, roles []string, careerID uuid.UUID, semester int) *identity.User {
	t.Helper()
	u, err := identity.NewUser(name, name+"@school.test", roles, testNow)
	require.NoError(t, err)
	if careerID != uuid.Nil {
		require.NoError(t, u.Enroll(careerID, semester, testNow))
	}
	require.NoError(t, repo.Save(t.Context(), u))
	return u
}
