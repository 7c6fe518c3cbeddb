package repository

import (
	"regexp"
	"testing"

	"yatube/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestUserGetByEmailQueryShape(t *testing.T) {
	db, mock := openMockDB(t)
	repo := NewUserRepository(db, nil)

	rows := sqlmock.NewRows([]string{"id", "username", "email", "password"}).
		AddRow(1, "leo", "leo@example.com", "hashed")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WithArgs("leo@example.com", 1).
		WillReturnRows(rows)

	user, err := repo.GetByEmail(testContext(), "leo@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "leo", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailStorageFailure(t *testing.T) {
	db, mock := openMockDB(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	_, err := repo.GetByEmail(testContext(), "leo@example.com")
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
}
