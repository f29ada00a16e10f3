package migrate

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchemaSQLite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ClosedMerchant`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ID INTEGER PRIMARY KEY AUTOINCREMENT`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_logging_merchant`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(db, "sqlite3"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`LastUpdated TIMESTAMPTZ`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ID BIGSERIAL PRIMARY KEY`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(db, "postgres"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
