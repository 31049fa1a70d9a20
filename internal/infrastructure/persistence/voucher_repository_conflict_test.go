package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/simatecve/reten-facil-sub000/internal/domain/retention"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// newMockVoucherRepository mocks the SQL connection so tests can script
// the counter race that an in-memory database cannot produce.
func newMockVoucherRepository(t *testing.T) (*GormVoucherRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormVoucherRepository(gormDB), mock, mockDB
}

func expectCompanyRead(mock sqlmock.Sqlmock, companyID, ownerID uuid.UUID, lastCorrelation int64) {
	rows := sqlmock.NewRows([]string{"id", "owner_id", "name", "rif", "fiscal_address", "default_retention_rate", "last_correlation_number"}).
		AddRow(companyID, ownerID, "Inversiones Oriente C.A.", "J-12345678-9", "Av. Bolivar, Caracas", decimal.NewFromInt(75), lastCorrelation)
	mock.ExpectQuery(`SELECT \* FROM "companies" WHERE id = \$1 ORDER BY .* LIMIT .*`).
		WithArgs(companyID, 1).
		WillReturnRows(rows)
}

func expectCounterAdvance(mock sqlmock.Sqlmock, rowsAffected int64) {
	mock.ExpectExec(`UPDATE "companies" SET .* WHERE id = \$\d+ AND last_correlation_number = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, rowsAffected))
}

func buildConflictTestVoucher(t *testing.T, ownerID, companyID uuid.UUID) retention.VoucherFactory {
	t.Helper()

	return func(correlation int64) (*retention.RetentionVoucher, error) {
		return retention.NewRetentionVoucher(
			ownerID, companyID,
			retention.AgentSnapshot{
				Name:          "Inversiones Oriente C.A.",
				RIF:           "J-12345678-9",
				FiscalAddress: "Av. Bolivar, Caracas",
				RetentionRate: decimal.NewFromInt(75),
			},
			retention.SubjectSnapshot{Name: "Distribuidora Zulia C.A.", RIF: "J-98765432-1"},
			correlation,
			time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
			[]retention.InvoiceItem{testInvoiceItem(t)},
		)
	}
}

func TestGormVoucherRepository_CreateWithSequence_RetriesLostCounterRace(t *testing.T) {
	repo, mock, mockDB := newMockVoucherRepository(t)
	defer mockDB.Close()

	companyID := uuid.New()
	ownerID := uuid.New()

	// First attempt reads counter 7, but another issuance advances it
	// before the conditional update lands, so zero rows change.
	mock.ExpectBegin()
	expectCompanyRead(mock, companyID, ownerID, 7)
	expectCounterAdvance(mock, 0)
	mock.ExpectRollback()

	// Retry re-reads the advanced counter and wins the update.
	mock.ExpectBegin()
	expectCompanyRead(mock, companyID, ownerID, 8)
	expectCounterAdvance(mock, 1)
	mock.ExpectExec(`INSERT INTO "retention_vouchers"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	voucher, err := repo.CreateWithSequence(context.Background(), companyID, buildConflictTestVoucher(t, ownerID, companyID))

	require.NoError(t, err)
	assert.Equal(t, int64(9), voucher.Correlation)
	assert.Equal(t, "20250300000009", voucher.VoucherNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormVoucherRepository_CreateWithSequence_GivesUpAfterRepeatedRaces(t *testing.T) {
	repo, mock, mockDB := newMockVoucherRepository(t)
	defer mockDB.Close()

	companyID := uuid.New()
	ownerID := uuid.New()

	for i := 0; i < sequenceAllocationAttempts; i++ {
		mock.ExpectBegin()
		expectCompanyRead(mock, companyID, ownerID, 7)
		expectCounterAdvance(mock, 0)
		mock.ExpectRollback()
	}

	voucher, err := repo.CreateWithSequence(context.Background(), companyID, buildConflictTestVoucher(t, ownerID, companyID))

	assert.Nil(t, voucher)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormVoucherRepository_CreateWithSequence_FailedInsertRollsBackCounter(t *testing.T) {
	repo, mock, mockDB := newMockVoucherRepository(t)
	defer mockDB.Close()

	companyID := uuid.New()
	ownerID := uuid.New()

	mock.ExpectBegin()
	expectCompanyRead(mock, companyID, ownerID, 3)
	expectCounterAdvance(mock, 1)
	mock.ExpectExec(`INSERT INTO "retention_vouchers"`).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	voucher, err := repo.CreateWithSequence(context.Background(), companyID, buildConflictTestVoucher(t, ownerID, companyID))

	assert.Nil(t, voucher)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
