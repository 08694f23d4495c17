package models

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mmdatafocus/mailroom_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return db, mock
}

func TestMarkCustomerSyncedClaimsUnsyncedRow(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `customers` SET .*`external_id`=.* WHERE id = \\? AND external_id IS NULL").
		WithArgs("QB-58", time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC), sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	at := time.Date(2024, 3, 15, 12, 0, 0, 0, time.FixedZone("AST", -4*3600))
	if err := MarkCustomerSynced(context.Background(), db, "c1", " QB-58 ", at); err != nil {
		t.Fatalf("MarkCustomerSynced: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkInvoiceSyncedReportsLostClaim(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `invoices` SET .* WHERE id = \\? AND external_id IS NULL").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := MarkInvoiceSynced(context.Background(), db, "i1", "901", time.Now())
	if !errors.Is(err, ErrAlreadyReconciled) {
		t.Fatalf("expected ErrAlreadyReconciled, got %v", err)
	}
}

func TestClaimRejectsEmptyExternalId(t *testing.T) {
	db, mock := newMockDB(t)
	if err := MarkCustomerSynced(context.Background(), db, "c1", "  ", time.Now()); !errors.Is(err, ErrEmptyExternalId) {
		t.Fatalf("expected ErrEmptyExternalId, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no SQL expected: %v", err)
	}
}

func TestGetUnsyncedCustomersFiltersLedger(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `customers` WHERE external_id IS NULL ORDER BY created_at LIMIT")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "mailbox_number"}).
			AddRow("c1", "a@example.com", "MB-1").
			AddRow("c2", "b@example.com", "MB-2"))

	customers, err := GetUnsyncedCustomers(context.Background(), db, 50)
	if err != nil {
		t.Fatalf("GetUnsyncedCustomers: %v", err)
	}
	if len(customers) != 2 || customers[0].Email != "a@example.com" || customers[1].IsReconciled() {
		t.Fatalf("unexpected customers: %+v", customers)
	}
}

func TestCustomerExistsByExternalId(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `customers` WHERE external_id = ?")).
		WithArgs("QB-7").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	exists, err := CustomerExistsByExternalId(context.Background(), db, "QB-7")
	if err != nil || !exists {
		t.Fatalf("exists=%v err=%v", exists, err)
	}
}

func TestGetAccountingIntegrationNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `integrations` WHERE id = ? AND service_type = ?")).
		WithArgs("missing", ServiceTypeAccounting).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := GetAccountingIntegration(context.Background(), db, "missing")
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound, got %v", err)
	}
}

func TestGetExportableInvoicesPreloadsRelations(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `invoices` WHERE status = ? AND external_id IS NULL AND created_at >= ? AND created_at <= ? ORDER BY created_at")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_number", "customer_id", "status"}).
			AddRow("i1", "INV-1", "c1", "paid"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `customers` WHERE `customers`.`id` = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow("c1", "a@example.com"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `invoice_items` WHERE `invoice_items`.`invoice_id` = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_id", "description", "quantity", "unit_price", "line_total"}).
			AddRow("li1", "i1", "Mailbox rental", "1", "25.00", "25.00"))

	end := time.Now()
	invoices, err := GetExportableInvoices(context.Background(), db, end.AddDate(0, 0, -30), end)
	if err != nil {
		t.Fatalf("GetExportableInvoices: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("invoices=%d", len(invoices))
	}
	inv := invoices[0]
	if inv.Customer == nil || inv.Customer.Email != "a@example.com" {
		t.Fatalf("customer not preloaded: %+v", inv.Customer)
	}
	if len(inv.Items) != 1 || !inv.Items[0].Amount().Equal(decimal.NewFromInt(25)) {
		t.Fatalf("items not preloaded: %+v", inv.Items)
	}
}

func TestUpdateIntegrationSyncStatusClearsError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `integrations` SET .*`last_error`=\\?.* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := UpdateIntegrationSyncStatus(context.Background(), db, "int-1", time.Now(), nil); err != nil {
		t.Fatalf("UpdateIntegrationSyncStatus: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
