package accountingsync

import (
	"context"
	"time"

	"github.com/mmdatafocus/mailroom_backend/models"
	"gorm.io/gorm"
)

// Store is the persistence the orchestrator needs. Tenant scoping comes from ctx.
type Store interface {
	GetAccountingIntegration(ctx context.Context, id string) (*models.Integration, error)
	ListUnsyncedCustomers(ctx context.Context, limit int) ([]models.Customer, error)
	ListExportableInvoices(ctx context.Context, start time.Time, end time.Time) ([]models.Invoice, error)
	MarkCustomerSynced(ctx context.Context, id string, externalId string, at time.Time) error
	MarkInvoiceSynced(ctx context.Context, id string, externalId string, at time.Time) error
	CustomerExistsByExternalId(ctx context.Context, externalId string) (bool, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	AppendLog(ctx context.Context, entry *models.IntegrationLog) error
	UpdateSyncStatus(ctx context.Context, integrationId string, at time.Time, lastError *string) error
	ListLogs(ctx context.Context, integrationId string, limit int) ([]models.IntegrationLog, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) GetAccountingIntegration(ctx context.Context, id string) (*models.Integration, error) {
	return models.GetAccountingIntegration(ctx, s.db, id)
}

func (s *gormStore) ListUnsyncedCustomers(ctx context.Context, limit int) ([]models.Customer, error) {
	return models.GetUnsyncedCustomers(ctx, s.db, limit)
}

func (s *gormStore) ListExportableInvoices(ctx context.Context, start time.Time, end time.Time) ([]models.Invoice, error) {
	return models.GetExportableInvoices(ctx, s.db, start, end)
}

func (s *gormStore) MarkCustomerSynced(ctx context.Context, id string, externalId string, at time.Time) error {
	return models.MarkCustomerSynced(ctx, s.db, id, externalId, at)
}

func (s *gormStore) MarkInvoiceSynced(ctx context.Context, id string, externalId string, at time.Time) error {
	return models.MarkInvoiceSynced(ctx, s.db, id, externalId, at)
}

func (s *gormStore) CustomerExistsByExternalId(ctx context.Context, externalId string) (bool, error) {
	return models.CustomerExistsByExternalId(ctx, s.db, externalId)
}

func (s *gormStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return models.CreateCustomer(ctx, s.db, customer)
}

func (s *gormStore) AppendLog(ctx context.Context, entry *models.IntegrationLog) error {
	return models.CreateIntegrationLog(ctx, s.db, entry)
}

func (s *gormStore) UpdateSyncStatus(ctx context.Context, integrationId string, at time.Time, lastError *string) error {
	return models.UpdateIntegrationSyncStatus(ctx, s.db, integrationId, at, lastError)
}

func (s *gormStore) ListLogs(ctx context.Context, integrationId string, limit int) ([]models.IntegrationLog, error) {
	return models.ListIntegrationLogs(ctx, s.db, integrationId, limit)
}
