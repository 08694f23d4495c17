package accountingsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmdatafocus/mailroom_backend/models"
	"github.com/mmdatafocus/mailroom_backend/utils"
)

type fakeStore struct {
	mu            sync.Mutex
	integrations  map[string]models.Integration
	customers     []models.Customer
	invoices      []models.Invoice
	logs          []models.IntegrationLog
	statusUpdates int
	lastError     *string
	rangeStart    time.Time
	rangeEnd      time.Time
	nextId        int
	invoicesErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{integrations: map[string]models.Integration{}}
}

func (s *fakeStore) addIntegration(i models.Integration) {
	s.integrations[i.ID] = i
}

func (s *fakeStore) GetAccountingIntegration(ctx context.Context, id string) (*models.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.integrations[id]
	if !ok || i.ServiceType != models.ServiceTypeAccounting {
		return nil, utils.ErrorRecordNotFound
	}
	return &i, nil
}

func (s *fakeStore) ListUnsyncedCustomers(ctx context.Context, limit int) ([]models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Customer
	for _, c := range s.customers {
		if c.IsReconciled() {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) ListExportableInvoices(ctx context.Context, start time.Time, end time.Time) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rangeStart, s.rangeEnd = start, end
	if s.invoicesErr != nil {
		return nil, s.invoicesErr
	}
	var out []models.Invoice
	for _, inv := range s.invoices {
		if inv.Status != models.InvoiceStatusPaid || inv.IsReconciled() {
			continue
		}
		for _, c := range s.customers {
			if c.ID == inv.CustomerId {
				cust := c
				inv.Customer = &cust
			}
		}
		out = append(out, inv)
	}
	return out, nil
}

func (s *fakeStore) MarkCustomerSynced(ctx context.Context, id string, externalId string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.customers {
		if s.customers[i].ID == id {
			return s.customers[i].MarkSynced(externalId, at)
		}
	}
	return utils.ErrorRecordNotFound
}

func (s *fakeStore) MarkInvoiceSynced(ctx context.Context, id string, externalId string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.invoices {
		if s.invoices[i].ID == id {
			return s.invoices[i].MarkSynced(externalId, at)
		}
	}
	return utils.ErrorRecordNotFound
}

func (s *fakeStore) CustomerExistsByExternalId(ctx context.Context, externalId string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if c.ExternalIdValue() == externalId {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if customer.ID == "" {
		s.nextId++
		customer.ID = fmt.Sprintf("local-%d", s.nextId)
	}
	s.customers = append(s.customers, *customer)
	return nil
}

func (s *fakeStore) AppendLog(ctx context.Context, entry *models.IntegrationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *fakeStore) UpdateSyncStatus(ctx context.Context, integrationId string, at time.Time, lastError *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusUpdates++
	s.lastError = lastError
	if i, ok := s.integrations[integrationId]; ok {
		i.LastSyncAt = &at
		i.LastError = lastError
		s.integrations[integrationId] = i
	}
	return nil
}

func (s *fakeStore) ListLogs(ctx context.Context, integrationId string, limit int) ([]models.IntegrationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.IntegrationLog
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.logs[i].IntegrationId == integrationId {
			out = append(out, s.logs[i])
		}
	}
	return out, nil
}

type fakeProvider struct {
	name         models.ServiceName
	calls        []string
	failCustomer map[string]error
	failInvoice  map[string]error
	remote       []models.Customer
	listErr      error
	seq          int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		name:         models.ServiceNameQuickBooks,
		failCustomer: map[string]error{},
		failInvoice:  map[string]error{},
	}
}

func (p *fakeProvider) Name() models.ServiceName { return p.name }

func (p *fakeProvider) CreateCustomer(ctx context.Context, customer models.Customer) (string, error) {
	p.calls = append(p.calls, "customer:"+customer.Email)
	if err := p.failCustomer[customer.Email]; err != nil {
		return "", err
	}
	p.seq++
	return fmt.Sprintf("C%d", p.seq), nil
}

func (p *fakeProvider) CreateInvoice(ctx context.Context, invoice models.Invoice, customerExternalId string) (string, error) {
	p.calls = append(p.calls, "invoice:"+invoice.InvoiceNumber+":"+customerExternalId)
	if err := p.failInvoice[invoice.InvoiceNumber]; err != nil {
		return "", err
	}
	p.seq++
	return fmt.Sprintf("I%d", p.seq), nil
}

func (p *fakeProvider) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.remote, nil
}

type fakeLocker struct {
	err      error
	released int
}

func (l *fakeLocker) Obtain(ctx context.Context, integrationId string) (func(), error) {
	if l.err != nil {
		return func() {}, l.err
	}
	return func() { l.released++ }, nil
}

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

const testIntegrationId = "int-1"

func quickBooksIntegration() models.Integration {
	return models.Integration{
		ID:              testIntegrationId,
		TenantId:        "tenant-1",
		ServiceType:     models.ServiceTypeAccounting,
		ServiceName:     models.ServiceNameQuickBooks,
		CredentialsJSON: []byte(`{"access_token":"tok","company_id":"123"}`),
	}
}

func newTestService(store Store, provider Provider, locker Locker) *Service {
	factory := func(models.Credentials) (Provider, error) { return provider, nil }
	svc := NewService(store, factory, locker, nil)
	svc.now = func() time.Time { return testNow }
	return svc
}

func strPtr(s string) *string { return &s }

func testCustomer(id string, email string) models.Customer {
	return models.Customer{
		ID:            id,
		TenantId:      "tenant-1",
		FirstName:     "Ana",
		LastName:      "Rivera",
		Email:         email,
		MailboxNumber: "MB-" + id,
	}
}

func paidInvoice(id string, number string, customerId string) models.Invoice {
	return models.Invoice{
		ID:            id,
		TenantId:      "tenant-1",
		InvoiceNumber: number,
		CustomerId:    customerId,
		Status:        models.InvoiceStatusPaid,
		IssueDate:     testNow.AddDate(0, 0, -2),
	}
}
