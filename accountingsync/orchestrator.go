package accountingsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmdatafocus/mailroom_backend/config"
	"github.com/mmdatafocus/mailroom_backend/models"
	"github.com/mmdatafocus/mailroom_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/mmdatafocus/mailroom_backend/accountingsync")

// Service runs sync operations for accounting integrations.
type Service struct {
	store     Store
	providers ProviderFactory
	locker    Locker
	events    EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

// NewService wires a Service. Nil providers, locker or events fall back to the live
// provider APIs, no locking and no event publishing.
func NewService(store Store, providers ProviderFactory, locker Locker, events EventPublisher) *Service {
	if providers == nil {
		providers = NewProvider
	}
	if locker == nil {
		locker = noopLocker{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &Service{
		store:     store,
		providers: providers,
		locker:    locker,
		events:    events,
		logger:    config.GetLogger(),
		now:       time.Now,
	}
}

// RunSync executes one operation against one integration.
//
// A non-nil error means the invocation never reached a running state (bad operation,
// unknown integration, lock held). Otherwise the Outcome carries the result, including
// per-record failures, and exactly one integration log row has been written.
func (s *Service) RunSync(ctx context.Context, req SyncRequest) (Outcome, error) {
	op := req.Operation
	if op == "" {
		op = OperationExport
	}
	ctx, span := tracer.Start(ctx, "accountingsync.RunSync", trace.WithAttributes(
		attribute.String("operation", string(op)),
		attribute.String("integration_id", req.IntegrationId),
	))
	defer span.End()

	if !op.Valid() {
		err := fmt.Errorf("%w: %s", ErrUnsupportedOperation, op)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	integrationId := strings.TrimSpace(req.IntegrationId)
	if integrationId == "" {
		return Outcome{}, fmt.Errorf("failed to fetch integration: %w", ErrIntegrationNotFound)
	}

	release, err := s.locker.Obtain(ctx, integrationId)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	defer release()

	integration, err := s.store.GetAccountingIntegration(ctx, integrationId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			err = fmt.Errorf("failed to fetch integration: %w", ErrIntegrationNotFound)
		} else {
			err = fmt.Errorf("failed to fetch integration: %w", err)
		}
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	if strings.TrimSpace(integration.TenantId) == "" {
		err = fmt.Errorf("failed to fetch integration: %w", ErrIntegrationUnscoped)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	ctx = utils.PinTenantScope(ctx, integration.TenantId)
	span.SetAttributes(attribute.String("service_name", string(integration.ServiceName)))

	started := s.now()
	outcome, fold := s.dispatch(ctx, op, *integration, req.DateRange)
	elapsed := s.now().Sub(started)

	s.record(ctx, op, *integration, outcome, fold, elapsed)
	if !outcome.Success {
		span.SetStatus(codes.Error, outcome.Message)
	}
	return outcome, nil
}

func (s *Service) dispatch(ctx context.Context, op Operation, integration models.Integration, dateRange *DateRange) (outcome Outcome, fold recordFold) {
	defer func() {
		if r := recover(); r != nil {
			outcome = failedOutcome(fmt.Sprintf("sync aborted: %v", r))
			fold = recordFold{Errors: []string{}}
		}
	}()
	switch op {
	case OperationExport, OperationSyncInvoices:
		return s.exportInvoices(ctx, integration, dateRange)
	case OperationSyncCustomers:
		return s.syncCustomers(ctx, integration)
	default:
		return s.importCustomers(ctx, integration)
	}
}

func (s *Service) providerFor(integration models.Integration) (Provider, error) {
	creds, err := integration.DecodeCredentials()
	if err != nil {
		return nil, err
	}
	return s.providers(creds)
}

func (s *Service) resolveDateRange(dr *DateRange) (time.Time, time.Time) {
	end := s.now()
	start := end.Add(-defaultExportWindow)
	if dr != nil {
		if !dr.End.IsZero() {
			end = dr.End
		}
		if !dr.Start.IsZero() {
			start = dr.Start
		}
	}
	return start, end
}

func (s *Service) exportInvoices(ctx context.Context, integration models.Integration, dateRange *DateRange) (Outcome, recordFold) {
	start, end := s.resolveDateRange(dateRange)
	invoices, err := s.store.ListExportableInvoices(ctx, start, end)
	if err != nil {
		return failedOutcome("failed to fetch invoices: " + err.Error()), recordFold{}
	}
	if len(invoices) == 0 {
		return emptyOutcome("No new invoices to export"), recordFold{}
	}

	provider, providerErr := s.providerFor(integration)
	// Customers created during this pass, so two invoices for one new customer create it once.
	created := map[string]string{}

	fold := foldRecords(ctx, invoices, invoiceLabel, func(ctx context.Context, inv models.Invoice) (stepResult, error) {
		if providerErr != nil {
			return stepSucceeded, providerErr
		}
		customerExternalId, err := s.ensureCustomer(ctx, provider, inv, created)
		if err != nil {
			return stepSucceeded, fmt.Errorf("Failed to sync %s: %w", singularNoun(provider), err)
		}
		externalId, err := provider.CreateInvoice(ctx, inv, customerExternalId)
		if err != nil {
			return stepSucceeded, err
		}
		if err := s.store.MarkInvoiceSynced(ctx, inv.ID, externalId, s.now()); err != nil {
			return stepSucceeded, fmt.Errorf("record external id %s: %w", externalId, err)
		}
		return stepSucceeded, nil
	})

	exported := fold.Succeeded
	return Outcome{
		Success:          len(fold.Errors) == 0,
		Message:          fmt.Sprintf("Exported %d invoices", exported),
		RecordsProcessed: len(invoices),
		Exported:         &exported,
		Errors:           fold.Errors,
	}, fold
}

// ensureCustomer returns the provider id of the invoice's customer, creating and
// persisting it first when the customer has never been synced.
func (s *Service) ensureCustomer(ctx context.Context, provider Provider, inv models.Invoice, created map[string]string) (string, error) {
	customer := inv.Customer
	if customer == nil {
		return "", errors.New("invoice has no customer")
	}
	if id := customer.ExternalIdValue(); id != "" {
		return id, nil
	}
	if id, ok := created[customer.ID]; ok {
		return id, nil
	}
	externalId, err := provider.CreateCustomer(ctx, *customer)
	if err != nil {
		return "", err
	}
	created[customer.ID] = externalId
	if err := s.store.MarkCustomerSynced(ctx, customer.ID, externalId, s.now()); err != nil {
		config.LogError(s.logger, "accountingsync", "ensureCustomer", "persisting customer external id", map[string]string{
			"customer_id": customer.ID,
			"external_id": externalId,
		}, err)
	}
	return externalId, nil
}

func (s *Service) syncCustomers(ctx context.Context, integration models.Integration) (Outcome, recordFold) {
	customers, err := s.store.ListUnsyncedCustomers(ctx, customerBatchLimit)
	if err != nil {
		return failedOutcome("failed to fetch customers: " + err.Error()), recordFold{}
	}
	if len(customers) == 0 {
		return emptyOutcome("No new customers to sync"), recordFold{}
	}

	provider, providerErr := s.providerFor(integration)

	fold := foldRecords(ctx, customers, customerLabel, func(ctx context.Context, c models.Customer) (stepResult, error) {
		if providerErr != nil {
			if errors.Is(providerErr, models.ErrUnsupportedProvider) {
				return stepSkipped, nil
			}
			return stepSucceeded, providerErr
		}
		externalId, err := provider.CreateCustomer(ctx, c)
		if err != nil {
			return stepSucceeded, err
		}
		if err := s.store.MarkCustomerSynced(ctx, c.ID, externalId, s.now()); err != nil {
			return stepSucceeded, fmt.Errorf("record external id %s: %w", externalId, err)
		}
		return stepSucceeded, nil
	})

	synced := fold.Succeeded
	return Outcome{
		Success:          len(fold.Errors) == 0,
		Message:          fmt.Sprintf("Synced %d customers", synced),
		RecordsProcessed: len(customers),
		Synced:           &synced,
		Errors:           fold.Errors,
	}, fold
}

func (s *Service) importCustomers(ctx context.Context, integration models.Integration) (Outcome, recordFold) {
	provider, err := s.providerFor(integration)
	if err != nil {
		return failedOutcome(err.Error()), recordFold{}
	}
	remote, err := provider.ListCustomers(ctx)
	if err != nil {
		return failedOutcome(err.Error()), recordFold{}
	}

	singular, plural := importNoun(provider.Name())
	label := func(c models.Customer) string {
		return fmt.Sprintf("Failed to import %s %s", singular, utils.FirstNonEmpty(c.BusinessName, c.FullName(), c.Email, c.ExternalIdValue()))
	}

	fold := foldRecords(ctx, remote, label, func(ctx context.Context, c models.Customer) (stepResult, error) {
		externalId := c.ExternalIdValue()
		if externalId == "" {
			return stepSucceeded, errors.New("remote record has no id")
		}
		exists, err := s.store.CustomerExistsByExternalId(ctx, externalId)
		if err != nil {
			return stepSucceeded, err
		}
		if exists {
			return stepSkipped, nil
		}
		syncedAt := s.now().UTC()
		c.TenantId = integration.TenantId
		c.SyncedAt = &syncedAt
		if err := s.store.CreateCustomer(ctx, &c); err != nil {
			return stepSucceeded, err
		}
		return stepSucceeded, nil
	})

	imported := fold.Succeeded
	return Outcome{
		Success:          len(fold.Errors) == 0,
		Message:          fmt.Sprintf("Imported %d %s from %s", imported, plural, provider.Name().DisplayName()),
		RecordsProcessed: len(remote),
		Imported:         &imported,
		Errors:           fold.Errors,
	}, fold
}

func invoiceLabel(inv models.Invoice) string {
	return "Invoice " + inv.InvoiceNumber
}

func customerLabel(c models.Customer) string {
	return "Customer " + c.Email
}

func singularNoun(p Provider) string {
	singular, _ := importNoun(p.Name())
	return singular
}

// record writes the operation log row and the integration status. Failures here are
// logged only; the caller still gets the outcome.
func (s *Service) record(ctx context.Context, op Operation, integration models.Integration, outcome Outcome, fold recordFold, elapsed time.Duration) {
	ctx = context.WithoutCancel(ctx)
	logger := s.logger.WithFields(logrus.Fields{
		"module":         "accountingsync",
		"integration_id": integration.ID,
		"operation":      op,
	})
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		logger = logger.WithField("correlation_id", cid)
	}

	statusCode := http.StatusOK
	var errorMessage *string
	if !outcome.Success {
		statusCode = http.StatusInternalServerError
		msg := outcome.Message
		errorMessage = &msg
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		config.LogError(s.logger, "accountingsync", "record", "encoding outcome", nil, err)
	}
	entry := &models.IntegrationLog{
		TenantId:        integration.TenantId,
		IntegrationId:   integration.ID,
		RequestType:     models.RequestTypeSync,
		Endpoint:        string(op),
		StatusCode:      statusCode,
		ResponseData:    payload,
		ExecutionTimeMs: elapsed.Milliseconds(),
		ErrorMessage:    errorMessage,
	}
	if err := s.store.AppendLog(ctx, entry); err != nil {
		config.LogError(s.logger, "accountingsync", "record", "writing integration log", integration.ID, err)
	}
	finishedAt := s.now()
	if err := s.store.UpdateSyncStatus(ctx, integration.ID, finishedAt, errorMessage); err != nil {
		config.LogError(s.logger, "accountingsync", "record", "updating integration sync status", integration.ID, err)
	}

	observeSync(op, outcome, fold, elapsed.Seconds())

	evt := SyncCompletedEvent{
		IntegrationId:    integration.ID,
		TenantId:         integration.TenantId,
		ServiceName:      string(integration.ServiceName),
		Operation:        string(op),
		Success:          outcome.Success,
		Message:          outcome.Message,
		RecordsProcessed: outcome.RecordsProcessed,
		ErrorCount:       len(outcome.Errors),
		ExecutionTimeMs:  elapsed.Milliseconds(),
		FinishedAt:       finishedAt.UTC(),
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		evt.CorrelationId = cid
	}
	if err := s.events.PublishSyncCompleted(ctx, evt); err != nil {
		logger.Warn("publish sync completed event: " + err.Error())
	}

	logger.WithFields(logrus.Fields{
		"success":           outcome.Success,
		"records_processed": outcome.RecordsProcessed,
		"errors":            len(outcome.Errors),
		"retryable_errors":  fold.Retryable,
		"execution_time_ms": elapsed.Milliseconds(),
	}).Info(outcome.Message)
}

// IntegrationStatus reports last sync bookkeeping for one integration.
func (s *Service) IntegrationStatus(ctx context.Context, integrationId string) (IntegrationStatusResponse, error) {
	integration, err := s.store.GetAccountingIntegration(ctx, integrationId)
	if err != nil {
		return IntegrationStatusResponse{}, err
	}
	return IntegrationStatusResponse{
		ID:          integration.ID,
		ServiceName: integration.ServiceName,
		LastSyncAt:  formatTime(integration.LastSyncAt),
		LastError:   integration.LastError,
	}, nil
}

// ListLogs returns the newest log rows for an integration, clamping limit to [1, 100].
func (s *Service) ListLogs(ctx context.Context, integrationId string, limit int) (SyncLogListResponse, error) {
	integration, err := s.store.GetAccountingIntegration(ctx, integrationId)
	if err != nil {
		return SyncLogListResponse{}, err
	}
	if integration.TenantId != "" {
		ctx = utils.PinTenantScope(ctx, integration.TenantId)
	}
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	rows, err := s.store.ListLogs(ctx, integration.ID, limit)
	if err != nil {
		return SyncLogListResponse{}, err
	}
	out := SyncLogListResponse{Items: make([]SyncLogResponse, 0, len(rows))}
	for _, row := range rows {
		item := SyncLogResponse{
			ID:              row.ID,
			Endpoint:        row.Endpoint,
			StatusCode:      row.StatusCode,
			ExecutionTimeMs: row.ExecutionTimeMs,
			ErrorMessage:    row.ErrorMessage,
			CreatedAt:       row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if json.Valid(row.ResponseData) {
			item.Response = json.RawMessage(row.ResponseData)
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}
