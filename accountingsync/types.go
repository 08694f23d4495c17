package accountingsync

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/mailroom_backend/models"
	"github.com/mmdatafocus/mailroom_backend/utils"
)

type Operation string

const (
	OperationExport        Operation = "export"
	OperationImport        Operation = "import"
	OperationSyncCustomers Operation = "sync_customers"
	OperationSyncInvoices  Operation = "sync_invoices"
)

func (o Operation) Valid() bool {
	switch o {
	case OperationExport, OperationImport, OperationSyncCustomers, OperationSyncInvoices:
		return true
	}
	return false
}

const (
	customerBatchLimit  = 50
	defaultExportWindow = 30 * 24 * time.Hour
	defaultLogLimit     = 20
	maxLogLimit         = 100
)

// DateRange bounds invoice export by created_at. A zero end falls back to now and a
// zero start to 30 days before now.
type DateRange struct {
	Start time.Time
	End   time.Time
}

type SyncRequest struct {
	Operation     Operation
	IntegrationId string
	DateRange     *DateRange
}

type DateRangeBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SyncRequestBody struct {
	Operation     string         `json:"operation"`
	IntegrationId string         `json:"integration_id" validate:"required"`
	DateRange     *DateRangeBody `json:"date_range"`
}

var validate = validator.New()

// ToRequest validates the wire body. Operation is checked later by RunSync so an
// unknown value surfaces as a fatal sync error rather than a validation one.
func (b SyncRequestBody) ToRequest() (SyncRequest, error) {
	b.IntegrationId = strings.TrimSpace(b.IntegrationId)
	if err := validate.Struct(b); err != nil {
		fields := utils.ProcessValidationErrors(err)
		if _, missing := fields["IntegrationId"]; missing {
			return SyncRequest{}, fmt.Errorf("failed to fetch integration: %w: integration_id is required", ErrIntegrationNotFound)
		}
		return SyncRequest{}, fmt.Errorf("invalid request: %v", fields)
	}
	req := SyncRequest{
		Operation:     Operation(strings.TrimSpace(b.Operation)),
		IntegrationId: b.IntegrationId,
	}
	if b.DateRange != nil {
		var dr DateRange
		if s := strings.TrimSpace(b.DateRange.Start); s != "" {
			t, err := utils.ParseFlexibleTime(s)
			if err != nil {
				return SyncRequest{}, fmt.Errorf("invalid date_range.start: %w", err)
			}
			dr.Start = t
		}
		if s := strings.TrimSpace(b.DateRange.End); s != "" {
			t, err := utils.ParseFlexibleTime(s)
			if err != nil {
				return SyncRequest{}, fmt.Errorf("invalid date_range.end: %w", err)
			}
			dr.End = t
		}
		req.DateRange = &dr
	}
	return req, nil
}

// Outcome is the per-invocation summary returned to callers and stored as the log's
// response_data. Exactly one of Exported, Synced or Imported is set on success paths.
type Outcome struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	RecordsProcessed int      `json:"recordsProcessed"`
	Exported         *int     `json:"exported,omitempty"`
	Synced           *int     `json:"synced,omitempty"`
	Imported         *int     `json:"imported,omitempty"`
	Errors           []string `json:"errors"`
}

// MarshalJSON keeps "errors" an array even when no record failed.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type alias Outcome
	if o.Errors == nil {
		o.Errors = []string{}
	}
	return json.Marshal(alias(o))
}

func emptyOutcome(message string) Outcome {
	return Outcome{Success: true, Message: message, Errors: []string{}}
}

func failedOutcome(message string) Outcome {
	return Outcome{Success: false, Message: message, Errors: []string{}}
}

type IntegrationStatusResponse struct {
	ID          string             `json:"id"`
	ServiceName models.ServiceName `json:"serviceName"`
	LastSyncAt  *string            `json:"lastSyncAt"`
	LastError   *string            `json:"lastError"`
}

type SyncLogResponse struct {
	ID              string          `json:"id"`
	Endpoint        string          `json:"endpoint"`
	StatusCode      int             `json:"statusCode"`
	ExecutionTimeMs int64           `json:"executionTimeMs"`
	ErrorMessage    *string         `json:"errorMessage"`
	Response        json.RawMessage `json:"response,omitempty"`
	CreatedAt       string          `json:"createdAt"`
}

type SyncLogListResponse struct {
	Items []SyncLogResponse `json:"items"`
}

func formatTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
