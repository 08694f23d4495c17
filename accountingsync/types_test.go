package accountingsync

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSyncRequestBodyToRequest(t *testing.T) {
	body := SyncRequestBody{
		Operation:     "sync_customers",
		IntegrationId: " int-1 ",
		DateRange:     &DateRangeBody{Start: "2024-01-01", End: "2024-01-31T23:59:59Z"},
	}
	req, err := body.ToRequest()
	if err != nil {
		t.Fatalf("ToRequest: %v", err)
	}
	if req.Operation != OperationSyncCustomers || req.IntegrationId != "int-1" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !req.DateRange.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start=%s", req.DateRange.Start)
	}
	if !req.DateRange.End.Equal(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("end=%s", req.DateRange.End)
	}
}

func TestSyncRequestBodyRequiresIntegrationId(t *testing.T) {
	_, err := SyncRequestBody{Operation: "export"}.ToRequest()
	if !errors.Is(err, ErrIntegrationNotFound) {
		t.Fatalf("expected ErrIntegrationNotFound, got %v", err)
	}
}

func TestSyncRequestBodyRejectsBadDate(t *testing.T) {
	_, err := SyncRequestBody{IntegrationId: "int-1", DateRange: &DateRangeBody{Start: "last tuesday"}}.ToRequest()
	if err == nil || !strings.Contains(err.Error(), "date_range.start") {
		t.Fatalf("expected date_range.start error, got %v", err)
	}
}

func TestOutcomeAlwaysEncodesErrorsArray(t *testing.T) {
	b, err := json.Marshal(Outcome{Success: true, Message: "No new customers to sync"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"errors":[]`) {
		t.Fatalf("errors array missing: %s", s)
	}
	if strings.Contains(s, "exported") || strings.Contains(s, "synced") || strings.Contains(s, "imported") {
		t.Fatalf("unset counters should be omitted: %s", s)
	}
	if !strings.Contains(s, `"recordsProcessed":0`) {
		t.Fatalf("recordsProcessed missing: %s", s)
	}
}
