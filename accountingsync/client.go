package accountingsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmdatafocus/mailroom_backend/config"
	"github.com/mmdatafocus/mailroom_backend/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const maxProviderResponseBytes = 4 << 20

type providerClient struct {
	provider models.ServiceName
	http     *http.Client
	limiter  *rate.Limiter
	timeout  time.Duration
}

func newProviderClient(provider models.ServiceName) *providerClient {
	perMin := config.ProviderRatePerMinute()
	burst := perMin / 6
	if burst < 1 {
		burst = 1
	}
	return &providerClient{
		provider: provider,
		http:     &http.Client{},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), burst),
		timeout:  config.ProviderTimeout(),
	}
}

// do issues one JSON request. Each call gets its own deadline so a stalled provider
// fails the current record instead of the whole invocation.
func (c *providerClient) do(ctx context.Context, method string, endpoint string, headers map[string]string, payload any, out any) error {
	ctx, span := tracer.Start(ctx, "accountingsync.providerCall", trace.WithAttributes(
		attribute.String("provider", string(c.provider)),
		attribute.String("http.method", method),
	))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(callCtx); err != nil {
		return c.fail(span, &ProviderError{Provider: c.provider, Retryable: true, Err: fmt.Errorf("rate limiter: %w", err)})
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return c.fail(span, &ProviderError{Provider: c.provider, Err: fmt.Errorf("encode %s request: %w", c.provider, err)})
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(callCtx, method, endpoint, body)
	if err != nil {
		return c.fail(span, &ProviderError{Provider: c.provider, Err: err})
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(span, &ProviderError{Provider: c.provider, Retryable: true, Err: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
	if err != nil {
		return c.fail(span, &ProviderError{Provider: c.provider, StatusCode: resp.StatusCode, Retryable: true, Err: err})
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(span, &ProviderError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			Retryable:  retryableStatus(resp.StatusCode),
		})
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return c.fail(span, &ProviderError{Provider: c.provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode %s response: %w", c.provider, err)})
		}
	}
	return nil
}

func (c *providerClient) fail(span trace.Span, err *ProviderError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func bearer(token string) string {
	return "Bearer " + strings.TrimSpace(token)
}
