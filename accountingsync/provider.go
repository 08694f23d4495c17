package accountingsync

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/mailroom_backend/config"
	"github.com/mmdatafocus/mailroom_backend/models"
)

// Provider is an accounting system bound to one integration's credentials.
type Provider interface {
	Name() models.ServiceName
	// CreateCustomer pushes a local customer and returns the provider's id for it.
	CreateCustomer(ctx context.Context, customer models.Customer) (string, error)
	// CreateInvoice pushes an invoice referencing an already-synced customer.
	CreateInvoice(ctx context.Context, invoice models.Invoice, customerExternalId string) (string, error)
	// ListCustomers returns every remote customer mapped onto the local schema, with
	// ExternalId and a placeholder mailbox number set.
	ListCustomers(ctx context.Context) ([]models.Customer, error)
}

// ProviderFactory builds a Provider from decoded credentials.
type ProviderFactory func(creds models.Credentials) (Provider, error)

// NewProvider is the default factory against the live provider APIs.
func NewProvider(creds models.Credentials) (Provider, error) {
	switch c := creds.(type) {
	case models.QuickBooksCredentials:
		return newQuickBooksProvider(c, config.QuickBooksBaseURL(c.Environment), newProviderClient(models.ServiceNameQuickBooks)), nil
	case models.XeroCredentials:
		return newXeroProvider(c, config.XeroBaseURL(), newProviderClient(models.ServiceNameXero)), nil
	default:
		return nil, fmt.Errorf("%w: %T", models.ErrUnsupportedProvider, creds)
	}
}

// importNoun is what the provider calls its customers in import summaries.
func importNoun(name models.ServiceName) (singular string, plural string) {
	if name == models.ServiceNameXero {
		return "contact", "contacts"
	}
	return "customer", "customers"
}

const (
	defaultImportState   = "PR"
	defaultImportCountry = "US"
	dateLayout           = "2006-01-02"
)

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
