package accountingsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmdatafocus/mailroom_backend/models"
	"github.com/mmdatafocus/mailroom_backend/utils"
)

const (
	xeroAddressStreet = "STREET"
	xeroPhoneDefault  = "DEFAULT"
	xeroSalesAccount  = "200"
	xeroTaxNone       = "NONE"
)

type xeroProvider struct {
	creds   models.XeroCredentials
	baseURL string
	client  *providerClient
}

func newXeroProvider(creds models.XeroCredentials, baseURL string, client *providerClient) *xeroProvider {
	return &xeroProvider{creds: creds, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *xeroProvider) Name() models.ServiceName { return models.ServiceNameXero }

type xeroAddress struct {
	AddressType  string `json:"AddressType"`
	AddressLine1 string `json:"AddressLine1,omitempty"`
	AddressLine2 string `json:"AddressLine2,omitempty"`
	City         string `json:"City,omitempty"`
	Region       string `json:"Region,omitempty"`
	PostalCode   string `json:"PostalCode,omitempty"`
	Country      string `json:"Country,omitempty"`
}

type xeroPhone struct {
	PhoneType   string `json:"PhoneType"`
	PhoneNumber string `json:"PhoneNumber,omitempty"`
}

type xeroContact struct {
	ContactID    string        `json:"ContactID,omitempty"`
	Name         string        `json:"Name"`
	FirstName    string        `json:"FirstName,omitempty"`
	LastName     string        `json:"LastName,omitempty"`
	EmailAddress string        `json:"EmailAddress,omitempty"`
	Addresses    []xeroAddress `json:"Addresses,omitempty"`
	Phones       []xeroPhone   `json:"Phones,omitempty"`
}

type xeroContactRef struct {
	ContactID string `json:"ContactID"`
}

type xeroLineItem struct {
	Description string  `json:"Description"`
	Quantity    float64 `json:"Quantity"`
	UnitAmount  float64 `json:"UnitAmount"`
	AccountCode string  `json:"AccountCode"`
	TaxType     string  `json:"TaxType"`
}

type xeroInvoice struct {
	InvoiceID     string         `json:"InvoiceID,omitempty"`
	Type          string         `json:"Type"`
	Contact       xeroContactRef `json:"Contact"`
	Date          string         `json:"Date,omitempty"`
	DueDate       string         `json:"DueDate,omitempty"`
	InvoiceNumber string         `json:"InvoiceNumber,omitempty"`
	LineItems     []xeroLineItem `json:"LineItems"`
}

type xeroContacts struct {
	Contacts []xeroContact `json:"Contacts"`
}

type xeroInvoices struct {
	Invoices []xeroInvoice `json:"Invoices"`
}

func (p *xeroProvider) headers() map[string]string {
	return map[string]string{
		"Authorization":  bearer(p.creds.AccessToken),
		"Xero-Tenant-Id": p.creds.TenantId,
	}
}

func toXeroContact(c models.Customer) xeroContact {
	out := xeroContact{
		Name:         utils.FirstNonEmpty(c.BusinessName, c.FullName(), c.Email),
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		EmailAddress: c.Email,
		Addresses: []xeroAddress{{
			AddressType:  xeroAddressStreet,
			AddressLine1: c.AddressLine1,
			AddressLine2: c.AddressLine2,
			City:         c.City,
			Region:       c.State,
			PostalCode:   c.ZipCode,
			Country:      c.Country,
		}},
	}
	if c.Phone != "" {
		out.Phones = []xeroPhone{{PhoneType: xeroPhoneDefault, PhoneNumber: utils.FormatPhoneE164(c.Phone, utils.CountryCode)}}
	}
	return out
}

func fromXeroContact(x xeroContact) models.Customer {
	c := models.Customer{
		FirstName:     x.FirstName,
		LastName:      x.LastName,
		BusinessName:  x.Name,
		Email:         x.EmailAddress,
		State:         defaultImportState,
		Country:       defaultImportCountry,
		MailboxNumber: "XR-" + shortId(x.ContactID, 8),
	}
	for _, a := range x.Addresses {
		if a.AddressType != xeroAddressStreet {
			continue
		}
		c.AddressLine1 = a.AddressLine1
		c.AddressLine2 = a.AddressLine2
		c.City = a.City
		c.ZipCode = a.PostalCode
		if a.Region != "" {
			c.State = a.Region
		}
		if a.Country != "" {
			c.Country = a.Country
		}
		break
	}
	for _, ph := range x.Phones {
		if ph.PhoneType == xeroPhoneDefault {
			c.Phone = ph.PhoneNumber
			break
		}
	}
	if x.ContactID != "" {
		id := x.ContactID
		c.ExternalId = &id
	}
	return c
}

func toXeroInvoice(inv models.Invoice, contactId string) xeroInvoice {
	out := xeroInvoice{
		Type:          "ACCREC",
		Contact:       xeroContactRef{ContactID: contactId},
		Date:          formatDate(&inv.IssueDate),
		DueDate:       formatDate(inv.DueDate),
		InvoiceNumber: inv.InvoiceNumber,
		LineItems:     make([]xeroLineItem, 0, len(inv.Items)),
	}
	for _, item := range inv.Items {
		out.LineItems = append(out.LineItems, xeroLineItem{
			Description: item.Description,
			Quantity:    item.Quantity.InexactFloat64(),
			UnitAmount:  item.UnitPrice.InexactFloat64(),
			AccountCode: xeroSalesAccount,
			TaxType:     xeroTaxNone,
		})
	}
	return out
}

func shortId(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

func (p *xeroProvider) CreateCustomer(ctx context.Context, customer models.Customer) (string, error) {
	var resp xeroContacts
	body := xeroContacts{Contacts: []xeroContact{toXeroContact(customer)}}
	if err := p.client.do(ctx, http.MethodPost, p.baseURL+"/Contacts", p.headers(), body, &resp); err != nil {
		return "", err
	}
	if len(resp.Contacts) == 0 || resp.Contacts[0].ContactID == "" {
		return "", errors.New("xero contact response has no id")
	}
	return resp.Contacts[0].ContactID, nil
}

func (p *xeroProvider) CreateInvoice(ctx context.Context, invoice models.Invoice, customerExternalId string) (string, error) {
	var resp xeroInvoices
	body := xeroInvoices{Invoices: []xeroInvoice{toXeroInvoice(invoice, customerExternalId)}}
	if err := p.client.do(ctx, http.MethodPost, p.baseURL+"/Invoices", p.headers(), body, &resp); err != nil {
		return "", err
	}
	if len(resp.Invoices) == 0 || resp.Invoices[0].InvoiceID == "" {
		return "", errors.New("xero invoice response has no id")
	}
	return resp.Invoices[0].InvoiceID, nil
}

func (p *xeroProvider) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var resp xeroContacts
	if err := p.client.do(ctx, http.MethodGet, p.baseURL+"/Contacts", p.headers(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch contacts from Xero: %w", err)
	}
	out := make([]models.Customer, 0, len(resp.Contacts))
	for _, x := range resp.Contacts {
		out = append(out, fromXeroContact(x))
	}
	return out, nil
}
