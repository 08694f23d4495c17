package accountingsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmdatafocus/mailroom_backend/models"
	"github.com/mmdatafocus/mailroom_backend/utils"
)

type quickBooksProvider struct {
	creds   models.QuickBooksCredentials
	baseURL string
	client  *providerClient
}

func newQuickBooksProvider(creds models.QuickBooksCredentials, baseURL string, client *providerClient) *quickBooksProvider {
	return &quickBooksProvider{creds: creds, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *quickBooksProvider) Name() models.ServiceName { return models.ServiceNameQuickBooks }

type qbRef struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

type qbAddress struct {
	Line1                  string `json:"Line1,omitempty"`
	Line2                  string `json:"Line2,omitempty"`
	City                   string `json:"City,omitempty"`
	CountrySubDivisionCode string `json:"CountrySubDivisionCode,omitempty"`
	PostalCode             string `json:"PostalCode,omitempty"`
	Country                string `json:"Country,omitempty"`
}

type qbEmail struct {
	Address string `json:"Address,omitempty"`
}

type qbPhone struct {
	FreeFormNumber string `json:"FreeFormNumber,omitempty"`
}

type qbCustomer struct {
	Id               string     `json:"Id,omitempty"`
	DisplayName      string     `json:"DisplayName,omitempty"`
	GivenName        string     `json:"GivenName,omitempty"`
	FamilyName       string     `json:"FamilyName,omitempty"`
	CompanyName      string     `json:"CompanyName,omitempty"`
	BillAddr         *qbAddress `json:"BillAddr,omitempty"`
	PrimaryEmailAddr *qbEmail   `json:"PrimaryEmailAddr,omitempty"`
	PrimaryPhone     *qbPhone   `json:"PrimaryPhone,omitempty"`
}

type qbSalesItemLineDetail struct {
	ItemRef   qbRef   `json:"ItemRef"`
	UnitPrice float64 `json:"UnitPrice"`
	Qty       float64 `json:"Qty"`
}

type qbLine struct {
	Amount              float64               `json:"Amount"`
	DetailType          string                `json:"DetailType"`
	SalesItemLineDetail qbSalesItemLineDetail `json:"SalesItemLineDetail"`
}

type qbInvoice struct {
	Line        []qbLine `json:"Line"`
	CustomerRef qbRef    `json:"CustomerRef"`
	TxnDate     string   `json:"TxnDate,omitempty"`
	DueDate     string   `json:"DueDate,omitempty"`
	DocNumber   string   `json:"DocNumber,omitempty"`
}

type qbEntity struct {
	Id string `json:"Id"`
}

// QuickBooks answers a create either with the entity itself or wrapped in a query response.
type qbCreateResponse struct {
	Customer      *qbEntity `json:"Customer"`
	Invoice       *qbEntity `json:"Invoice"`
	QueryResponse *struct {
		Customer []qbEntity `json:"Customer"`
		Invoice  []qbEntity `json:"Invoice"`
	} `json:"QueryResponse"`
}

func (r qbCreateResponse) customerId() string {
	if r.QueryResponse != nil && len(r.QueryResponse.Customer) > 0 && r.QueryResponse.Customer[0].Id != "" {
		return r.QueryResponse.Customer[0].Id
	}
	if r.Customer != nil {
		return r.Customer.Id
	}
	return ""
}

func (r qbCreateResponse) invoiceId() string {
	if r.QueryResponse != nil && len(r.QueryResponse.Invoice) > 0 && r.QueryResponse.Invoice[0].Id != "" {
		return r.QueryResponse.Invoice[0].Id
	}
	if r.Invoice != nil {
		return r.Invoice.Id
	}
	return ""
}

type qbQueryResponse struct {
	QueryResponse struct {
		Customer []qbCustomer `json:"Customer"`
	} `json:"QueryResponse"`
}

func (p *quickBooksProvider) companyURL(resource string) string {
	return p.baseURL + "/v3/company/" + url.PathEscape(p.creds.CompanyId) + "/" + resource
}

func (p *quickBooksProvider) headers() map[string]string {
	return map[string]string{"Authorization": bearer(p.creds.AccessToken)}
}

func toQuickBooksCustomer(c models.Customer) qbCustomer {
	out := qbCustomer{
		DisplayName: utils.FirstNonEmpty(c.FullName(), c.BusinessName, c.Email),
		GivenName:   c.FirstName,
		FamilyName:  c.LastName,
		CompanyName: c.BusinessName,
		BillAddr: &qbAddress{
			Line1:                  c.AddressLine1,
			Line2:                  c.AddressLine2,
			City:                   c.City,
			CountrySubDivisionCode: c.State,
			PostalCode:             c.ZipCode,
			Country:                c.Country,
		},
	}
	if c.Email != "" {
		out.PrimaryEmailAddr = &qbEmail{Address: c.Email}
	}
	if c.Phone != "" {
		out.PrimaryPhone = &qbPhone{FreeFormNumber: utils.FormatPhoneE164(c.Phone, utils.CountryCode)}
	}
	return out
}

func fromQuickBooksCustomer(q qbCustomer) models.Customer {
	c := models.Customer{
		FirstName:     q.GivenName,
		LastName:      q.FamilyName,
		BusinessName:  q.CompanyName,
		State:         defaultImportState,
		Country:       defaultImportCountry,
		MailboxNumber: "QB-" + q.Id,
	}
	if q.PrimaryEmailAddr != nil {
		c.Email = q.PrimaryEmailAddr.Address
	}
	if q.PrimaryPhone != nil {
		c.Phone = q.PrimaryPhone.FreeFormNumber
	}
	if a := q.BillAddr; a != nil {
		c.AddressLine1 = a.Line1
		c.AddressLine2 = a.Line2
		c.City = a.City
		c.ZipCode = a.PostalCode
		if a.CountrySubDivisionCode != "" {
			c.State = a.CountrySubDivisionCode
		}
		if a.Country != "" {
			c.Country = a.Country
		}
	}
	if q.Id != "" {
		id := q.Id
		c.ExternalId = &id
	}
	return c
}

func toQuickBooksInvoice(inv models.Invoice, customerExternalId string) qbInvoice {
	out := qbInvoice{
		Line:        make([]qbLine, 0, len(inv.Items)),
		CustomerRef: qbRef{Value: customerExternalId},
		TxnDate:     formatDate(&inv.IssueDate),
		DueDate:     formatDate(inv.DueDate),
		DocNumber:   inv.InvoiceNumber,
	}
	for _, item := range inv.Items {
		out.Line = append(out.Line, qbLine{
			Amount:     item.Amount().InexactFloat64(),
			DetailType: "SalesItemLineDetail",
			SalesItemLineDetail: qbSalesItemLineDetail{
				ItemRef:   qbRef{Value: "1", Name: item.Description},
				UnitPrice: item.UnitPrice.InexactFloat64(),
				Qty:       item.Quantity.InexactFloat64(),
			},
		})
	}
	return out
}

func (p *quickBooksProvider) CreateCustomer(ctx context.Context, customer models.Customer) (string, error) {
	var resp qbCreateResponse
	if err := p.client.do(ctx, http.MethodPost, p.companyURL("customer"), p.headers(), toQuickBooksCustomer(customer), &resp); err != nil {
		return "", err
	}
	id := resp.customerId()
	if id == "" {
		return "", errors.New("quickbooks customer response has no id")
	}
	return id, nil
}

func (p *quickBooksProvider) CreateInvoice(ctx context.Context, invoice models.Invoice, customerExternalId string) (string, error) {
	var resp qbCreateResponse
	if err := p.client.do(ctx, http.MethodPost, p.companyURL("invoice"), p.headers(), toQuickBooksInvoice(invoice, customerExternalId), &resp); err != nil {
		return "", err
	}
	id := resp.invoiceId()
	if id == "" {
		return "", errors.New("quickbooks invoice response has no id")
	}
	return id, nil
}

func (p *quickBooksProvider) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	endpoint := p.companyURL("query") + "?" + url.Values{"query": {"SELECT * FROM Customer"}}.Encode()
	var resp qbQueryResponse
	if err := p.client.do(ctx, http.MethodGet, endpoint, p.headers(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch customers from QuickBooks: %w", err)
	}
	out := make([]models.Customer, 0, len(resp.QueryResponse.Customer))
	for _, q := range resp.QueryResponse.Customer {
		out = append(out, fromQuickBooksCustomer(q))
	}
	return out, nil
}
