package models

type ServiceName string

const (
	ServiceNameQuickBooks ServiceName = "quickbooks"
	ServiceNameXero       ServiceName = "xero"
)

func (s ServiceName) DisplayName() string {
	switch s {
	case ServiceNameQuickBooks:
		return "QuickBooks"
	case ServiceNameXero:
		return "Xero"
	default:
		return string(s)
	}
}

const ServiceTypeAccounting = "accounting"

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

const RequestTypeSync = "sync"
