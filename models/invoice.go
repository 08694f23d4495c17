package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	ID            string        `gorm:"type:char(36);primary_key" json:"id"`
	TenantId      string        `gorm:"size:64;index" json:"tenant_id"`
	InvoiceNumber string        `gorm:"size:64;index;not null" json:"invoice_number"`
	CustomerId    string        `gorm:"type:char(36);index;not null" json:"customer_id"`
	Customer      *Customer     `gorm:"foreignKey:CustomerId" json:"customer,omitempty"`
	Status        InvoiceStatus `gorm:"size:20;index;not null" json:"status"`
	IssueDate     time.Time     `gorm:"type:date" json:"issue_date"`
	DueDate       *time.Time    `gorm:"type:date" json:"due_date"`
	Items         []InvoiceItem `gorm:"foreignKey:InvoiceId" json:"invoice_items"`
	SyncState
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

type InvoiceItem struct {
	ID          string          `gorm:"type:char(36);primary_key" json:"id"`
	InvoiceId   string          `gorm:"type:char(36);index;not null" json:"invoice_id"`
	Description string          `gorm:"size:255" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Amount is the stored line total, falling back to quantity x unit price.
func (i InvoiceItem) Amount() decimal.Decimal {
	if !i.LineTotal.IsZero() {
		return i.LineTotal
	}
	return i.Quantity.Mul(i.UnitPrice)
}

// GetExportableInvoices returns paid, unreconciled invoices created within [start, end],
// each with its customer and line items.
func GetExportableInvoices(ctx context.Context, db *gorm.DB, start time.Time, end time.Time) ([]Invoice, error) {
	var invoices []Invoice
	err := db.WithContext(ctx).
		Preload("Customer").
		Preload("Items").
		Where("status = ? AND external_id IS NULL AND created_at >= ? AND created_at <= ?", InvoiceStatusPaid, start, end).
		Order("created_at").
		Find(&invoices).Error
	return invoices, err
}

func MarkInvoiceSynced(ctx context.Context, db *gorm.DB, id string, externalId string, at time.Time) error {
	return claimSyncState(ctx, db, &Invoice{}, id, externalId, at)
}
