package models

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a CMRA mailbox holder; only the fields the accounting sync needs are modelled.
type Customer struct {
	ID            string    `gorm:"type:char(36);primary_key" json:"id"`
	TenantId      string    `gorm:"size:64;index" json:"tenant_id"`
	FirstName     string    `gorm:"size:100" json:"first_name"`
	LastName      string    `gorm:"size:100" json:"last_name"`
	BusinessName  string    `gorm:"size:255" json:"business_name"`
	Email         string    `gorm:"size:255;index" json:"email"`
	Phone         string    `gorm:"size:32" json:"phone"`
	AddressLine1  string    `gorm:"size:255" json:"address_line1"`
	AddressLine2  string    `gorm:"size:255" json:"address_line2"`
	City          string    `gorm:"size:100" json:"city"`
	State         string    `gorm:"size:50" json:"state"`
	ZipCode       string    `gorm:"size:20" json:"zip_code"`
	Country       string    `gorm:"size:50" json:"country"`
	MailboxNumber string    `gorm:"size:50;not null" json:"mailbox_number"`
	SyncState
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// FullName joins first and last name with a single space.
func (c Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

func GetUnsyncedCustomers(ctx context.Context, db *gorm.DB, limit int) ([]Customer, error) {
	var customers []Customer
	err := db.WithContext(ctx).
		Where("external_id IS NULL").
		Order("created_at").
		Limit(limit).
		Find(&customers).Error
	return customers, err
}

func CustomerExistsByExternalId(ctx context.Context, db *gorm.DB, externalId string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&Customer{}).
		Where("external_id = ?", externalId).
		Count(&count).Error
	return count > 0, err
}

func CreateCustomer(ctx context.Context, db *gorm.DB, customer *Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

// MarkCustomerSynced claims the ledger slot for a customer. Zero affected rows means
// another run reconciled it first.
func MarkCustomerSynced(ctx context.Context, db *gorm.DB, id string, externalId string, at time.Time) error {
	return claimSyncState(ctx, db, &Customer{}, id, externalId, at)
}

// claimSyncState writes the values SyncState.MarkSynced produces for an unsynced row.
// The WHERE external_id IS NULL guard is the database side of the same rule.
func claimSyncState(ctx context.Context, db *gorm.DB, model any, id string, externalId string, at time.Time) error {
	var state SyncState
	if err := state.MarkSynced(externalId, at); err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(model).
		Where("id = ? AND external_id IS NULL", id).
		Updates(map[string]interface{}{
			"external_id": *state.ExternalId,
			"synced_at":   *state.SyncedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyReconciled
	}
	return nil
}
