package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/mailroom_backend/utils"
	"gorm.io/gorm"
)

var ErrUnsupportedProvider = errors.New("unsupported accounting service")

// Integration is one tenant's connection to an external accounting provider.
type Integration struct {
	ID              string      `gorm:"type:char(36);primary_key" json:"id"`
	TenantId        string      `gorm:"size:64;index;not null" json:"tenant_id"`
	ServiceType     string      `gorm:"size:50;index;not null" json:"service_type"`
	ServiceName     ServiceName `gorm:"size:50;not null" json:"service_name"`
	CredentialsJSON []byte      `gorm:"column:credentials;type:json" json:"-"`
	LastSyncAt      *time.Time  `json:"last_sync_at"`
	LastError       *string     `gorm:"type:text" json:"last_error"`
	CreatedAt       time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i *Integration) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Credentials is implemented by exactly one type per ServiceName.
type Credentials interface {
	ServiceName() ServiceName
}

type QuickBooksCredentials struct {
	AccessToken string `json:"access_token"`
	CompanyId   string `json:"company_id"`
	// Environment is "sandbox" (default) or "production".
	Environment string `json:"environment"`
}

func (QuickBooksCredentials) ServiceName() ServiceName { return ServiceNameQuickBooks }

type XeroCredentials struct {
	AccessToken string `json:"access_token"`
	TenantId    string `json:"tenant_id"`
}

func (XeroCredentials) ServiceName() ServiceName { return ServiceNameXero }

// DecodeCredentials resolves the stored credential blob into its typed variant.
func (i Integration) DecodeCredentials() (Credentials, error) {
	switch i.ServiceName {
	case ServiceNameQuickBooks:
		var c QuickBooksCredentials
		if err := decodeCredentialJSON(i.CredentialsJSON, &c); err != nil {
			return nil, err
		}
		if strings.TrimSpace(c.AccessToken) == "" || strings.TrimSpace(c.CompanyId) == "" {
			return nil, errors.New("quickbooks credentials require access_token and company_id")
		}
		return c, nil
	case ServiceNameXero:
		var c XeroCredentials
		if err := decodeCredentialJSON(i.CredentialsJSON, &c); err != nil {
			return nil, err
		}
		if strings.TrimSpace(c.AccessToken) == "" || strings.TrimSpace(c.TenantId) == "" {
			return nil, errors.New("xero credentials require access_token and tenant_id")
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, i.ServiceName)
	}
}

func decodeCredentialJSON(raw []byte, dest any) error {
	if len(raw) == 0 {
		return errors.New("integration credentials are empty")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode integration credentials: %w", err)
	}
	return nil
}

// GetAccountingIntegration loads an integration whose service_type is accounting.
func GetAccountingIntegration(ctx context.Context, db *gorm.DB, id string) (*Integration, error) {
	var integration Integration
	err := db.WithContext(ctx).
		Where("id = ? AND service_type = ?", id, ServiceTypeAccounting).
		Take(&integration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &integration, nil
}

// UpdateIntegrationSyncStatus stamps last_sync_at and replaces last_error (nil clears it).
func UpdateIntegrationSyncStatus(ctx context.Context, db *gorm.DB, id string, at time.Time, lastError *string) error {
	return db.WithContext(ctx).
		Model(&Integration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_sync_at": at,
			"last_error":   lastError,
		}).Error
}
