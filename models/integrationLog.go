package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IntegrationLog is one row per sync invocation. Rows are never updated.
type IntegrationLog struct {
	ID              string    `gorm:"type:char(36);primary_key" json:"id"`
	TenantId        string    `gorm:"size:64;index" json:"tenant_id"`
	IntegrationId   string    `gorm:"type:char(36);index;not null" json:"integration_id"`
	RequestType     string    `gorm:"size:20;not null" json:"request_type"`
	Endpoint        string    `gorm:"size:50" json:"endpoint"`
	StatusCode      int       `json:"status_code"`
	ResponseData    []byte    `gorm:"type:json" json:"response_data"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	ErrorMessage    *string   `gorm:"type:text" json:"error_message"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (l *IntegrationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func CreateIntegrationLog(ctx context.Context, db *gorm.DB, entry *IntegrationLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

func ListIntegrationLogs(ctx context.Context, db *gorm.DB, integrationId string, limit int) ([]IntegrationLog, error) {
	var logs []IntegrationLog
	err := db.WithContext(ctx).
		Where("integration_id = ?", integrationId).
		Order("created_at desc").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
