package models

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrAlreadyReconciled is returned when a record already carries an external id.
	ErrAlreadyReconciled = errors.New("record already reconciled")
	ErrEmptyExternalId   = errors.New("external id is empty")
)

// SyncState is the reconciliation ledger entry carried by customers and invoices.
// Once ExternalId is set it is never cleared or replaced.
type SyncState struct {
	ExternalId *string    `gorm:"size:128;index" json:"external_id"`
	SyncedAt   *time.Time `json:"synced_at"`
}

func (s SyncState) IsReconciled() bool {
	return s.ExternalId != nil && *s.ExternalId != ""
}

func (s SyncState) ExternalIdValue() string {
	if s.ExternalId == nil {
		return ""
	}
	return *s.ExternalId
}

// MarkSynced records the provider id. Every ledger write goes through it: the
// claim helpers build their UPDATE from the state it produces.
func (s *SyncState) MarkSynced(externalId string, at time.Time) error {
	externalId = strings.TrimSpace(externalId)
	if externalId == "" {
		return ErrEmptyExternalId
	}
	if s.IsReconciled() {
		return ErrAlreadyReconciled
	}
	syncedAt := at.UTC()
	s.ExternalId = &externalId
	s.SyncedAt = &syncedAt
	return nil
}
