package entity

import (
	"time"

	"github.com/google/uuid"
)

type ProcessingStatus string

const (
	ProcessingSuccess ProcessingStatus = "SUCCESS"
	ProcessingPartial ProcessingStatus = "PARTIAL" // contato resolvido, deal falhou
	ProcessingFailed  ProcessingStatus = "FAILED"
	ProcessingSkipped ProcessingStatus = "SKIPPED"
)

type EntityAction string

const (
	ActionNone    EntityAction = ""
	ActionCreated EntityAction = "created"
	ActionUpdated EntityAction = "updated"
)

// ProcessingRecord é a linha de auditoria do bitrix_processing_log.
// Append-only: uma por tentativa.
type ProcessingRecord struct {
	ID            int64            `json:"id,omitempty"`
	SyncRunID     uuid.UUID        `json:"sync_run_id"`
	Lead          Lead             `json:"lead"`
	Fingerprint   string           `json:"fingerprint"`
	Status        ProcessingStatus `json:"status"`
	ContactAction EntityAction     `json:"contact_action,omitempty"`
	ContactID     int              `json:"contact_id,omitempty"`
	DealAction    EntityAction     `json:"deal_action,omitempty"`
	DealID        int              `json:"deal_id,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`
	ProcessedAt   time.Time        `json:"processed_at"`
}
