package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/leadsync/internal/entity"
)

type SyncInput struct {
	SpreadsheetID string  `json:"spreadsheet_id"`
	TabIDs        []int64 `json:"tab_ids"`
}

// ResolutionState é o estado final da máquina de busca-ou-criação de uma entidade.
type ResolutionState string

const (
	StatePending  ResolutionState = "pending"
	StateResolved ResolutionState = "resolved"
	StateFailed   ResolutionState = "failed"
)

type EntityResolution struct {
	State      ResolutionState     `json:"state"`
	Action     entity.EntityAction `json:"action,omitempty"`
	ID         int                 `json:"id,omitempty"`
	Duplicates int                 `json:"duplicates,omitempty"`
}

// ReconcileOutcome é o resultado de reconcileDeal. Em falha parcial
// (contato resolvido, deal não) Contact fica resolved e Deal failed.
type ReconcileOutcome struct {
	Contact  EntityResolution    `json:"contact"`
	Deal     EntityResolution    `json:"deal"`
	OwnerID  int                 `json:"owner_id,omitempty"`
	Warnings []ResolutionWarning `json:"warnings,omitempty"`
	Message  string              `json:"message"`
}

func (o *ReconcileOutcome) Partial() bool {
	return o.Contact.State == StateResolved && o.Deal.State != StateResolved
}

type BatchItem struct {
	Lead    entity.Lead             `json:"lead"`
	Status  entity.ProcessingStatus `json:"status"`
	Outcome *ReconcileOutcome       `json:"outcome,omitempty"`
	Err     error                   `json:"-"`
	Error   string                  `json:"error,omitempty"`
}

type BatchResult struct {
	SyncRunID  uuid.UUID     `json:"sync_run_id"`
	Items      []BatchItem   `json:"items"`
	Processed  int           `json:"processed"`
	Successful int           `json:"successful"`
	Partial    int           `json:"partial"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
}
