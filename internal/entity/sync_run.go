package entity

import (
	"time"

	"github.com/google/uuid"
)

type SyncStatus string

const (
	SyncStatusSuccess   SyncStatus = "SUCCESS"
	SyncStatusError     SyncStatus = "ERROR"
	SyncStatusCancelled SyncStatus = "CANCELLED"
)

type ChangeKind string

const (
	ChangeNew       ChangeKind = "new"
	ChangeRemoved   ChangeKind = "removed"
	ChangeUnchanged ChangeKind = "unchanged"
)

// ChangeDescriptor guarda o suficiente do lead para auditoria.
type ChangeDescriptor struct {
	Fingerprint string     `json:"fingerprint"`
	Kind        ChangeKind `json:"kind"`
	CNPJ        string     `json:"cnpj,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	CompanyName string     `json:"company_name,omitempty"`
	ContactName string     `json:"contact_name,omitempty"`
	Consultant  string     `json:"consultant,omitempty"`
	SourceTab   string     `json:"source_tab,omitempty"`
}

func NewChangeDescriptor(kind ChangeKind, l Lead) ChangeDescriptor {
	return ChangeDescriptor{
		Fingerprint: l.Fingerprint(),
		Kind:        kind,
		CNPJ:        Value(l.CNPJ),
		Phone:       Value(l.Phone),
		CompanyName: Value(l.CompanyName),
		ContactName: Value(l.ContactName),
		Consultant:  Value(l.Consultant),
		SourceTab:   l.SourceTab,
	}
}

// TabSummary é informativa: fingerprints são globais entre abas.
type TabSummary struct {
	TabID      int64  `json:"tab_id"`
	TabName    string `json:"tab_name"`
	TotalRows  int    `json:"total_rows"`
	Eligible   int    `json:"eligible"`
	Ineligible int    `json:"ineligible"`
	Duplicates int    `json:"duplicates"`
}

// SyncRunResult é o resultado imutável de um ciclo; vira uma linha no sync_log.
type SyncRunResult struct {
	ID           uuid.UUID          `json:"id"`
	SourceID     string             `json:"source_id"`
	TabIDs       []int64            `json:"tab_ids"`
	Status       SyncStatus         `json:"status"`
	Processed    int                `json:"processed"`
	New          int                `json:"new"`
	Removed      int                `json:"removed"`
	Unchanged    int                `json:"unchanged"`
	Failed       int                `json:"failed"`
	Changes      []ChangeDescriptor `json:"changes"`
	Tabs         []TabSummary       `json:"tabs"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	Duration     time.Duration      `json:"duration"`
	ErrorMessage string             `json:"error_message,omitempty"`

	// Leads novos, na ordem dos fingerprints; entrada do Batch Coordinator.
	// Não é persistido.
	NewLeads []Lead `json:"-"`
}

func NewSyncRunResult(sourceID string, tabIDs []int64) *SyncRunResult {
	return &SyncRunResult{
		ID:        uuid.New(),
		SourceID:  sourceID,
		TabIDs:    tabIDs,
		Status:    SyncStatusSuccess,
		StartedAt: time.Now(),
	}
}

func (r *SyncRunResult) Succeeded() bool {
	return r.Status == SyncStatusSuccess
}
