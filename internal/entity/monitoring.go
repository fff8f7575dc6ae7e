package entity

import (
	"time"

	"github.com/google/uuid"
)

// Modelos de leitura do painel de monitoramento.

type TabCount struct {
	SourceTab string `json:"source_tab"`
	Total     int    `json:"total"`
}

type SyncStats struct {
	TotalLeads       int        `json:"total_leads"`
	LeadsByTab       []TabCount `json:"leads_by_tab"`
	RunsLast24h      int        `json:"runs_last_24h"`
	SuccessLast24h   int        `json:"success_last_24h"`
	ErrorsLast24h    int        `json:"errors_last_24h"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus    SyncStatus `json:"last_run_status,omitempty"`
	LastSuccessfulAt *time.Time `json:"last_successful_at,omitempty"`
}

type SyncRunSummary struct {
	ID           uuid.UUID     `json:"id"`
	SourceID     string        `json:"source_id"`
	TabIDs       []int64       `json:"tab_ids"`
	Status       SyncStatus    `json:"status"`
	Processed    int           `json:"processed"`
	New          int           `json:"new"`
	Removed      int           `json:"removed"`
	Unchanged    int           `json:"unchanged"`
	Failed       int           `json:"failed"`
	Duration     time.Duration `json:"duration"`
	ErrorMessage string        `json:"error_message,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

type ConsultantCount struct {
	Consultant string `json:"consultant"`
	Total      int    `json:"total"`
}

type StatusCount struct {
	Status ProcessingStatus `json:"status"`
	Total  int              `json:"total"`
}
