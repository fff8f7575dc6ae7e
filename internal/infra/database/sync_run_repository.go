package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/xavierca1/leadsync/internal/entity"
)

// SyncRunRepository grava o sync_log. Append-only.
type SyncRunRepository struct {
	DB *sql.DB
}

func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{DB: db}
}

type syncRunDetails struct {
	Changes []entity.ChangeDescriptor `json:"changes"`
	Tabs    []entity.TabSummary       `json:"tabs"`
}

func (r *SyncRunRepository) SaveSyncRun(ctx context.Context, run *entity.SyncRunResult) error {
	details, err := json.Marshal(syncRunDetails{Changes: run.Changes, Tabs: run.Tabs})
	if err != nil {
		return fmt.Errorf("serializar detalhes: %w", err)
	}

	query := `
		INSERT INTO sync_log (
			id, source_id, tab_ids, status, processed, new_records, removed_records,
			unchanged_records, failed_records, duration_ms, error_message, details,
			started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	tabIDs := run.TabIDs
	if tabIDs == nil {
		tabIDs = []int64{}
	}

	_, err = r.DB.ExecContext(ctx, query,
		run.ID,
		run.SourceID,
		pq.Array(tabIDs),
		string(run.Status),
		run.Processed,
		run.New,
		run.Removed,
		run.Unchanged,
		run.Failed,
		run.Duration.Milliseconds(),
		sql.NullString{String: run.ErrorMessage, Valid: run.ErrorMessage != ""},
		details,
		run.StartedAt,
		run.FinishedAt,
	)
	return err
}
