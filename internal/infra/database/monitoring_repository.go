package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/xavierca1/leadsync/internal/entity"
)

// MonitoringRepository concentra as consultas só-leitura do painel.
type MonitoringRepository struct {
	DB *sql.DB
}

func NewMonitoringRepository(db *sql.DB) *MonitoringRepository {
	return &MonitoringRepository{DB: db}
}

func (r *MonitoringRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func (r *MonitoringRepository) Stats(ctx context.Context) (*entity.SyncStats, error) {
	stats := &entity.SyncStats{LeadsByTab: []entity.TabCount{}}

	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads_data`).Scan(&stats.TotalLeads); err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT source_tab, COUNT(*)
		FROM leads_data
		GROUP BY source_tab
		ORDER BY COUNT(*) DESC, source_tab
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tc entity.TabCount
		if err := rows.Scan(&tc.SourceTab, &tc.Total); err != nil {
			return nil, err
		}
		stats.LeadsByTab = append(stats.LeadsByTab, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'SUCCESS'),
		       COUNT(*) FILTER (WHERE status <> 'SUCCESS')
		FROM sync_log
		WHERE started_at >= NOW() - INTERVAL '24 hours'
	`).Scan(&stats.RunsLast24h, &stats.SuccessLast24h, &stats.ErrorsLast24h)
	if err != nil {
		return nil, err
	}

	var (
		lastAt     sql.NullTime
		lastStatus sql.NullString
	)
	err = r.DB.QueryRowContext(ctx, `
		SELECT started_at, status FROM sync_log ORDER BY started_at DESC LIMIT 1
	`).Scan(&lastAt, &lastStatus)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if lastAt.Valid {
		stats.LastRunAt = &lastAt.Time
		stats.LastRunStatus = entity.SyncStatus(lastStatus.String)
	}

	var lastOK sql.NullTime
	err = r.DB.QueryRowContext(ctx, `
		SELECT MAX(finished_at) FROM sync_log WHERE status = 'SUCCESS'
	`).Scan(&lastOK)
	if err != nil {
		return nil, err
	}
	if lastOK.Valid {
		stats.LastSuccessfulAt = &lastOK.Time
	}

	return stats, nil
}

func (r *MonitoringRepository) RecentSyncRuns(ctx context.Context, limit int) ([]entity.SyncRunSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, source_id, tab_ids, status, processed, new_records, removed_records,
		       unchanged_records, failed_records, duration_ms, COALESCE(error_message, ''),
		       started_at, finished_at
		FROM sync_log
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []entity.SyncRunSummary{}
	for rows.Next() {
		var (
			s          entity.SyncRunSummary
			tabIDs     pq.Int64Array
			durationMS int64
		)
		if err := rows.Scan(
			&s.ID, &s.SourceID, &tabIDs, &s.Status, &s.Processed, &s.New, &s.Removed,
			&s.Unchanged, &s.Failed, &durationMS, &s.ErrorMessage, &s.StartedAt, &s.FinishedAt,
		); err != nil {
			return nil, err
		}
		s.TabIDs = tabIDs
		s.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

func (r *MonitoringRepository) LeadsByConsultant(ctx context.Context) ([]entity.ConsultantCount, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT COALESCE(consultor, 'Sem consultor'), COUNT(*)
		FROM leads_data
		GROUP BY 1
		ORDER BY 2 DESC, 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.ConsultantCount{}
	for rows.Next() {
		var c entity.ConsultantCount
		if err := rows.Scan(&c.Consultant, &c.Total); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *MonitoringRepository) ProcessingByStatus(ctx context.Context) ([]entity.StatusCount, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM bitrix_processing_log
		GROUP BY status
		ORDER BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.StatusCount{}
	for rows.Next() {
		var s entity.StatusCount
		if err := rows.Scan(&s.Status, &s.Total); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *MonitoringRepository) RecentProcessing(ctx context.Context, limit int) ([]entity.ProcessingRecord, error) {
	return r.queryProcessing(ctx, `TRUE`, limit)
}

func (r *MonitoringRepository) ProcessingErrors(ctx context.Context, limit int) ([]entity.ProcessingRecord, error) {
	return r.queryProcessing(ctx, `status IN ('FAILED', 'PARTIAL')`, limit)
}

func (r *MonitoringRepository) queryProcessing(ctx context.Context, where string, limit int) ([]entity.ProcessingRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, sync_run_id, fingerprint, cnpj, telefone, empresa, nome, consultor,
		       COALESCE(source_tab, ''), status, COALESCE(contact_action, ''), COALESCE(contact_id, 0),
		       COALESCE(deal_action, ''), COALESCE(deal_id, 0), COALESCE(error_message, ''),
		       warnings, processed_at
		FROM bitrix_processing_log
		WHERE `+where+`
		ORDER BY processed_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.ProcessingRecord{}
	for rows.Next() {
		var (
			rec      entity.ProcessingRecord
			runID    uuid.NullUUID
			warnings []byte
		)
		if err := rows.Scan(
			&rec.ID, &runID, &rec.Fingerprint,
			&rec.Lead.CNPJ, &rec.Lead.Phone, &rec.Lead.CompanyName, &rec.Lead.ContactName, &rec.Lead.Consultant,
			&rec.Lead.SourceTab, &rec.Status, &rec.ContactAction, &rec.ContactID,
			&rec.DealAction, &rec.DealID, &rec.ErrorMessage, &warnings, &rec.ProcessedAt,
		); err != nil {
			return nil, err
		}
		if runID.Valid {
			rec.SyncRunID = runID.UUID
		}
		if len(warnings) > 0 {
			_ = json.Unmarshal(warnings, &rec.Warnings)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
