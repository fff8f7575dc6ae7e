package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/xavierca1/leadsync/internal/entity"
)

// ProcessingLogRepository grava bitrix_processing_log, uma linha por tentativa.
type ProcessingLogRepository struct {
	DB *sql.DB
}

func NewProcessingLogRepository(db *sql.DB) *ProcessingLogRepository {
	return &ProcessingLogRepository{DB: db}
}

func (r *ProcessingLogRepository) SaveProcessingRecord(ctx context.Context, rec *entity.ProcessingRecord) error {
	warnings := rec.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bitrix_processing_log (
			sync_run_id, fingerprint, cnpj, telefone, empresa, nome, consultor, source_tab,
			status, contact_action, contact_id, deal_action, deal_id, error_message, warnings,
			processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`

	var runID uuid.NullUUID
	if rec.SyncRunID != uuid.Nil {
		runID = uuid.NullUUID{UUID: rec.SyncRunID, Valid: true}
	}

	return r.DB.QueryRowContext(ctx, query,
		runID,
		rec.Fingerprint,
		nullable(rec.Lead.CNPJ),
		nullable(rec.Lead.Phone),
		nullable(rec.Lead.CompanyName),
		nullable(rec.Lead.ContactName),
		nullable(rec.Lead.Consultant),
		rec.Lead.SourceTab,
		string(rec.Status),
		nullAction(rec.ContactAction),
		nullID(rec.ContactID),
		nullAction(rec.DealAction),
		nullID(rec.DealID),
		sql.NullString{String: rec.ErrorMessage, Valid: rec.ErrorMessage != ""},
		warningsJSON,
		rec.ProcessedAt,
	).Scan(&rec.ID)
}

func nullAction(a entity.EntityAction) sql.NullString {
	return sql.NullString{String: string(a), Valid: a != entity.ActionNone}
}

func nullID(id int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id > 0}
}

// ListRetryableLeads devolve os leads ainda presentes em leads_data cuja
// reconciliação falhou (inclusive por lote cancelado) e nunca terminou em
// SUCCESS, PARTIAL ou SKIPPED, com menos de maxAttempts falhas registradas.
func (r *ProcessingLogRepository) ListRetryableLeads(ctx context.Context, maxAttempts int) ([]entity.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT l.id, l.data, l.cnpj, l.telefone, l.nome, l.empresa, l.consultor,
		       l.forma_prospeccao, l.etapa, l.source_tab, l.created_at, l.updated_at
		FROM leads_data l
		JOIN (
			SELECT fingerprint, COUNT(*) AS failures
			FROM bitrix_processing_log
			WHERE status = 'FAILED'
			GROUP BY fingerprint
		) f ON f.fingerprint = l.fingerprint
		WHERE f.failures < $1
		  AND NOT EXISTS (
			SELECT 1 FROM bitrix_processing_log p
			WHERE p.fingerprint = l.fingerprint
			  AND p.status IN ('SUCCESS', 'PARTIAL', 'SKIPPED')
		  )
		ORDER BY l.id
	`, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLeads(rows)
}
