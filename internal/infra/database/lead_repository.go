package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/xavierca1/leadsync/internal/entity"
)

var ErrDuplicateFingerprint = errors.New("fingerprint duplicado no snapshot")

// LeadRepository é o Snapshot Store sobre leads_data.
type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) ListLeads(ctx context.Context) ([]entity.Lead, error) {
	query := `
		SELECT id, data, cnpj, telefone, nome, empresa, consultor, forma_prospeccao, etapa,
		       source_tab, created_at, updated_at
		FROM leads_data
		ORDER BY id
	`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLeads(rows)
}

// scanLeads lê linhas com as colunas de leads_data na ordem do SELECT de ListLeads.
func scanLeads(rows *sql.Rows) ([]entity.Lead, error) {
	var leads []entity.Lead
	for rows.Next() {
		var (
			l    entity.Lead
			date sql.NullTime
		)
		if err := rows.Scan(
			&l.ID,
			&date,
			&l.CNPJ,
			&l.Phone,
			&l.ContactName,
			&l.CompanyName,
			&l.Consultant,
			&l.ProspectingMethod,
			&l.StageLabel,
			&l.SourceTab,
			&l.CreatedAt,
			&l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if date.Valid {
			d := date.Time.UTC()
			l.ReferenceDate = &d
		}
		leads = append(leads, l)
	}

	return leads, rows.Err()
}

// ReplaceAll apaga e recarrega leads_data numa única transação.
// Qualquer erro faz rollback e o snapshot anterior continua intacto.
func (r *LeadRepository) ReplaceAll(ctx context.Context, leads []entity.Lead) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("iniciar transação: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Printf("❌ Rollback falhou: %v", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM leads_data`); err != nil {
		return fmt.Errorf("limpar leads_data: %w", err)
	}

	if len(leads) > 0 {
		if err = insertLeads(ctx, tx, leads); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertLeads envia todas as colunas como arrays e deixa o unnest montar as linhas.
func insertLeads(ctx context.Context, tx *sql.Tx, leads []entity.Lead) error {
	n := len(leads)
	var (
		dates        = make([]sql.NullString, n)
		cnpjs        = make([]sql.NullString, n)
		phones       = make([]sql.NullString, n)
		names        = make([]sql.NullString, n)
		companies    = make([]sql.NullString, n)
		consultants  = make([]sql.NullString, n)
		methods      = make([]sql.NullString, n)
		stages       = make([]sql.NullString, n)
		tabs         = make([]string, n)
		fingerprints = make([]string, n)
	)

	for i, l := range leads {
		if l.ReferenceDate != nil {
			dates[i] = sql.NullString{String: l.ReferenceDate.Format(time.DateOnly), Valid: true}
		}
		cnpjs[i] = nullable(l.CNPJ)
		phones[i] = nullable(l.Phone)
		names[i] = nullable(l.ContactName)
		companies[i] = nullable(l.CompanyName)
		consultants[i] = nullable(l.Consultant)
		methods[i] = nullable(l.ProspectingMethod)
		stages[i] = nullable(l.StageLabel)
		tabs[i] = l.SourceTab
		fingerprints[i] = l.Fingerprint()
	}

	query := `
		INSERT INTO leads_data
			(data, cnpj, telefone, nome, empresa, consultor, forma_prospeccao, etapa, source_tab, fingerprint)
		SELECT * FROM unnest(
			$1::date[], $2::text[], $3::text[], $4::text[], $5::text[],
			$6::text[], $7::text[], $8::text[], $9::text[], $10::text[]
		)
	`

	_, err := tx.ExecContext(ctx, query,
		pq.Array(dates),
		pq.Array(cnpjs),
		pq.Array(phones),
		pq.Array(names),
		pq.Array(companies),
		pq.Array(consultants),
		pq.Array(methods),
		pq.Array(stages),
		pq.Array(tabs),
		pq.Array(fingerprints),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateFingerprint
		}
		return fmt.Errorf("inserir %d leads: %w", n, err)
	}
	return nil
}

func nullable(s *string) sql.NullString {
	v := entity.Value(s)
	return sql.NullString{String: v, Valid: v != ""}
}
