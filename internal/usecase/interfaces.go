package usecase

import (
	"context"

	"github.com/xavierca1/leadsync/internal/entity"
)

// SpreadsheetSource busca uma aba inteira (Google Sheets).
type SpreadsheetSource interface {
	FetchRows(ctx context.Context, sourceID string, tabID int64) (*entity.SheetTab, error)
}

// LeadSnapshotRepository é o Snapshot Store: tabela leads_data.
type LeadSnapshotRepository interface {
	ListLeads(ctx context.Context) ([]entity.Lead, error)
	// ReplaceAll troca todo o conteúdo numa única transação.
	ReplaceAll(ctx context.Context, leads []entity.Lead) error
}

// SyncRunRepository é o log append-only de ciclos.
type SyncRunRepository interface {
	SaveSyncRun(ctx context.Context, run *entity.SyncRunResult) error
}

// ProcessingLogRepository é o log de auditoria do CRM.
type ProcessingLogRepository interface {
	SaveProcessingRecord(ctx context.Context, rec *entity.ProcessingRecord) error
}

// RetryableLeadSource devolve leads do snapshot que ainda não chegaram ao CRM
// por falha ou cancelamento do lote.
type RetryableLeadSource interface {
	ListRetryableLeads(ctx context.Context, maxAttempts int) ([]entity.Lead, error)
}

// CRMClient é a capacidade mínima do CRM usada pelo reconciliador.
type CRMClient interface {
	FindEntities(ctx context.Context, kind entity.CRMKind, criteria entity.CRMCriteria) ([]entity.CRMRecord, error)
	CreateEntity(ctx context.Context, kind entity.CRMKind, fields entity.CRMFields) (int, error)
	UpdateEntity(ctx context.Context, kind entity.CRMKind, id int, fields entity.CRMFields) error
	ListUsers(ctx context.Context, filter map[string]string) ([]entity.CRMUser, error)
	ListPipelineStages(ctx context.Context, pipelineID int) ([]entity.PipelineStage, error)
}

// DealReconciler é implementado por ReconcileDealUseCase.
type DealReconciler interface {
	Execute(ctx context.Context, lead entity.Lead) (*ReconcileOutcome, error)
}
