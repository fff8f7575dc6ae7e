package usecase

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/xavierca1/leadsync/internal/entity"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultStoreTimeout = 30 * time.Second
)

// SyncLeadsUseCase executa um ciclo: busca todas as abas, detecta mudanças,
// substitui o snapshot numa transação e grava o sync_log.
type SyncLeadsUseCase struct {
	Source   SpreadsheetSource
	LeadRepo LeadSnapshotRepository
	RunRepo  SyncRunRepository

	FetchTimeout time.Duration
	StoreTimeout time.Duration

	running sync.Mutex
}

func NewSyncLeadsUseCase(
	source SpreadsheetSource,
	leadRepo LeadSnapshotRepository,
	runRepo SyncRunRepository,
) *SyncLeadsUseCase {
	return &SyncLeadsUseCase{
		Source:       source,
		LeadRepo:     leadRepo,
		RunRepo:      runRepo,
		FetchTimeout: defaultFetchTimeout,
		StoreTimeout: defaultStoreTimeout,
	}
}

// Execute sempre devolve um resultado. O erro, quando houver, é classificado
// (TechnicalError) e o resultado já foi gravado no sync_log.
func (uc *SyncLeadsUseCase) Execute(ctx context.Context, input SyncInput) (*entity.SyncRunResult, error) {
	result := entity.NewSyncRunResult(input.SpreadsheetID, input.TabIDs)

	if !uc.running.TryLock() {
		result.Status = entity.SyncStatusError
		result.ErrorMessage = ErrCycleInProgress.Error()
		result.FinishedAt = time.Now()
		return result, ErrCycleInProgress
	}
	defer uc.running.Unlock()

	log.Printf("🔄 Iniciando ciclo %s (%d abas)", result.ID, len(input.TabIDs))

	cycleErr := uc.runCycle(ctx, input, result)
	if cycleErr != nil {
		result.ErrorMessage = cycleErr.Error()
		result.Status = entity.SyncStatusError
		if ErrorCode(cycleErr) == CodeCycleCancelled {
			result.Status = entity.SyncStatusCancelled
		}
	}

	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	// O log é gravado mesmo com o ctx cancelado.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.storeTimeout())
	defer cancel()
	if err := uc.RunRepo.SaveSyncRun(logCtx, result); err != nil {
		log.Printf("❌ Falha ao gravar sync_log do ciclo %s: %v", result.ID, err)
		if cycleErr == nil {
			cycleErr = NewStorageError("save_sync_run", err)
		}
	}

	if cycleErr != nil {
		log.Printf("❌ Ciclo %s terminou com status %s: %v", result.ID, result.Status, cycleErr)
		return result, cycleErr
	}

	log.Printf("🎉 Ciclo %s concluído em %s: %d processados, %d novos, %d removidos, %d inalterados",
		result.ID, result.Duration.Round(time.Millisecond), result.Processed, result.New, result.Removed, result.Unchanged)
	return result, nil
}

func (uc *SyncLeadsUseCase) runCycle(ctx context.Context, input SyncInput, result *entity.SyncRunResult) error {
	// 1. Todas as abas primeiro. Leitura parcial corromperia os "removidos".
	tabs := make([]*entity.SheetTab, 0, len(input.TabIDs))
	for _, tabID := range input.TabIDs {
		if err := ctx.Err(); err != nil {
			return newCancelledError(err)
		}
		tab, err := uc.fetchTab(ctx, input.SpreadsheetID, tabID)
		if err != nil {
			if ctx.Err() != nil {
				return newCancelledError(ctx.Err())
			}
			return NewSourceFetchError(tabID, err)
		}
		log.Printf("📊 Aba '%s' (%d): %d linhas", tab.Name, tabID, len(tab.Rows))
		tabs = append(tabs, tab)
	}

	// 2. Normalização + snapshot da fonte
	src := NewSnapshot(nil)
	for _, tab := range tabs {
		normalized := NormalizeTab(tab)
		for _, lead := range normalized.Leads {
			if !src.Add(lead) {
				normalized.Summary.Duplicates++
			}
		}
		result.Tabs = append(result.Tabs, normalized.Summary)
	}
	result.Processed = src.Len()
	if src.Duplicates > 0 {
		log.Printf("⚠️ %d registros duplicados colapsados (mesmo conteúdo)", src.Duplicates)
	}

	// 3. Snapshot do banco
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout())
	defer cancel()

	current, err := uc.LeadRepo.ListLeads(storeCtx)
	if err != nil {
		if ctx.Err() != nil {
			return newCancelledError(ctx.Err())
		}
		return NewStorageError("list_leads", err)
	}
	db := NewSnapshot(current)

	// 4. Diferenças
	changes := DetectChanges(db, src)
	result.New = len(changes.New)
	result.Removed = len(changes.Removed)
	result.Unchanged = len(changes.Unchanged)
	result.Changes = changes.Descriptors()
	result.NewLeads = changes.New
	log.Printf("🔍 Mudanças detectadas: %d novos, %d removidos, %d inalterados", result.New, result.Removed, result.Unchanged)

	// 5. Ponto de commit: cancelamento aqui ainda não toca no banco.
	if err := ctx.Err(); err != nil {
		return newCancelledError(err)
	}

	if err := uc.LeadRepo.ReplaceAll(storeCtx, src.Leads()); err != nil {
		result.Failed = src.Len()
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return newCancelledError(err)
		}
		return NewStorageError("replace_all", err)
	}
	log.Printf("💾 %d registros gravados em leads_data", src.Len())

	return nil
}

func (uc *SyncLeadsUseCase) fetchTab(ctx context.Context, sourceID string, tabID int64) (*entity.SheetTab, error) {
	timeout := uc.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tab, err := uc.Source.FetchRows(fetchCtx, sourceID, tabID)
	if err != nil {
		return nil, err
	}
	if tab.TabID == 0 {
		tab.TabID = tabID
	}
	return tab, nil
}

func (uc *SyncLeadsUseCase) storeTimeout() time.Duration {
	if uc.StoreTimeout <= 0 {
		return defaultStoreTimeout
	}
	return uc.StoreTimeout
}
