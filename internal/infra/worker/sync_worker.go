package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/http/middleware"
	"github.com/xavierca1/leadsync/internal/infra/mail"
	"github.com/xavierca1/leadsync/internal/infra/queue"
	"github.com/xavierca1/leadsync/internal/usecase"
)

const notifyTimeout = 10 * time.Second

type CycleExecutor interface {
	Execute(ctx context.Context, input usecase.SyncInput) (*entity.SyncRunResult, error)
}

type BatchExecutor interface {
	Execute(ctx context.Context, runID uuid.UUID, leads []entity.Lead) *usecase.BatchResult
}

type FailureAlerter interface {
	SendCycleFailure(alert mail.CycleFailureAlert) error
}

// SyncWorker agenda os ciclos. Em modo único chama RunOnce uma vez; em modo
// contínuo Start chama RunOnce a cada Interval.
type SyncWorker struct {
	Sync  CycleExecutor
	Batch BatchExecutor // nil desliga a reconciliação no Bitrix
	Input usecase.SyncInput

	Interval   time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// Leads que falharam no CRM em ciclos anteriores voltam ao lote até
	// MaxLeadAttempts falhas.
	Retryable       usecase.RetryableLeadSource // opcional
	MaxLeadAttempts int

	Publisher queue.EventPublisher // opcional
	Alerter   FailureAlerter       // opcional

	// Segura ciclo + lote juntos; o SyncLeadsUseCase só cobre o ciclo.
	guard sync.Mutex
}

func NewSyncWorker(cycle CycleExecutor, batch BatchExecutor, input usecase.SyncInput) *SyncWorker {
	return &SyncWorker{
		Sync:       cycle,
		Batch:      batch,
		Input:      input,
		Interval:   2 * time.Minute,
		MaxRetries: 3,
		RetryDelay: time.Minute,

		MaxLeadAttempts: 3,
	}
}

// IsBusy reconhece a recusa por ciclo em andamento, vinda do worker ou do use case.
func IsBusy(err error) bool {
	return errors.Is(err, queue.ErrBusy) || usecase.ErrorCode(err) == usecase.CodeCycleInProgress
}

func (w *SyncWorker) Start(ctx context.Context) {
	log.Printf("🕒 Sync Worker iniciado (intervalo %s, %d retentativas)", w.Interval, w.MaxRetries)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Sync Worker encerrado")
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *SyncWorker) runLogged(ctx context.Context) {
	if err := w.RunOnce(ctx); err != nil {
		if IsBusy(err) {
			log.Printf("⚠️ Ciclo anterior ainda em andamento, pulando")
			return
		}
		log.Printf("❌ Ciclo terminou com erro: %v", err)
	}
}

// RunOnce roda um ciclo com retentativas e, se ele der certo, reconcilia os
// leads novos no Bitrix. Devolve o erro do último ciclo tentado.
func (w *SyncWorker) RunOnce(ctx context.Context) error {
	if !w.guard.TryLock() {
		return fmt.Errorf("%w: %w", queue.ErrBusy, usecase.ErrCycleInProgress)
	}
	defer w.guard.Unlock()

	run, attempts, err := w.runWithRetry(ctx)
	if run == nil {
		return err
	}

	event := queue.NewCycleEvent(run, attempts)

	var leads []entity.Lead
	if err == nil && w.Batch != nil {
		leads = w.leadsToReconcile(ctx, run)
	}
	if len(leads) > 0 {
		batch := w.Batch.Execute(ctx, run.ID, leads)
		for _, item := range batch.Items {
			middleware.RecordReconciliation(item.Status)
			if item.Status == entity.ProcessingFailed || item.Status == entity.ProcessingPartial {
				middleware.RecordIntegrationError("bitrix")
			}
		}
		event.CRM = &queue.CRMSummary{
			Processed:  batch.Processed,
			Successful: batch.Successful,
			Partial:    batch.Partial,
			Failed:     batch.Failed,
			Skipped:    batch.Skipped,
		}
	}

	w.publish(ctx, event)

	if err != nil && run.Status == entity.SyncStatusError {
		w.alert(run, attempts)
	}
	return err
}

// leadsToReconcile junta os leads novos do ciclo com os que ficaram pendentes
// no CRM, sem repetir fingerprint.
func (w *SyncWorker) leadsToReconcile(ctx context.Context, run *entity.SyncRunResult) []entity.Lead {
	leads := append([]entity.Lead(nil), run.NewLeads...)
	if w.Retryable == nil || w.MaxLeadAttempts <= 0 {
		return leads
	}

	listCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	pending, err := w.Retryable.ListRetryableLeads(listCtx, w.MaxLeadAttempts)
	if err != nil {
		log.Printf("⚠️ Falha ao listar leads pendentes no CRM: %v", err)
		middleware.RecordIntegrationError("postgres")
		return leads
	}

	seen := make(map[string]bool, len(leads))
	for _, l := range leads {
		seen[l.Fingerprint()] = true
	}
	retried := 0
	for _, l := range pending {
		fp := l.Fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true
		leads = append(leads, l)
		retried++
	}
	if retried > 0 {
		log.Printf("🔄 %d leads pendentes de ciclos anteriores voltam ao lote", retried)
	}
	return leads
}

func (w *SyncWorker) runWithRetry(ctx context.Context) (*entity.SyncRunResult, int, error) {
	var (
		run *entity.SyncRunResult
		err error
	)

	maxAttempts := 1 + max(w.MaxRetries, 0)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		run, err = w.Sync.Execute(ctx, w.Input)
		if IsBusy(err) {
			return nil, attempt, err
		}
		if run != nil {
			middleware.RecordCycle(run)
		}
		if err == nil {
			return run, attempt, nil
		}

		recordIntegrationError(err)

		if usecase.ErrorCode(err) == usecase.CodeCycleCancelled || ctx.Err() != nil {
			log.Printf("⚠️ Ciclo cancelado, sem retentativa")
			return run, attempt, err
		}
		if attempt == maxAttempts {
			log.Printf("❌ Máximo de tentativas (%d) excedido: %v", w.MaxRetries, err)
			return run, attempt, err
		}

		log.Printf("⚠️ Tentativa %d/%d após falha: %v", attempt, w.MaxRetries, err)
		middleware.RecordRetry()
		if !sleep(ctx, w.RetryDelay) {
			return run, attempt, err
		}
	}
	return run, maxAttempts, err
}

func recordIntegrationError(err error) {
	switch usecase.ErrorCode(err) {
	case usecase.CodeSourceFetch:
		middleware.RecordIntegrationError("sheets")
	case usecase.CodeStorage:
		middleware.RecordIntegrationError("postgres")
	}
}

func (w *SyncWorker) publish(ctx context.Context, event queue.CycleEvent) {
	if w.Publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := w.Publisher.PublishCycleCompleted(pubCtx, event); err != nil {
		log.Printf("⚠️ Falha ao publicar evento do ciclo %s: %v", event.SyncRunID, err)
		middleware.RecordIntegrationError("rabbitmq")
	}
}

func (w *SyncWorker) alert(run *entity.SyncRunResult, attempts int) {
	if w.Alerter == nil {
		return
	}
	err := w.Alerter.SendCycleFailure(mail.CycleFailureAlert{
		SyncRunID:    run.ID,
		SourceID:     run.SourceID,
		Status:       string(run.Status),
		Attempts:     attempts,
		ErrorMessage: run.ErrorMessage,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	})
	if err != nil {
		log.Printf("⚠️ Falha ao enviar alerta do ciclo %s: %v", run.ID, err)
		middleware.RecordIntegrationError("smtp")
	}
}

// sleep espera d ou até o ctx acabar; devolve false se foi cancelado.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
