package usecase

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/leadsync/internal/entity"
)

const defaultAuditTimeout = 10 * time.Second

// ReconcileBatchUseCase processa os leads em sequência, na ordem de entrada.
// A falha de um lead nunca interrompe o lote.
type ReconcileBatchUseCase struct {
	Reconciler DealReconciler
	AuditRepo  ProcessingLogRepository
}

func NewReconcileBatchUseCase(reconciler DealReconciler, auditRepo ProcessingLogRepository) *ReconcileBatchUseCase {
	return &ReconcileBatchUseCase{Reconciler: reconciler, AuditRepo: auditRepo}
}

func (uc *ReconcileBatchUseCase) Execute(ctx context.Context, runID uuid.UUID, leads []entity.Lead) *BatchResult {
	started := time.Now()
	result := &BatchResult{SyncRunID: runID, Items: make([]BatchItem, 0, len(leads))}

	log.Printf("🚀 Enviando %d leads ao Bitrix (ciclo %s)", len(leads), runID)

	cancelled := false
	for i, lead := range leads {
		var item BatchItem
		if err := ctx.Err(); err != nil {
			// Os restantes ficam registrados como falha para serem reoferecidos.
			if !cancelled {
				log.Printf("⚠️ Lote interrompido no item %d de %d: %v", i+1, len(leads), err)
				cancelled = true
			}
			item = cancelledItem(lead, err)
		} else {
			item = uc.processOne(ctx, lead)
		}
		result.Items = append(result.Items, item)
		result.Processed++

		switch item.Status {
		case entity.ProcessingSuccess:
			result.Successful++
		case entity.ProcessingPartial:
			result.Partial++
		case entity.ProcessingSkipped:
			result.Skipped++
		default:
			result.Failed++
		}

		uc.audit(ctx, runID, item)
	}

	result.Duration = time.Since(started)
	log.Printf("📊 Lote concluído: %d sucesso, %d parciais, %d falhas, %d ignorados",
		result.Successful, result.Partial, result.Failed, result.Skipped)
	return result
}

func (uc *ReconcileBatchUseCase) processOne(ctx context.Context, lead entity.Lead) (item BatchItem) {
	item = BatchItem{Lead: lead}

	// Panic num lead vira falha daquele lead.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic ao reconciliar lead: %v", r)
			item.Status = entity.ProcessingFailed
			item.Error = "panic durante a reconciliação"
		}
	}()

	outcome, err := uc.Reconciler.Execute(ctx, lead)
	item.Outcome = outcome
	if err == nil {
		item.Status = entity.ProcessingSuccess
		return item
	}

	item.Err = err
	item.Error = err.Error()
	switch {
	case IsDomainError(err):
		item.Status = entity.ProcessingSkipped
		log.Printf("⚠️ Lead ignorado: %v", err)
	case outcome != nil && outcome.Partial():
		item.Status = entity.ProcessingPartial
		log.Printf("⚠️ Lead parcial: %v", err)
	default:
		item.Status = entity.ProcessingFailed
		log.Printf("❌ Falha ao reconciliar lead: %v", err)
	}
	return item
}

func (uc *ReconcileBatchUseCase) audit(ctx context.Context, runID uuid.UUID, item BatchItem) {
	if uc.AuditRepo == nil {
		return
	}

	rec := NewProcessingRecord(runID, item)

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultAuditTimeout)
	defer cancel()
	if err := uc.AuditRepo.SaveProcessingRecord(auditCtx, rec); err != nil {
		log.Printf("❌ Falha ao gravar auditoria do lead %s: %v", rec.Fingerprint, err)
	}
}

func cancelledItem(lead entity.Lead, err error) BatchItem {
	cerr := NewBatchCancelledError(err)
	return BatchItem{
		Lead:   lead,
		Status: entity.ProcessingFailed,
		Err:    cerr,
		Error:  cerr.Error(),
	}
}

// NewProcessingRecord monta a linha de auditoria a partir do item do lote.
func NewProcessingRecord(runID uuid.UUID, item BatchItem) *entity.ProcessingRecord {
	rec := &entity.ProcessingRecord{
		SyncRunID:    runID,
		Lead:         item.Lead,
		Fingerprint:  item.Lead.Fingerprint(),
		Status:       item.Status,
		ErrorMessage: item.Error,
		ProcessedAt:  time.Now(),
	}
	if o := item.Outcome; o != nil {
		rec.ContactAction = o.Contact.Action
		rec.ContactID = o.Contact.ID
		rec.DealAction = o.Deal.Action
		rec.DealID = o.Deal.ID
		for _, w := range o.Warnings {
			rec.Warnings = append(rec.Warnings, w.String())
		}
	}
	return rec
}
