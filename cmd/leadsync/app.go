package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/xavierca1/leadsync/internal/config"
	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/database"
	"github.com/xavierca1/leadsync/internal/infra/http/handlers"
	"github.com/xavierca1/leadsync/internal/infra/integration/bitrix"
	"github.com/xavierca1/leadsync/internal/infra/integration/sheets"
	"github.com/xavierca1/leadsync/internal/infra/mail"
	"github.com/xavierca1/leadsync/internal/infra/queue"
	"github.com/xavierca1/leadsync/internal/infra/worker"
	"github.com/xavierca1/leadsync/internal/usecase"
)

// app junta as dependências criadas uma única vez na subida do processo.
type app struct {
	cfg    *config.Config
	DB     *sql.DB
	Rabbit *queue.RabbitMQ
	Worker *worker.SyncWorker
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	// 1. Banco + migrations
	db, err := database.NewDBConnection(cfg.DatabaseURL, cfg.DBTimeout)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if err := database.RunMigrations(db); err != nil {
		a.Close()
		return nil, err
	}

	// 2. Repositórios
	leadRepo := database.NewLeadRepository(db)
	runRepo := database.NewSyncRunRepository(db)
	auditRepo := database.NewProcessingLogRepository(db)

	// 3. Planilha
	source, err := sheets.NewClient(ctx, cfg.GoogleCredentials)
	if err != nil {
		a.Close()
		return nil, err
	}

	// 4. UseCases
	syncUC := usecase.NewSyncLeadsUseCase(source, leadRepo, runRepo)
	syncUC.FetchTimeout = cfg.HTTPTimeout
	syncUC.StoreTimeout = cfg.DBTimeout

	var (
		batch     worker.BatchExecutor
		retryable usecase.RetryableLeadSource
	)
	if cfg.EnableBitrix {
		crm := bitrix.NewClient(cfg.Bitrix.URL, cfg.HTTPTimeout, cfg.Bitrix.RateLimit).
			WithSelect(entity.CRMContact, cfg.Bitrix.ContactCNPJField).
			WithSelect(entity.CRMDeal, cfg.Bitrix.DealCNPJField, cfg.Bitrix.DealBankField)
		reconciler := usecase.NewReconcileDealUseCase(crm, cfg.ReconcileConfig())
		batch = usecase.NewReconcileBatchUseCase(reconciler, auditRepo)
		retryable = auditRepo
	} else {
		log.Println("⚠️ Sincronização com Bitrix desativada")
	}

	// 5. Worker
	w := worker.NewSyncWorker(syncUC, batch, cfg.SyncInput())
	w.Interval = cfg.SyncInterval
	w.MaxRetries = cfg.MaxRetries
	w.RetryDelay = cfg.RetryDelay
	w.Retryable = retryable
	w.MaxLeadAttempts = cfg.Bitrix.MaxLeadAttempts

	// 6. Opcionais: eventos e alertas
	if cfg.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("⚠️ RabbitMQ indisponível, eventos desativados: %v", err)
		} else {
			a.Rabbit = rabbit
			w.Publisher = queue.NewProducer(rabbit.Ch)
		}
	}
	if cfg.Mail.Enabled() {
		w.Alerter = mail.NewEmailSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.To)
	}

	a.Worker = w
	return a, nil
}

func (a *app) Router() http.Handler {
	var conn *amqp.Connection
	if a.Rabbit != nil {
		conn = a.Rabbit.Conn
	}
	return monitorRouter(a.DB, conn, a.cfg.Bitrix.URL)
}

func monitorRouter(db *sql.DB, conn *amqp.Connection, bitrixURL string) http.Handler {
	repo := database.NewMonitoringRepository(db)
	return handlers.NewRouter(
		handlers.NewHealthHandler(repo, conn, bitrixURL),
		handlers.NewMonitoringHandler(repo),
	)
}

func (a *app) Close() {
	if a.Rabbit != nil {
		a.Rabbit.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
