package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/xavierca1/leadsync/internal/config"
	"github.com/xavierca1/leadsync/internal/infra/database"
	"github.com/xavierca1/leadsync/internal/infra/queue"
	"github.com/xavierca1/leadsync/internal/infra/worker"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "leadsync",
		Short:         "Sincroniza leads da planilha com o Postgres e o Bitrix24",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newOnceCmd(), newRunCmd(), newMigrateCmd(), newServeCmd())
	return root
}

func newOnceCmd() *cobra.Command {
	var noCRM bool
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Roda um único ciclo (com retentativas) e sai",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(noCRM)
			if err != nil {
				return err
			}
			if err := cfg.ValidateSync(); err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Worker.RunOnce(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&noCRM, "no-crm", false, "não reconcilia os leads novos no Bitrix")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		noCRM     bool
		noMonitor bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Roda ciclos em intervalo fixo até SIGINT/SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(noCRM)
			if err != nil {
				return err
			}
			if err := cfg.ValidateSync(); err != nil {
				return err
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			// Pedidos de ciclo sob demanda via RabbitMQ
			if a.Rabbit != nil {
				consumer := queue.NewTriggerConsumer(a.Rabbit.Ch, a.Worker, worker.IsBusy)
				go func() {
					if err := consumer.Start(ctx, queue.TriggerQueueName); err != nil {
						log.Printf("⚠️ Consumidor de gatilhos parou: %v", err)
					}
				}()
			}

			if !noMonitor {
				go func() {
					if err := serveHTTP(ctx, cfg.MonitorPort, a.Router()); err != nil {
						log.Printf("❌ Monitor HTTP parou: %v", err)
					}
				}()
			}

			a.Worker.Start(ctx)
			log.Println("👋 leadsync encerrado")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCRM, "no-crm", false, "não reconcilia os leads novos no Bitrix")
	cmd.Flags().BoolVar(&noMonitor, "no-monitor", false, "não sobe a API de monitoramento")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica as migrations pendentes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}

			db, err := database.NewDBConnection(cfg.DatabaseURL, cfg.DBTimeout)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.RunMigrations(db); err != nil {
				return err
			}
			log.Println("✅ Migrations aplicadas")
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Sobe só a API de monitoramento",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}
			if port > 0 {
				cfg.MonitorPort = port
			}

			db, err := database.NewDBConnection(cfg.DatabaseURL, cfg.DBTimeout)
			if err != nil {
				return err
			}
			defer db.Close()

			return serveHTTP(cmd.Context(), cfg.MonitorPort, monitorRouter(db, nil, cfg.Bitrix.URL))
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "porta HTTP (padrão MONITOR_PORT)")
	return cmd
}

func loadConfig(noCRM bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if noCRM {
		cfg.EnableBitrix = false
	}
	return cfg, nil
}

// serveHTTP bloqueia até o ctx acabar e então faz shutdown gracioso.
func serveHTTP(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🔥 Monitor leadsync rodando na porta %d", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
