package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations aplica todas as migrations pendentes numa conexão emprestada
// do pool. A conexão volta ao pool no fim; o *sql.DB continua aberto.
func RunMigrations(db *sql.DB) (err error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("carregar migrations: %w", err)
	}

	ctx := context.Background()
	conn, err := db.Conn(ctx)
	if err != nil {
		source.Close()
		return fmt.Errorf("conexão para migration: %w", err)
	}

	// WithConnection não guarda o *sql.DB, então m.Close() só devolve conn.
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		source.Close()
		return fmt.Errorf("driver de migration: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		driver.Close()
		source.Close()
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("✅ Banco já está na última versão")
			return nil
		}
		return err
	}

	version, _, _ := m.Version()
	log.Printf("✅ Migrations aplicadas (versão %d)", version)
	return nil
}
