package mail

import (
	"time"

	"github.com/google/uuid"
)

// CycleFailureAlert é enviado quando um ciclo esgota as retentativas.
type CycleFailureAlert struct {
	SyncRunID    uuid.UUID
	SourceID     string
	Status       string
	Attempts     int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

type EmailSender struct {
	From   string
	To     []string
	dialer Dialer
}
