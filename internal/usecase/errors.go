package usecase

import (
	"errors"
	"fmt"
)

const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeSourceFetch     = "SOURCE_FETCH_ERROR"
	CodeStorage         = "STORAGE_ERROR"
	CodeCRMAPI          = "CRM_API_ERROR"
	CodeCycleCancelled  = "CYCLE_CANCELLED"
	CodeCycleInProgress = "CYCLE_IN_PROGRESS"
)

// DomainError: o lead não serve para o CRM. Afeta só aquele lead.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError: falha de infraestrutura (planilha, banco, CRM).
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// ErrorCode devolve o código classificado, ou "" se o erro não for classificado.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func NewSourceFetchError(tabID int64, err error) *TechnicalError {
	return &TechnicalError{
		Code:    CodeSourceFetch,
		Message: fmt.Sprintf("falha ao buscar aba %d", tabID),
		Err:     err,
	}
}

func NewStorageError(op string, err error) *TechnicalError {
	return &TechnicalError{
		Code:    CodeStorage,
		Message: "falha no banco (" + op + ")",
		Err:     err,
	}
}

func NewCRMAPIError(op string, err error) *TechnicalError {
	return &TechnicalError{
		Code:    CodeCRMAPI,
		Message: "falha na API do CRM (" + op + ")",
		Err:     err,
	}
}

var ErrCycleInProgress = &TechnicalError{
	Code:    CodeCycleInProgress,
	Message: "já existe um ciclo de sincronização em andamento",
}

func newCancelledError(err error) *TechnicalError {
	return &TechnicalError{
		Code:    CodeCycleCancelled,
		Message: "ciclo cancelado antes do commit",
		Err:     err,
	}
}

// NewBatchCancelledError marca leads que o lote não chegou a enviar ao CRM.
func NewBatchCancelledError(err error) *TechnicalError {
	return &TechnicalError{
		Code:    CodeCycleCancelled,
		Message: "lote cancelado antes de enviar o lead",
		Err:     err,
	}
}
