package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xavierca1/leadsync/internal/entity"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ResolutionWarning: consultor, etapa ou banco não encontrado. Nunca falha o lead.
type ResolutionWarning struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (w ResolutionWarning) String() string {
	return fmt.Sprintf("%s '%s': %s", w.Field, w.Value, w.Message)
}

// ValidateLeadForCRM: o deal precisa de empresa ou CNPJ para ter chave,
// e o contato precisa de CNPJ ou telefone.
func ValidateLeadForCRM(lead entity.Lead) []ValidationError {
	var errs []ValidationError

	if entity.Value(lead.CompanyName) == "" && entity.Value(lead.CNPJ) == "" {
		errs = append(errs, ValidationError{"company_name", "company_name or cnpj is required"})
	}

	if entity.Value(lead.CNPJ) == "" && entity.Value(lead.Phone) == "" {
		errs = append(errs, ValidationError{"phone", "cnpj or phone is required"})
	}

	return errs
}

func newValidationDomainError(errs []ValidationError) *DomainError {
	parts := make([]string, 0, len(errs))
	wrapped := make([]error, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
		wrapped = append(wrapped, e)
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: "validation failed: " + strings.Join(parts, ", "),
		Err:     errors.Join(wrapped...),
	}
}
