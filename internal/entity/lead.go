package entity

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// Formato da coluna "Data": dia/mês/ano, com ou sem zero à esquerda.
const SheetDateLayout = "2/1/2006"

// Lead é uma linha canônica da planilha de prospecção.
// Campos vazios ficam nil (NULL no banco).
type Lead struct {
	ID                int64      `json:"id,omitempty"`
	ReferenceDate     *time.Time `json:"reference_date,omitempty"`
	CNPJ              *string    `json:"cnpj,omitempty"`
	Phone             *string    `json:"phone,omitempty"`
	ContactName       *string    `json:"contact_name,omitempty"`
	CompanyName       *string    `json:"company_name,omitempty"`
	Consultant        *string    `json:"consultant,omitempty"`
	ProspectingMethod *string    `json:"prospecting_method,omitempty"`
	StageLabel        *string    `json:"stage_label,omitempty"`
	SourceTab         string     `json:"source_tab"`
	CreatedAt         time.Time  `json:"created_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at,omitempty"`
}

// IsEligible: precisa de CNPJ ou telefone para ser armazenado.
func (l Lead) IsEligible() bool {
	return Value(l.CNPJ) != "" || Value(l.Phone) != ""
}

// Fingerprint é a identidade de conteúdo do lead. SourceTab, ID e timestamps
// ficam de fora, então a mesma linha em duas abas vira um único registro.
func (l Lead) Fingerprint() string {
	var date string
	if l.ReferenceDate != nil {
		date = l.ReferenceDate.Format("2006-01-02")
	}

	fields := []struct {
		name  string
		value string
	}{
		{"data", date},
		{"cnpj", Value(l.CNPJ)},
		{"telefone", Value(l.Phone)},
		{"nome", Value(l.ContactName)},
		{"empresa", Value(l.CompanyName)},
		{"consultor", Value(l.Consultant)},
		{"forma_prospeccao", Value(l.ProspectingMethod)},
		{"etapa", Value(l.StageLabel)},
	}

	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.name)
		b.WriteByte(':')
		b.WriteString(strings.ToLower(strings.TrimSpace(f.value)))
		b.WriteByte('|')
	}

	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Value devolve o conteúdo aparado de um campo opcional.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// StringPtr devolve nil para strings vazias (após trim).
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
