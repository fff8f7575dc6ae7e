package usecase

import (
	"log"
	"strings"
	"time"

	"github.com/xavierca1/leadsync/internal/entity"
)

// Normalize converte uma linha da planilha em Lead. ok=false quando a linha
// não tem CNPJ nem telefone: ela é descartada sem contar como falha.
func Normalize(tabName string, row entity.SheetRow) (entity.Lead, bool) {
	lead := entity.Lead{
		ReferenceDate:     parseSheetDate(cell(row, entity.HeaderDate, "data")),
		CNPJ:              entity.StringPtr(cell(row, entity.HeaderCNPJ, "cnpj")),
		Phone:             entity.StringPtr(cell(row, entity.HeaderPhone, "telefone")),
		ContactName:       entity.StringPtr(cell(row, entity.HeaderContactName, "nome")),
		CompanyName:       entity.StringPtr(cell(row, entity.HeaderCompany, "empresa")),
		Consultant:        entity.StringPtr(cell(row, entity.HeaderConsultant, "consultor")),
		ProspectingMethod: entity.StringPtr(cell(row, entity.HeaderProspecting, "forma_prospeccao")),
		StageLabel:        entity.StringPtr(cell(row, entity.HeaderStage, "etapa")),
		SourceTab:         tabName,
	}

	return lead, lead.IsEligible()
}

// cell lê pelo cabeçalho oficial e cai para o nome de coluna do banco.
func cell(row entity.SheetRow, header, fallback string) string {
	if v, ok := row[header]; ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(row[fallback])
}

func parseSheetDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(entity.SheetDateLayout, raw)
	if err != nil {
		log.Printf("⚠️ Formato de data inválido: %q", raw)
		return nil
	}
	return &t
}

// NormalizedTab é o resultado da normalização de uma aba.
type NormalizedTab struct {
	Leads   []entity.Lead
	Summary entity.TabSummary
}

// NormalizeTab aplica Normalize em todas as linhas e conta as descartadas.
func NormalizeTab(tab *entity.SheetTab) NormalizedTab {
	out := NormalizedTab{
		Summary: entity.TabSummary{
			TabID:     tab.TabID,
			TabName:   tab.Name,
			TotalRows: len(tab.Rows),
		},
	}

	for _, row := range tab.Rows {
		lead, ok := Normalize(tab.Name, row)
		if !ok {
			out.Summary.Ineligible++
			continue
		}
		out.Leads = append(out.Leads, lead)
		out.Summary.Eligible++
	}

	return out
}
