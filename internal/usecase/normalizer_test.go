package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/usecase"
)

func TestNormalizeMapsHeaders(t *testing.T) {
	row := entity.SheetRow{
		"Data":             "10/06/2025",
		"CNPJ":             " 12345678000199 ",
		"TELEFONE":         "41991574642",
		"NOME":             "Maria",
		"EMPRESA":          "Padaria Central",
		"CONSULTOR":        "Ana Lima",
		"Forma Prospecção": "Ligação",
		"Etapa":            "Qualificado",
	}

	lead, ok := usecase.Normalize("C6 - Planilha Geral", row)

	require.True(t, ok)
	require.NotNil(t, lead.ReferenceDate)
	assert.Equal(t, "2025-06-10", lead.ReferenceDate.Format("2006-01-02"))
	assert.Equal(t, "12345678000199", entity.Value(lead.CNPJ))
	assert.Equal(t, "Padaria Central", entity.Value(lead.CompanyName))
	assert.Equal(t, "Ligação", entity.Value(lead.ProspectingMethod))
	assert.Equal(t, "C6 - Planilha Geral", lead.SourceTab)
}

func TestNormalizeAcceptsUnpaddedDate(t *testing.T) {
	for _, raw := range []string{"5/3/2024", "05/03/2024", "5/03/2024", "05/3/2024"} {
		lead, ok := usecase.Normalize("C6", entity.SheetRow{"Data": raw, "CNPJ": "1"})

		require.True(t, ok)
		require.NotNil(t, lead.ReferenceDate, raw)
		assert.Equal(t, "2024-03-05", lead.ReferenceDate.Format("2006-01-02"), raw)
	}

	padded, _ := usecase.Normalize("C6", entity.SheetRow{"Data": "05/03/2024", "CNPJ": "1"})
	unpadded, _ := usecase.Normalize("C6", entity.SheetRow{"Data": "5/3/2024", "CNPJ": "1"})
	assert.Equal(t, padded.Fingerprint(), unpadded.Fingerprint())
}

func TestNormalizeInvalidDateBecomesNil(t *testing.T) {
	lead, ok := usecase.Normalize("Aba", entity.SheetRow{"Data": "2025-13-45", "CNPJ": "1"})

	assert.True(t, ok)
	assert.Nil(t, lead.ReferenceDate)
}

func TestNormalizeBlankCellsAreNil(t *testing.T) {
	lead, ok := usecase.Normalize("Aba", entity.SheetRow{"TELEFONE": "4130303030", "EMPRESA": "   "})

	assert.True(t, ok)
	assert.Nil(t, lead.CompanyName)
	assert.Nil(t, lead.CNPJ)
}

func TestNormalizeDropsRowWithoutCNPJAndPhone(t *testing.T) {
	_, ok := usecase.Normalize("Aba", entity.SheetRow{"EMPRESA": "Sem Contato", "CNPJ": " ", "TELEFONE": ""})
	assert.False(t, ok)
}

func TestNormalizeTabCounts(t *testing.T) {
	tab := &entity.SheetTab{
		TabID: 7,
		Name:  "BS2 - Leads",
		Rows: []entity.SheetRow{
			{"CNPJ": "1"},
			{"TELEFONE": "2"},
			{"EMPRESA": "sem identidade"},
		},
	}

	out := usecase.NormalizeTab(tab)

	assert.Len(t, out.Leads, 2)
	assert.Equal(t, entity.TabSummary{TabID: 7, TabName: "BS2 - Leads", TotalRows: 3, Eligible: 2, Ineligible: 1}, out.Summary)
	for _, l := range out.Leads {
		assert.True(t, l.IsEligible())
	}
}
