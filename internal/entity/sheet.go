package entity

// Cabeçalhos estáveis da planilha de leads
const (
	HeaderDate        = "Data"
	HeaderCNPJ        = "CNPJ"
	HeaderPhone       = "TELEFONE"
	HeaderContactName = "NOME"
	HeaderCompany     = "EMPRESA"
	HeaderConsultant  = "CONSULTOR"
	HeaderProspecting = "Forma Prospecção"
	HeaderStage       = "Etapa"
)

// SheetRow é uma linha da aba: cabeçalho -> valor da célula.
type SheetRow map[string]string

// SheetTab é o conteúdo completo de uma aba.
type SheetTab struct {
	TabID int64
	Name  string
	Rows  []SheetRow
}
