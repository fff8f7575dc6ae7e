package entity

import (
	"regexp"
	"sort"
)

type CRMKind string

const (
	CRMContact CRMKind = "contact"
	CRMDeal    CRMKind = "deal"
)

// Nomes de campos nativos do CRM (Bitrix24)
const (
	FieldName       = "NAME"
	FieldTitle      = "TITLE"
	FieldPhone      = "PHONE"
	FieldAssignedBy = "ASSIGNED_BY_ID"
	FieldStage      = "STAGE_ID"
	FieldCategory   = "CATEGORY_ID"
	FieldContact    = "CONTACT_ID"
)

// CRMFields são os campos enviados em add/update.
type CRMFields map[string]any

// CRMCriteria é um filtro de igualdade exata (campo -> valor).
type CRMCriteria map[string]any

// PhoneValue é um item do multicampo PHONE. Itens com ID são mantidos no
// update; itens sem ID são acrescentados.
type PhoneValue struct {
	ID        string `json:"ID,omitempty"`
	Value     string `json:"VALUE"`
	ValueType string `json:"VALUE_TYPE"`
}

// CRMRecord é a visão mínima de um contato ou deal existente.
type CRMRecord struct {
	ID            int
	Name          string // NAME do contato ou TITLE do deal
	Phones        []PhoneValue
	PhonesUnknown bool // PHONE não decodificou; não sobrescrever
	Fields        map[string]any
}

type CRMUser struct {
	ID       int
	Name     string
	LastName string
	Active   bool
}

func (u CRMUser) FullName() string {
	if u.LastName == "" {
		return u.Name
	}
	return u.Name + " " + u.LastName
}

type PipelineStage struct {
	StatusID string
	Name     string
	Sort     int
}

// LowestID escolhe o registro de menor ID; a ordem devolvida pela API não é estável.
func LowestID(records []CRMRecord) (CRMRecord, bool) {
	if len(records) == 0 {
		return CRMRecord{}, false
	}
	sorted := make([]CRMRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted[0], true
}

var nonDigit = regexp.MustCompile(`\D`)

func OnlyDigits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// MergePhones adiciona o telefone se nenhum existente tiver os mesmos dígitos.
func MergePhones(existing []PhoneValue, phone string) ([]PhoneValue, bool) {
	if phone == "" {
		return existing, false
	}
	digits := OnlyDigits(phone)
	for _, p := range existing {
		if OnlyDigits(p.Value) == digits {
			return existing, false
		}
	}
	merged := make([]PhoneValue, 0, len(existing)+1)
	merged = append(merged, existing...)
	merged = append(merged, PhoneValue{Value: phone, ValueType: "WORK"})
	return merged, true
}
