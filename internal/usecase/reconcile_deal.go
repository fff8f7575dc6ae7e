package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/xavierca1/leadsync/internal/entity"
)

// ReconcileConfig reúne as constantes do CRM: pipeline e categoria fixos,
// códigos dos campos customizados e o mapa prefixo-da-aba -> banco.
type ReconcileConfig struct {
	PipelineID           int
	CategoryID           int
	ContactCNPJField     string
	DealCNPJField        string
	DealProspectingField string
	DealBankField        string
	BankMap              map[string]int
}

type ReconcileDealUseCase struct {
	CRM    CRMClient
	Config ReconcileConfig
}

func NewReconcileDealUseCase(crm CRMClient, cfg ReconcileConfig) *ReconcileDealUseCase {
	return &ReconcileDealUseCase{CRM: crm, Config: cfg}
}

// Execute encontra-ou-cria o contato e depois encontra-ou-cria o deal ligado a ele.
// Se o contato resolver e o deal falhar, o outcome volta com Contact resolved e
// Deal failed junto com o erro: o contato fica criado no CRM.
func (uc *ReconcileDealUseCase) Execute(ctx context.Context, lead entity.Lead) (*ReconcileOutcome, error) {
	outcome := &ReconcileOutcome{
		Contact: EntityResolution{State: StatePending},
		Deal:    EntityResolution{State: StatePending},
	}

	if errs := ValidateLeadForCRM(lead); len(errs) > 0 {
		outcome.Contact.State = StateFailed
		outcome.Deal.State = StateFailed
		err := newValidationDomainError(errs)
		outcome.Message = err.Error()
		return outcome, err
	}

	// 1. Responsável (vale para contato e deal)
	outcome.OwnerID = uc.resolveOwner(ctx, entity.Value(lead.Consultant), outcome)

	// 2. Contato
	contact, err := uc.resolveContact(ctx, lead, outcome.OwnerID)
	if err != nil {
		outcome.Contact.State = StateFailed
		outcome.Deal.State = StateFailed
		outcome.Message = err.Error()
		return outcome, err
	}
	outcome.Contact = contact

	// 3. Deal
	deal, err := uc.resolveDeal(ctx, lead, contact.ID, outcome)
	if err != nil {
		outcome.Deal.State = StateFailed
		outcome.Message = fmt.Sprintf("contato %d %s, deal falhou: %v", contact.ID, contact.Action, err)
		log.Printf("⚠️ Contato %d ficou sem deal: %v", contact.ID, err)
		return outcome, err
	}
	outcome.Deal = deal

	outcome.Message = fmt.Sprintf("contato %d %s, deal %d %s", contact.ID, contact.Action, deal.ID, deal.Action)
	for _, w := range outcome.Warnings {
		outcome.Message += "; " + w.String()
	}
	log.Printf("✅ Lead reconciliado: %s", outcome.Message)
	return outcome, nil
}

// ContactName é o NAME usado na busca e na criação do contato.
func ContactName(lead entity.Lead) string {
	if name := entity.Value(lead.CompanyName); name != "" {
		return name
	}
	if cnpj := entity.Value(lead.CNPJ); cnpj != "" {
		return "Contato - CNPJ: " + cnpj
	}
	return "Contato - Tel: " + entity.Value(lead.Phone)
}

// DealTitle é o TITLE usado na busca e na criação do deal.
func DealTitle(lead entity.Lead, contactID int) string {
	if name := entity.Value(lead.CompanyName); name != "" {
		return name
	}
	if cnpj := entity.Value(lead.CNPJ); cnpj != "" {
		return "Deal - CNPJ: " + cnpj
	}
	return fmt.Sprintf("Deal - Contato ID: %d", contactID)
}

// findFirst roda os critérios em ordem; o primeiro com resultado vence e o
// desempate é pelo menor ID.
func (uc *ReconcileDealUseCase) findFirst(ctx context.Context, kind entity.CRMKind, criteria []entity.CRMCriteria) (entity.CRMRecord, int, bool, error) {
	for _, c := range criteria {
		matches, err := uc.CRM.FindEntities(ctx, kind, c)
		if err != nil {
			return entity.CRMRecord{}, 0, false, NewCRMAPIError(string(kind)+".list", err)
		}
		if rec, ok := entity.LowestID(matches); ok {
			return rec, len(matches) - 1, true, nil
		}
	}
	return entity.CRMRecord{}, 0, false, nil
}

func (uc *ReconcileDealUseCase) resolveContact(ctx context.Context, lead entity.Lead, ownerID int) (EntityResolution, error) {
	name := ContactName(lead)
	phone := entity.Value(lead.Phone)
	cnpj := entity.Value(lead.CNPJ)

	criteria := []entity.CRMCriteria{{entity.FieldName: name}}
	if phone != "" {
		criteria = append(criteria, entity.CRMCriteria{entity.FieldPhone: phone})
	}
	if cnpj != "" && uc.Config.ContactCNPJField != "" {
		criteria = append(criteria, entity.CRMCriteria{uc.Config.ContactCNPJField: cnpj})
	}

	existing, duplicates, found, err := uc.findFirst(ctx, entity.CRMContact, criteria)
	if err != nil {
		return EntityResolution{State: StateFailed}, err
	}

	if found {
		if duplicates > 0 {
			log.Printf("⚠️ %d contatos duplicados para '%s', usando ID %d", duplicates, name, existing.ID)
		}

		fields := entity.CRMFields{}
		if company := entity.Value(lead.CompanyName); company != "" {
			fields[entity.FieldName] = company
		}
		if existing.PhonesUnknown {
			log.Printf("⚠️ Telefones do contato %d ilegíveis, PHONE não será alterado", existing.ID)
		} else if merged, changed := entity.MergePhones(existing.Phones, phone); changed {
			fields[entity.FieldPhone] = merged
		}
		if cnpj != "" && uc.Config.ContactCNPJField != "" {
			fields[uc.Config.ContactCNPJField] = cnpj
		}
		if ownerID > 0 {
			fields[entity.FieldAssignedBy] = ownerID
		}

		if len(fields) > 0 {
			if err := uc.CRM.UpdateEntity(ctx, entity.CRMContact, existing.ID, fields); err != nil {
				return EntityResolution{State: StateFailed, ID: existing.ID}, NewCRMAPIError("contact.update", err)
			}
		}
		log.Printf("🔄 Contato %d atualizado (%s)", existing.ID, name)
		return EntityResolution{State: StateResolved, Action: entity.ActionUpdated, ID: existing.ID, Duplicates: duplicates}, nil
	}

	fields := entity.CRMFields{entity.FieldName: name}
	if phone != "" {
		fields[entity.FieldPhone] = []entity.PhoneValue{{Value: phone, ValueType: "WORK"}}
	}
	if cnpj != "" && uc.Config.ContactCNPJField != "" {
		fields[uc.Config.ContactCNPJField] = cnpj
	}
	if ownerID > 0 {
		fields[entity.FieldAssignedBy] = ownerID
	}

	id, err := uc.CRM.CreateEntity(ctx, entity.CRMContact, fields)
	if err != nil {
		return EntityResolution{State: StateFailed}, NewCRMAPIError("contact.add", err)
	}
	log.Printf("✅ Contato %d criado (%s)", id, name)
	return EntityResolution{State: StateResolved, Action: entity.ActionCreated, ID: id}, nil
}

func (uc *ReconcileDealUseCase) resolveDeal(ctx context.Context, lead entity.Lead, contactID int, outcome *ReconcileOutcome) (EntityResolution, error) {
	title := DealTitle(lead, contactID)
	cnpj := entity.Value(lead.CNPJ)

	// CONTACT_ID fica fora da busca: um contato pode ter vários deals.
	criteria := []entity.CRMCriteria{{entity.FieldTitle: title}}
	if cnpj != "" && uc.Config.DealCNPJField != "" {
		criteria = append(criteria, entity.CRMCriteria{uc.Config.DealCNPJField: cnpj})
	}

	existing, duplicates, found, err := uc.findFirst(ctx, entity.CRMDeal, criteria)
	if err != nil {
		return EntityResolution{State: StateFailed}, err
	}

	fields := entity.CRMFields{
		entity.FieldTitle:   title,
		entity.FieldContact: contactID,
	}
	if cnpj != "" && uc.Config.DealCNPJField != "" {
		fields[uc.Config.DealCNPJField] = cnpj
	}
	if method := entity.Value(lead.ProspectingMethod); method != "" && uc.Config.DealProspectingField != "" {
		fields[uc.Config.DealProspectingField] = method
	}
	if bankID, ok := uc.resolveBank(lead.SourceTab, outcome); ok && uc.Config.DealBankField != "" {
		fields[uc.Config.DealBankField] = bankID
	}
	if stageID := uc.resolveStage(ctx, entity.Value(lead.StageLabel), outcome); stageID != "" {
		fields[entity.FieldStage] = stageID
	}
	if outcome.OwnerID > 0 {
		fields[entity.FieldAssignedBy] = outcome.OwnerID
	}

	if found {
		if duplicates > 0 {
			log.Printf("⚠️ %d deals duplicados para '%s', usando ID %d", duplicates, title, existing.ID)
		}
		if err := uc.CRM.UpdateEntity(ctx, entity.CRMDeal, existing.ID, fields); err != nil {
			return EntityResolution{State: StateFailed, ID: existing.ID}, NewCRMAPIError("deal.update", err)
		}
		log.Printf("🔄 Deal %d atualizado (%s)", existing.ID, title)
		return EntityResolution{State: StateResolved, Action: entity.ActionUpdated, ID: existing.ID, Duplicates: duplicates}, nil
	}

	fields[entity.FieldCategory] = uc.Config.CategoryID
	id, err := uc.CRM.CreateEntity(ctx, entity.CRMDeal, fields)
	if err != nil {
		return EntityResolution{State: StateFailed}, NewCRMAPIError("deal.add", err)
	}
	log.Printf("✅ Deal %d criado (%s) para contato %d", id, title, contactID)
	return EntityResolution{State: StateResolved, Action: entity.ActionCreated, ID: id}, nil
}

// resolveOwner: nome completo, depois substring do primeiro nome, depois do
// sobrenome. Usuários ativos têm preferência. Nunca falha a reconciliação.
func (uc *ReconcileDealUseCase) resolveOwner(ctx context.Context, consultant string, outcome *ReconcileOutcome) int {
	if consultant == "" {
		return 0
	}

	parts := strings.Fields(consultant)
	filters := []map[string]string{}
	if len(parts) > 1 {
		filters = append(filters,
			map[string]string{"NAME": parts[0], "LAST_NAME": strings.Join(parts[1:], " ")},
			map[string]string{"%NAME": parts[0]},
			map[string]string{"%LAST_NAME": parts[len(parts)-1]},
		)
	} else {
		filters = append(filters,
			map[string]string{"NAME": parts[0]},
			map[string]string{"%NAME": parts[0]},
		)
	}

	for _, f := range filters {
		users, err := uc.CRM.ListUsers(ctx, f)
		if err != nil {
			uc.warn(outcome, "consultant", consultant, "erro ao buscar usuário: "+err.Error())
			return 0
		}
		if user, ok := pickUser(users); ok {
			log.Printf("👤 Consultor '%s' -> usuário %d (%s)", consultant, user.ID, user.FullName())
			return user.ID
		}
	}

	uc.warn(outcome, "consultant", consultant, "usuário não encontrado")
	return 0
}

func pickUser(users []entity.CRMUser) (entity.CRMUser, bool) {
	var best entity.CRMUser
	found := false
	for _, u := range users {
		switch {
		case !found:
			best, found = u, true
		case u.Active && !best.Active:
			best = u
		case u.Active == best.Active && u.ID < best.ID:
			best = u
		}
	}
	return best, found
}

// resolveStage: igualdade sem caixa primeiro, depois substring.
func (uc *ReconcileDealUseCase) resolveStage(ctx context.Context, label string, outcome *ReconcileOutcome) string {
	if label == "" {
		return ""
	}

	stages, err := uc.CRM.ListPipelineStages(ctx, uc.Config.PipelineID)
	if err != nil {
		uc.warn(outcome, "stage", label, "erro ao listar etapas: "+err.Error())
		return ""
	}

	want := strings.ToLower(label)
	for _, s := range stages {
		if strings.ToLower(strings.TrimSpace(s.Name)) == want {
			return s.StatusID
		}
	}
	for _, s := range stages {
		if strings.Contains(strings.ToLower(s.Name), want) {
			return s.StatusID
		}
	}

	uc.warn(outcome, "stage", label, "etapa não encontrada no pipeline")
	return ""
}

// resolveBank usa o prefixo da aba antes de " - " ("C6 - Planilha Geral" -> "C6").
func (uc *ReconcileDealUseCase) resolveBank(sourceTab string, outcome *ReconcileOutcome) (int, bool) {
	if strings.TrimSpace(sourceTab) == "" || len(uc.Config.BankMap) == 0 {
		return 0, false
	}

	prefix := BankPrefix(sourceTab)
	if id, ok := uc.Config.BankMap[prefix]; ok {
		return id, true
	}

	uc.warn(outcome, "bank", prefix, "banco sem mapeamento")
	return 0, false
}

func BankPrefix(sourceTab string) string {
	prefix, _, _ := strings.Cut(sourceTab, " - ")
	return strings.ToUpper(strings.TrimSpace(prefix))
}

func (uc *ReconcileDealUseCase) warn(outcome *ReconcileOutcome, field, value, message string) {
	w := ResolutionWarning{Field: field, Value: value, Message: message}
	outcome.Warnings = append(outcome.Warnings, w)
	log.Printf("⚠️ %s", w.String())
}
