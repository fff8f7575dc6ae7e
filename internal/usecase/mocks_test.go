package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/usecase"
)

// MockSpreadsheetSource
type MockSpreadsheetSource struct {
	mock.Mock
}

func (m *MockSpreadsheetSource) FetchRows(ctx context.Context, sourceID string, tabID int64) (*entity.SheetTab, error) {
	args := m.Called(ctx, sourceID, tabID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SheetTab), args.Error(1)
}

// MockSyncRunRepository
type MockSyncRunRepository struct {
	mock.Mock
}

func (m *MockSyncRunRepository) SaveSyncRun(ctx context.Context, run *entity.SyncRunResult) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// MockDealReconciler
type MockDealReconciler struct {
	mock.Mock
}

func (m *MockDealReconciler) Execute(ctx context.Context, lead entity.Lead) (*usecase.ReconcileOutcome, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ReconcileOutcome), args.Error(1)
}

// memoryLeadStore simula a troca transacional: em falha nada muda.
type memoryLeadStore struct {
	mu         sync.Mutex
	leads      []entity.Lead
	failList   error
	failInsert error
	replaces   int
}

func (s *memoryLeadStore) ListLeads(ctx context.Context) ([]entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	out := make([]entity.Lead, len(s.leads))
	copy(out, s.leads)
	return out, nil
}

func (s *memoryLeadStore) ReplaceAll(ctx context.Context, leads []entity.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make([]entity.Lead, 0, len(leads))
	for i, l := range leads {
		if s.failInsert != nil && i == len(leads)/2 {
			return s.failInsert // rollback: staged é descartado
		}
		staged = append(staged, l)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.leads = staged
	s.replaces++
	return nil
}

func (s *memoryLeadStore) fingerprints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, l.Fingerprint())
	}
	sort.Strings(out)
	return out
}

// memoryRunLog
type memoryRunLog struct {
	mu   sync.Mutex
	runs []*entity.SyncRunResult
}

func (r *memoryRunLog) SaveSyncRun(ctx context.Context, run *entity.SyncRunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.runs = append(r.runs, run)
	return nil
}

// memoryAuditLog
type memoryAuditLog struct {
	records []*entity.ProcessingRecord
}

func (a *memoryAuditLog) SaveProcessingRecord(ctx context.Context, rec *entity.ProcessingRecord) error {
	a.records = append(a.records, rec)
	return nil
}

// fakeCRM guarda contatos e deals em memória e filtra por igualdade exata.
type fakeCRM struct {
	mu       sync.Mutex
	nextID   int
	entities map[entity.CRMKind]map[int]entity.CRMFields
	users    []entity.CRMUser
	stages   []entity.PipelineStage

	failCreate map[entity.CRMKind]error
	failUsers  error
	calls      []string
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		nextID: 1,
		entities: map[entity.CRMKind]map[int]entity.CRMFields{
			entity.CRMContact: {},
			entity.CRMDeal:    {},
		},
		failCreate: map[entity.CRMKind]error{},
	}
}

func (f *fakeCRM) FindEntities(ctx context.Context, kind entity.CRMKind, criteria entity.CRMCriteria) ([]entity.CRMRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s.list", kind))

	var out []entity.CRMRecord
	for id, fields := range f.entities[kind] {
		if matches(fields, criteria) {
			out = append(out, toRecord(kind, id, fields))
		}
	}
	// ordem instável de propósito: o chamador desempata por ID
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeCRM) CreateEntity(ctx context.Context, kind entity.CRMKind, fields entity.CRMFields) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s.add", kind))

	if err := f.failCreate[kind]; err != nil {
		return 0, err
	}
	id := f.nextID
	f.nextID++
	stored := entity.CRMFields{}
	for k, v := range fields {
		stored[k] = v
	}
	f.entities[kind][id] = stored
	return id, nil
}

func (f *fakeCRM) UpdateEntity(ctx context.Context, kind entity.CRMKind, id int, fields entity.CRMFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s.update", kind))

	stored, ok := f.entities[kind][id]
	if !ok {
		return errors.New("not found")
	}
	for k, v := range fields {
		stored[k] = v
	}
	return nil
}

func (f *fakeCRM) ListUsers(ctx context.Context, filter map[string]string) ([]entity.CRMUser, error) {
	if f.failUsers != nil {
		return nil, f.failUsers
	}
	var out []entity.CRMUser
	for _, u := range f.users {
		if userMatches(u, filter) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeCRM) ListPipelineStages(ctx context.Context, pipelineID int) ([]entity.PipelineStage, error) {
	return f.stages, nil
}

func (f *fakeCRM) count(kind entity.CRMKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entities[kind])
}

func (f *fakeCRM) get(kind entity.CRMKind, id int) entity.CRMFields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entities[kind][id]
}

func matches(fields entity.CRMFields, criteria entity.CRMCriteria) bool {
	for k, want := range criteria {
		if k == entity.FieldPhone {
			phones, _ := fields[entity.FieldPhone].([]entity.PhoneValue)
			found := false
			for _, p := range phones {
				if entity.OnlyDigits(p.Value) == entity.OnlyDigits(fmt.Sprint(want)) {
					found = true
				}
			}
			if !found {
				return false
			}
			continue
		}
		if fmt.Sprint(fields[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func toRecord(kind entity.CRMKind, id int, fields entity.CRMFields) entity.CRMRecord {
	rec := entity.CRMRecord{ID: id, Fields: map[string]any{}}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	if kind == entity.CRMContact {
		rec.Name = fmt.Sprint(fields[entity.FieldName])
		rec.Phones, _ = fields[entity.FieldPhone].([]entity.PhoneValue)
	} else {
		rec.Name = fmt.Sprint(fields[entity.FieldTitle])
	}
	return rec
}

func userMatches(u entity.CRMUser, filter map[string]string) bool {
	for k, v := range filter {
		switch k {
		case "NAME":
			if u.Name != v {
				return false
			}
		case "LAST_NAME":
			if u.LastName != v {
				return false
			}
		case "%NAME":
			if !containsFold(u.Name, v) {
				return false
			}
		case "%LAST_NAME":
			if !containsFold(u.LastName, v) {
				return false
			}
		}
	}
	return true
}

func containsFold(s, sub string) bool {
	return sub != "" && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func testConfig() usecase.ReconcileConfig {
	return usecase.ReconcileConfig{
		PipelineID:           4,
		CategoryID:           4,
		ContactCNPJField:     "UF_CRM_1734528621",
		DealCNPJField:        "UF_CRM_1741653424",
		DealProspectingField: "UF_CRM_1748264680989",
		DealBankField:        "UF_CRM_1743684072273",
		BankMap:              map[string]int{"C6": 116, "BS2": 118, "SANTANDER": 120},
	}
}

func lead(company, cnpj, phone string) entity.Lead {
	return entity.Lead{
		CompanyName: entity.StringPtr(company),
		CNPJ:        entity.StringPtr(cnpj),
		Phone:       entity.StringPtr(phone),
		SourceTab:   "C6 - Planilha Geral",
	}
}
