package usecase

import (
	"sort"

	"github.com/xavierca1/leadsync/internal/entity"
)

// Snapshot indexa leads por fingerprint. A primeira ocorrência vence.
type Snapshot struct {
	byFingerprint map[string]entity.Lead
	order         []string
	Duplicates    int
}

func NewSnapshot(leads []entity.Lead) *Snapshot {
	s := &Snapshot{byFingerprint: make(map[string]entity.Lead, len(leads))}
	for _, l := range leads {
		s.Add(l)
	}
	return s
}

// Add devolve false quando o fingerprint já existe (duplicata colapsada).
func (s *Snapshot) Add(l entity.Lead) bool {
	fp := l.Fingerprint()
	if _, exists := s.byFingerprint[fp]; exists {
		s.Duplicates++
		return false
	}
	s.byFingerprint[fp] = l
	s.order = append(s.order, fp)
	return true
}

func (s *Snapshot) Len() int {
	return len(s.byFingerprint)
}

func (s *Snapshot) Has(fp string) bool {
	_, ok := s.byFingerprint[fp]
	return ok
}

// Leads devolve os leads na ordem de inserção.
func (s *Snapshot) Leads() []entity.Lead {
	out := make([]entity.Lead, 0, len(s.order))
	for _, fp := range s.order {
		out = append(out, s.byFingerprint[fp])
	}
	return out
}

// ChangeSet: new = src − db, removed = db − src, unchanged = src ∩ db.
// Cada lista vem ordenada por fingerprint.
type ChangeSet struct {
	New       []entity.Lead
	Removed   []entity.Lead
	Unchanged []entity.Lead
}

// Não existe "modificado": qualquer mudança de campo aparece como um par removed + new.
func DetectChanges(db, src *Snapshot) ChangeSet {
	var cs ChangeSet

	for _, fp := range sortedKeys(src.byFingerprint) {
		if db.Has(fp) {
			cs.Unchanged = append(cs.Unchanged, src.byFingerprint[fp])
		} else {
			cs.New = append(cs.New, src.byFingerprint[fp])
		}
	}

	for _, fp := range sortedKeys(db.byFingerprint) {
		if !src.Has(fp) {
			cs.Removed = append(cs.Removed, db.byFingerprint[fp])
		}
	}

	return cs
}

// Descriptors devolve new e removed juntos, ordenados por fingerprint.
func (cs ChangeSet) Descriptors() []entity.ChangeDescriptor {
	out := make([]entity.ChangeDescriptor, 0, len(cs.New)+len(cs.Removed))
	for _, l := range cs.New {
		out = append(out, entity.NewChangeDescriptor(entity.ChangeNew, l))
	}
	for _, l := range cs.Removed {
		out = append(out, entity.NewChangeDescriptor(entity.ChangeRemoved, l))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}

func sortedKeys(m map[string]entity.Lead) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
