package usecase_test

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/usecase"
)

func leadWithCNPJ(cnpj string) entity.Lead {
	return entity.Lead{CNPJ: entity.StringPtr(cnpj), SourceTab: "Aba"}
}

func fps(leads []entity.Lead) []string {
	out := make([]string, 0, len(leads))
	for _, l := range leads {
		out = append(out, l.Fingerprint())
	}
	return out
}

func TestDetectChangesScenario(t *testing.T) {
	a, b, c, d := leadWithCNPJ("a"), leadWithCNPJ("b"), leadWithCNPJ("c"), leadWithCNPJ("d")

	cs := usecase.DetectChanges(
		usecase.NewSnapshot([]entity.Lead{a, b, c}),
		usecase.NewSnapshot([]entity.Lead{b, c, d}),
	)

	assert.Equal(t, []string{d.Fingerprint()}, fps(cs.New))
	assert.Equal(t, []string{a.Fingerprint()}, fps(cs.Removed))
	assert.ElementsMatch(t, []string{b.Fingerprint(), c.Fingerprint()}, fps(cs.Unchanged))
}

func TestDetectChangesSetProperties(t *testing.T) {
	var db, src []entity.Lead
	for i := 0; i < 20; i++ {
		db = append(db, leadWithCNPJ(fmt.Sprint(i)))
	}
	for i := 10; i < 35; i++ {
		src = append(src, leadWithCNPJ(fmt.Sprint(i)))
	}

	cs := usecase.DetectChanges(usecase.NewSnapshot(db), usecase.NewSnapshot(src))

	// new ∪ unchanged = src ; removed ∪ unchanged = db
	assert.ElementsMatch(t, fps(src), append(fps(cs.New), fps(cs.Unchanged)...))
	assert.ElementsMatch(t, fps(db), append(fps(cs.Removed), fps(cs.Unchanged)...))

	seen := map[string]int{}
	for _, fp := range append(append(fps(cs.New), fps(cs.Removed)...), fps(cs.Unchanged)...) {
		seen[fp]++
	}
	for fp, n := range seen {
		assert.Equal(t, 1, n, "fingerprint %s in more than one set", fp)
	}
	assert.Len(t, cs.New, 15)
	assert.Len(t, cs.Removed, 10)
	assert.Len(t, cs.Unchanged, 10)
}

func TestDetectChangesFieldEditIsRemovedPlusNew(t *testing.T) {
	before := lead("Padaria", "123", "41999990000")
	after := before
	after.Phone = entity.StringPtr("41999990001")

	cs := usecase.DetectChanges(
		usecase.NewSnapshot([]entity.Lead{before}),
		usecase.NewSnapshot([]entity.Lead{after}),
	)

	assert.Len(t, cs.New, 1)
	assert.Len(t, cs.Removed, 1)
	assert.Empty(t, cs.Unchanged)
}

func TestSnapshotCollapsesIdenticalRowsAcrossTabs(t *testing.T) {
	x := lead("Padaria", "123", "")
	y := x
	y.SourceTab = "BS2 - Outra"

	s := usecase.NewSnapshot([]entity.Lead{x, y})

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.Duplicates)
	assert.Equal(t, "C6 - Planilha Geral", s.Leads()[0].SourceTab, "first occurrence wins")
}

func TestDescriptorsOrderedByFingerprint(t *testing.T) {
	var db, src []entity.Lead
	for i := 0; i < 5; i++ {
		db = append(db, leadWithCNPJ(fmt.Sprint("old", i)))
		src = append(src, leadWithCNPJ(fmt.Sprint("new", i)))
	}

	descs := usecase.DetectChanges(usecase.NewSnapshot(db), usecase.NewSnapshot(src)).Descriptors()

	assert.Len(t, descs, 10)
	assert.True(t, sort.SliceIsSorted(descs, func(i, j int) bool { return descs[i].Fingerprint < descs[j].Fingerprint }))
	kinds := map[entity.ChangeKind]int{}
	for _, d := range descs {
		kinds[d.Kind]++
	}
	assert.Equal(t, 5, kinds[entity.ChangeNew])
	assert.Equal(t, 5, kinds[entity.ChangeRemoved])
}
