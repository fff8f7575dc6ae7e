package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xavierca1/leadsync/internal/entity"
)

func TestMergePhonesAppendsNewNumber(t *testing.T) {
	existing := []entity.PhoneValue{{Value: "(41) 99157-4642", ValueType: "WORK"}}

	merged, changed := entity.MergePhones(existing, "4130303030")

	assert.True(t, changed)
	assert.Len(t, merged, 2)
	assert.Equal(t, "4130303030", merged[1].Value)
	assert.Len(t, existing, 1, "original slice must not be modified")
}

func TestMergePhonesKeepsSameDigits(t *testing.T) {
	existing := []entity.PhoneValue{{Value: "(41) 99157-4642", ValueType: "WORK"}}

	merged, changed := entity.MergePhones(existing, "41991574642")

	assert.False(t, changed)
	assert.Equal(t, existing, merged)
}

func TestMergePhonesEmpty(t *testing.T) {
	merged, changed := entity.MergePhones(nil, "")
	assert.False(t, changed)
	assert.Empty(t, merged)
}

func TestLowestID(t *testing.T) {
	_, ok := entity.LowestID(nil)
	assert.False(t, ok)

	rec, ok := entity.LowestID([]entity.CRMRecord{{ID: 30}, {ID: 7}, {ID: 12}})
	assert.True(t, ok)
	assert.Equal(t, 7, rec.ID)
}

func TestCRMUserFullName(t *testing.T) {
	assert.Equal(t, "Ana Lima", entity.CRMUser{Name: "Ana", LastName: "Lima"}.FullName())
	assert.Equal(t, "Ana", entity.CRMUser{Name: "Ana"}.FullName())
}
