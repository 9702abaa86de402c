package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageSet_MarkAndHas(t *testing.T) {
	var ss StageSet
	assert.False(t, ss.Has(StageDiscover))

	ss.Mark(StageDiscover)
	ss.Mark(StageEnrich)

	assert.True(t, ss.Has(StageDiscover))
	assert.True(t, ss.Has(StageEnrich))
	assert.False(t, ss.Has(StageParse))
	assert.False(t, ss.Has(StageValidate))
}

func TestStageSet_Union(t *testing.T) {
	var a, b StageSet
	a.Mark(StageDiscover)
	a.Mark(StageParse)
	b.Mark(StageParse)
	b.Mark(StageContacts)

	u := a.Union(b)
	assert.True(t, u.Has(StageDiscover))
	assert.True(t, u.Has(StageParse))
	assert.True(t, u.Has(StageContacts))
	assert.False(t, u.Has(StageEnrich))
	assert.Equal(t, 3, u.Count())

	// Union does not mutate the operands.
	assert.Equal(t, 2, a.Count())
	assert.Equal(t, 2, b.Count())
}

func TestStageSet_Names(t *testing.T) {
	var ss StageSet
	assert.Nil(t, ss.Names())

	ss.Mark(StageValidate)
	ss.Mark(StageDiscover)
	ss.Mark(StageEnrich)

	// Pipeline order, not mark order.
	assert.Equal(t, []string{"discover", "enrich", "validate"}, ss.Names())
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "discover", StageDiscover.String())
	assert.Equal(t, "parse", StageParse.String())
	assert.Equal(t, "enrich", StageEnrich.String())
	assert.Equal(t, "contacts", StageContacts.String())
	assert.Equal(t, "validate", StageValidate.String())
	assert.Equal(t, "unknown", Stage(99).String())
}

func TestProspect_PrimaryContact(t *testing.T) {
	p := &Prospect{
		Contacts: []Contact{
			{Name: "Ann Ops", Title: "Operations"},
			{Name: "Bo Boss", Title: "Owner", Primary: true},
		},
	}
	c := p.PrimaryContact()
	assert.NotNil(t, c)
	assert.Equal(t, "Bo Boss", c.Name)

	assert.Nil(t, (&Prospect{}).PrimaryContact())
}

func TestProspect_ContactFields(t *testing.T) {
	p := &Prospect{
		Contacts: []Contact{
			{Name: "Ann Ops", Title: "Operations", Email: "ann@acme.dev"},
			{Name: "Bo Boss", LinkedIn: "https://linkedin.com/in/bo"},
			{Name: "  "},
		},
	}
	assert.Equal(t, 5, p.ContactFields())
	assert.Equal(t, 0, (&Prospect{}).ContactFields())
}
