package logic

import (
	"testing"

	"github.com/2ue/total-gmn/internal/model"
	"github.com/2ue/total-gmn/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveParticipants(t *testing.T) {
	db := newTestDB(t)
	p := NewParticipantLogic(db)

	saved, err := p.SaveParticipants([]model.ParticipantModel{
		{Name: "  甲 ", BillAccount: strPtr(" acc-a "), Ratio: dec("0.3333333")},
		{Name: "乙", BillAccount: strPtr(""), Ratio: dec("0.333333")},
		{Name: "丙", Ratio: dec("0.333334")},
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)

	assert.Equal(t, "甲", saved[0].Name)
	require.NotNil(t, saved[0].BillAccount)
	assert.Equal(t, "acc-a", *saved[0].BillAccount)
	assert.Equal(t, "0.333333", money.FormatRatio(saved[0].Ratio))
	assert.Nil(t, saved[1].BillAccount)

	list, err := p.ListParticipants()
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSaveParticipantsRejectsInvariantViolations(t *testing.T) {
	db := newTestDB(t)
	p := NewParticipantLogic(db)
	before := seedParticipants(t, db)

	cases := map[string][]model.ParticipantModel{
		"ratio sum below one": {
			{Name: "甲", Ratio: dec("0.5")},
			{Name: "乙", Ratio: dec("0.4")},
		},
		"ratio sum above one": {
			{Name: "甲", Ratio: dec("0.7")},
			{Name: "乙", Ratio: dec("0.4")},
		},
		"duplicate account": {
			{Name: "甲", BillAccount: strPtr("acc-a"), Ratio: dec("0.5")},
			{Name: "乙", BillAccount: strPtr("acc-a"), Ratio: dec("0.5")},
		},
		"empty name": {
			{Name: "  ", Ratio: dec("1")},
		},
		"negative ratio": {
			{Name: "甲", Ratio: dec("1.5")},
			{Name: "乙", Ratio: dec("-0.5")},
		},
		"duplicate id": {
			{Id: before[0].Id, Name: "甲", Ratio: dec("0.5")},
			{Id: before[0].Id, Name: "乙", Ratio: dec("0.5")},
		},
	}

	for name, participants := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.SaveParticipants(participants)
			assert.ErrorIs(t, err, ErrInvariant)

			after, err := p.ListParticipants()
			require.NoError(t, err)
			require.Len(t, after, len(before))
			for i := range before {
				assert.Equal(t, before[i].Id, after[i].Id)
				assert.Equal(t, before[i].Name, after[i].Name)
				assert.True(t, before[i].Ratio.Equal(after[i].Ratio))
			}
		})
	}
}

func TestSaveParticipantsUnknownId(t *testing.T) {
	db := newTestDB(t)
	p := NewParticipantLogic(db)
	before := seedParticipants(t, db)

	_, err := p.SaveParticipants([]model.ParticipantModel{
		{Id: before[0].Id, Name: "甲", Ratio: dec("0.5")},
		{Id: 9999, Name: "幽灵", Ratio: dec("0.5")},
	})
	assert.ErrorIs(t, err, ErrValidation)

	// 事务回滚，乙仍在
	after, err := p.ListParticipants()
	require.NoError(t, err)
	assert.Len(t, after, 2)
}

func TestSaveParticipantsSwapAccounts(t *testing.T) {
	db := newTestDB(t)
	p := NewParticipantLogic(db)
	before, err := p.SaveParticipants([]model.ParticipantModel{
		{Name: "甲", BillAccount: strPtr("acc-a"), Ratio: dec("0.5")},
		{Name: "乙", BillAccount: strPtr("acc-b"), Ratio: dec("0.5")},
	})
	require.NoError(t, err)

	after, err := p.SaveParticipants([]model.ParticipantModel{
		{Id: before[0].Id, Name: "甲", BillAccount: strPtr("acc-b"), Ratio: dec("0.5")},
		{Id: before[1].Id, Name: "乙", BillAccount: strPtr("acc-a"), Ratio: dec("0.5")},
	})
	require.NoError(t, err)
	assert.Equal(t, "acc-b", after[0].BoundAccount())
	assert.Equal(t, "acc-a", after[1].BoundAccount())
}

func TestRemovedParticipantKeepsAllocationSnapshot(t *testing.T) {
	db := newTestDB(t)
	p := NewParticipantLogic(db)
	before := seedParticipants(t, db)
	seedCumulativeLedger(t, db)

	s := NewSettlementLogic(db, testSettlementConfig())
	batch, err := s.Create(CreateRequest{PreviewRequest: cumulativeRequest(5)})
	require.NoError(t, err)

	_, err = p.SaveParticipants([]model.ParticipantModel{
		{Id: before[0].Id, Name: "甲", BillAccount: strPtr("acc-a"), Ratio: dec("1")},
	})
	require.NoError(t, err)

	kept, err := s.GetBatch(batch.Id)
	require.NoError(t, err)
	require.Len(t, kept.Allocations, 2)

	assert.Equal(t, "0.600000", money.FormatRatio(kept.Allocations[0].Ratio))
	require.NotNil(t, kept.Allocations[0].ParticipantId)

	assert.Nil(t, kept.Allocations[1].ParticipantId)
	assert.Equal(t, "乙", kept.Allocations[1].ParticipantName)
	assert.Equal(t, "560.00", money.FormatAmount(kept.Allocations[1].Amount))
}
