package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func TestTournament_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{"upcoming -> ongoing", TournamentStatusUpcoming, TournamentStatusOngoing, true},
		{"ongoing -> completed", TournamentStatusOngoing, TournamentStatusCompleted, true},
		{"upcoming -> cancelled", TournamentStatusUpcoming, TournamentStatusCancelled, true},
		{"ongoing -> cancelled", TournamentStatusOngoing, TournamentStatusCancelled, true},
		{"upcoming -> completed (пропуск ongoing)", TournamentStatusUpcoming, TournamentStatusCompleted, false},
		{"ongoing -> upcoming (назад)", TournamentStatusOngoing, TournamentStatusUpcoming, false},
		{"completed -> cancelled (терминальный)", TournamentStatusCompleted, TournamentStatusCancelled, false},
		{"cancelled -> ongoing (терминальный)", TournamentStatusCancelled, TournamentStatusOngoing, false},
		{"cancelled -> cancelled (повтор)", TournamentStatusCancelled, TournamentStatusCancelled, false},
		{"upcoming -> upcoming (без изменения)", TournamentStatusUpcoming, TournamentStatusUpcoming, false},
		{"upcoming -> неизвестный", TournamentStatusUpcoming, "paused", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tournament := &Tournament{Status: tt.from}
			assert.Equal(t, tt.allowed, tournament.CanTransitionTo(tt.to))
		})
	}
}

func TestTournament_Slots(t *testing.T) {
	tournament := &Tournament{
		MaxPlayers:     4,
		CurrentPlayers: 2,
		Slots: []Slot{
			{SlotNumber: 1, UserID: uintPtr(10), Username: "alpha"},
			{SlotNumber: 2},
			{SlotNumber: 3, UserID: uintPtr(20), Username: "beta"},
			{SlotNumber: 4},
		},
	}

	// UserSlot находит слот участника
	slot := tournament.UserSlot(20)
	require.NotNil(t, slot)
	assert.Equal(t, 3, slot.SlotNumber)
	assert.Nil(t, tournament.UserSlot(99), "Не участник не имеет слота")

	// FreeSlot по номеру
	assert.NotNil(t, tournament.FreeSlot(2))
	assert.Nil(t, tournament.FreeSlot(1), "Занятый слот не свободен")
	assert.Nil(t, tournament.FreeSlot(7), "Несуществующий номер")

	// NextFreeSlot берёт минимальный свободный номер
	next := tournament.NextFreeSlot()
	require.NotNil(t, next)
	assert.Equal(t, 2, next.SlotNumber)

	assert.False(t, tournament.IsFull())
	tournament.CurrentPlayers = 4
	assert.True(t, tournament.IsFull())
}

func TestTournament_RequiresSlotChoice(t *testing.T) {
	assert.True(t, (&Tournament{ScoringType: ScoringTeamBased}).RequiresSlotChoice())
	assert.False(t, (&Tournament{ScoringType: ScoringWinBased}).RequiresSlotChoice())
	assert.False(t, (&Tournament{ScoringType: ScoringKillBased}).RequiresSlotChoice())
}

func TestTournament_TotalPrizeAmount(t *testing.T) {
	tournament := &Tournament{
		Prizes: []Prize{
			{Position: 1, Amount: 500},
			{Position: 2, Amount: 300},
			{Position: 3, Amount: 100},
		},
	}
	assert.Equal(t, 900, tournament.TotalPrizeAmount())
	assert.Equal(t, 0, (&Tournament{}).TotalPrizeAmount())
}

func TestSlot_IsOccupied(t *testing.T) {
	assert.False(t, (&Slot{}).IsOccupied())
	assert.True(t, (&Slot{UserID: uintPtr(1)}).IsOccupied())
}
