package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
)

// prizeTestTournament собирает турнир с занятыми слотами для расчёта выплат
func prizeTestTournament(scoringType string, participantIDs ...uint) *entity.Tournament {
	t := &entity.Tournament{
		ID:             1,
		TournamentName: "Friday Night Cup",
		ScoringType:    scoringType,
		CurrentPlayers: len(participantIDs),
	}
	for i, id := range participantIDs {
		userID := id
		t.Slots = append(t.Slots, entity.Slot{
			TournamentID: t.ID,
			SlotNumber:   i + 1,
			UserID:       &userID,
		})
	}
	return t
}

func TestCalculatePayouts_WinBased(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringWinBased, 10, 20, 30)
	tournament.Prizes = []entity.Prize{
		{Position: 1, Amount: 500},
		{Position: 2, Amount: 200},
	}
	req := &DistributionRequest{
		Placements: []PlacementResult{
			{UserID: 20, Position: 1},
			{UserID: 10, Position: 2},
			{UserID: 30, Position: 3},
		},
	}

	// Act
	payouts, err := calculatePayouts(tournament, req)

	// Assert
	require.NoError(t, err)
	require.Len(t, payouts, 2, "Позиция без приза не должна порождать выплату")

	assert.Equal(t, uint(20), payouts[0].UserID)
	assert.Equal(t, float64(500), payouts[0].Amount)
	assert.True(t, payouts[0].IsWin, "Первое место должно увеличивать wins_count")

	assert.Equal(t, uint(10), payouts[1].UserID)
	assert.Equal(t, float64(200), payouts[1].Amount)
	assert.False(t, payouts[1].IsWin, "Второе место не должно увеличивать wins_count")
}

func TestCalculatePayouts_KillBased(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringKillBased, 10, 20)
	tournament.PerKillAmount = 5
	tournament.Prizes = []entity.Prize{{Position: 1, Amount: 100}}
	req := &DistributionRequest{
		Placements: []PlacementResult{
			{UserID: 10, Position: 1, Kills: 7},
			{UserID: 20, Position: 2, Kills: 3},
		},
	}

	// Act
	payouts, err := calculatePayouts(tournament, req)

	// Assert
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.Equal(t, float64(135), payouts[0].Amount, "Приз за место плюс 7 киллов по ₹5")
	assert.Equal(t, float64(15), payouts[1].Amount, "Без приза за место остаются только киллы")
}

func TestCalculatePayouts_DisqualifiedExcluded(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringWinBased, 10, 20)
	tournament.Prizes = []entity.Prize{{Position: 1, Amount: 500}}
	req := &DistributionRequest{
		Placements: []PlacementResult{
			{UserID: 10, Position: 1, Disqualified: true},
			{UserID: 20, Position: 2},
		},
	}

	// Act
	payouts, err := calculatePayouts(tournament, req)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, payouts, "Дисквалифицированный участник не получает приз, его место не переходит другим")
}

func TestCalculatePayouts_NonParticipant(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringWinBased, 10)
	tournament.Prizes = []entity.Prize{{Position: 1, Amount: 500}}
	req := &DistributionRequest{
		Placements: []PlacementResult{{UserID: 99, Position: 1}},
	}

	// Act
	_, err := calculatePayouts(tournament, req)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "Чужой пользователь в результатах должен давать ErrValidation")
}

func TestCalculatePayouts_DuplicateUser(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringWinBased, 10, 20)
	tournament.Prizes = []entity.Prize{{Position: 1, Amount: 500}, {Position: 2, Amount: 200}}
	req := &DistributionRequest{
		Placements: []PlacementResult{
			{UserID: 10, Position: 1},
			{UserID: 10, Position: 2},
		},
	}

	// Act
	_, err := calculatePayouts(tournament, req)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestCalculatePayouts_DuplicatePosition(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringWinBased, 10, 20)
	tournament.Prizes = []entity.Prize{{Position: 1, Amount: 500}}
	req := &DistributionRequest{
		Placements: []PlacementResult{
			{UserID: 10, Position: 1},
			{UserID: 20, Position: 1},
		},
	}

	// Act
	_, err := calculatePayouts(tournament, req)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "Одна позиция у двух игроков должна давать ErrValidation")
}

func TestCalculatePayouts_EmptyPlacements(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringWinBased, 10)

	// Act
	_, err := calculatePayouts(tournament, &DistributionRequest{})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestCalculatePayouts_TeamSplit(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringTeamBased, 10, 20, 30, 40)
	tournament.Prizes = []entity.Prize{
		{Position: 1, Amount: 600},
		{Position: 2, Amount: 400},
	}
	req := &DistributionRequest{WinningTeam: []uint{10, 20, 30}}

	// Act
	payouts, err := calculatePayouts(tournament, req)

	// Assert
	require.NoError(t, err)
	require.Len(t, payouts, 3)
	for _, p := range payouts {
		assert.Equal(t, float64(333), p.Amount, "Фонд ₹1000 на троих: по ₹333, остаток отбрасывается")
		assert.True(t, p.IsWin, "Каждый член победившей команды получает победу в статистику")
	}
}

func TestCalculatePayouts_TeamPoolFromPrizeTable(t *testing.T) {
	// Arrange
	// Делится сумма настроенных призов, а не поле prize_pool
	tournament := prizeTestTournament(entity.ScoringTeamBased, 10, 20)
	tournament.PrizePool = 1000
	tournament.Prizes = []entity.Prize{
		{Position: 1, Amount: 500},
		{Position: 2, Amount: 300},
	}
	req := &DistributionRequest{WinningTeam: []uint{10, 20}}

	// Act
	payouts, err := calculatePayouts(tournament, req)

	// Assert
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.Equal(t, float64(400), payouts[0].Amount, "Командный фонд - сумма призов таблицы (₹800), по ₹400 на каждого")
	assert.Equal(t, float64(400), payouts[1].Amount)
}

func TestCalculatePayouts_TeamDisqualifiedMember(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringTeamBased, 10, 20, 30)
	tournament.Prizes = []entity.Prize{{Position: 1, Amount: 900}}
	req := &DistributionRequest{
		WinningTeam: []uint{10, 20, 30},
		Placements: []PlacementResult{
			{UserID: 30, Disqualified: true},
		},
	}

	// Act
	payouts, err := calculatePayouts(tournament, req)

	// Assert
	require.NoError(t, err)
	require.Len(t, payouts, 2, "Дисквалифицированный член команды исключается из дележа")
	assert.Equal(t, float64(450), payouts[0].Amount, "Пул делится между оставшимися")
}

func TestCalculatePayouts_TeamAllDisqualified(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringTeamBased, 10, 20)
	tournament.Prizes = []entity.Prize{{Position: 1, Amount: 500}}
	req := &DistributionRequest{
		WinningTeam: []uint{10, 20},
		Placements: []PlacementResult{
			{UserID: 10, Disqualified: true},
			{UserID: 20, Disqualified: true},
		},
	}

	// Act
	_, err := calculatePayouts(tournament, req)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "Полностью дисквалифицированная команда не может получить приз")
}

func TestCalculatePayouts_TeamEmpty(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringTeamBased, 10)
	tournament.Prizes = []entity.Prize{{Position: 1, Amount: 500}}

	// Act
	_, err := calculatePayouts(tournament, &DistributionRequest{})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestCalculatePayouts_TeamNoPrizePool(t *testing.T) {
	// Arrange
	tournament := prizeTestTournament(entity.ScoringTeamBased, 10)
	req := &DistributionRequest{WinningTeam: []uint{10}}

	// Act
	_, err := calculatePayouts(tournament, req)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "Турнир без пула не может раздавать командные призы")
}
