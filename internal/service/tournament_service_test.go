package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
)

func validInput() *TournamentInput {
	matchTime := time.Now().Add(24 * time.Hour)
	return &TournamentInput{
		TournamentName:       "Friday Night Cup",
		GameName:             "Free Fire",
		ModeType:             "solo",
		MatchType:            "cs_solo",
		ScoringType:          entity.ScoringWinBased,
		EntryFee:             10,
		PrizePool:            500,
		MinPlayers:           2,
		MaxPlayers:           48,
		MatchTime:            matchTime,
		RegistrationDeadline: matchTime.Add(-time.Hour),
		DurationMin:          30,
		Prizes:               map[int]int{1: 300, 2: 150, 3: 50},
	}
}

func TestValidateTournamentInput(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*TournamentInput)
		wantErr bool
	}{
		{"valid input", func(i *TournamentInput) {}, false},
		{"empty name", func(i *TournamentInput) { i.TournamentName = "" }, true},
		{"empty game", func(i *TournamentInput) { i.GameName = "" }, true},
		{"unknown scoring type", func(i *TournamentInput) { i.ScoringType = "bracket" }, true},
		{"kill based without per kill amount", func(i *TournamentInput) {
			i.ScoringType = entity.ScoringKillBased
			i.PerKillAmount = 0
		}, true},
		{"kill based with per kill amount", func(i *TournamentInput) {
			i.ScoringType = entity.ScoringKillBased
			i.PerKillAmount = 5
		}, false},
		{"negative entry fee", func(i *TournamentInput) { i.EntryFee = -1 }, true},
		{"free tournament", func(i *TournamentInput) { i.EntryFee = 0 }, false},
		{"single slot", func(i *TournamentInput) { i.MaxPlayers = 1 }, true},
		{"min players above max", func(i *TournamentInput) { i.MinPlayers = 100 }, true},
		{"zero match time", func(i *TournamentInput) { i.MatchTime = time.Time{} }, true},
		{"deadline after match time", func(i *TournamentInput) {
			i.RegistrationDeadline = i.MatchTime.Add(time.Hour)
		}, true},
		{"deadline equals match time", func(i *TournamentInput) {
			i.RegistrationDeadline = i.MatchTime
		}, false},
		{"prize at position zero", func(i *TournamentInput) { i.Prizes = map[int]int{0: 100} }, true},
		{"negative prize amount", func(i *TournamentInput) { i.Prizes = map[int]int{1: -5} }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			input := validInput()
			tc.mutate(input)

			// Act
			err := validateTournamentInput(input)

			// Assert
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrValidation), "Ошибка валидации должна оборачивать ErrValidation")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTournamentService_Create_Success(t *testing.T) {
	// Arrange
	mockTournamentRepo := new(MockTournamentRepository)

	var created *entity.Tournament
	mockTournamentRepo.On("Create", mock.AnythingOfType("*entity.Tournament")).
		Run(func(args mock.Arguments) {
			created = args.Get(0).(*entity.Tournament)
		}).
		Return(nil)

	tournamentService := NewTournamentService(mockTournamentRepo, nil, nil, nil)

	// Act
	got, err := tournamentService.Create(validInput())

	// Assert
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "friday-night-cup", created.Slug, "Слаг должен генерироваться из названия")
	assert.Equal(t, entity.TournamentStatusUpcoming, created.Status, "Новый турнир всегда upcoming")
	assert.Len(t, created.Prizes, 3, "Таблица призов должна создаваться вместе с турниром")
	assert.Equal(t, got, created)
	mockTournamentRepo.AssertExpectations(t)
}

func TestTournamentService_Create_InvalidInput(t *testing.T) {
	// Arrange
	mockTournamentRepo := new(MockTournamentRepository)
	tournamentService := NewTournamentService(mockTournamentRepo, nil, nil, nil)

	input := validInput()
	input.TournamentName = ""

	// Act
	_, err := tournamentService.Create(input)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	mockTournamentRepo.AssertNotCalled(t, "Create")
}

func TestTournamentService_Delete_WithPlayers(t *testing.T) {
	// Arrange
	mockTournamentRepo := new(MockTournamentRepository)
	mockTournamentRepo.On("GetByID", uint(1)).Return(&entity.Tournament{
		ID:             1,
		Status:         entity.TournamentStatusUpcoming,
		CurrentPlayers: 3,
	}, nil)

	tournamentService := NewTournamentService(mockTournamentRepo, nil, nil, nil)

	// Act
	err := tournamentService.Delete(1)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "Турнир с игроками нельзя удалить без отмены и возвратов")
	mockTournamentRepo.AssertNotCalled(t, "Delete")
}

func TestTournamentService_Delete_Empty(t *testing.T) {
	// Arrange
	mockTournamentRepo := new(MockTournamentRepository)
	mockTournamentRepo.On("GetByID", uint(1)).Return(&entity.Tournament{
		ID:     1,
		Status: entity.TournamentStatusUpcoming,
	}, nil)
	mockTournamentRepo.On("Delete", uint(1)).Return(nil)

	tournamentService := NewTournamentService(mockTournamentRepo, nil, nil, nil)

	// Act
	err := tournamentService.Delete(1)

	// Assert
	require.NoError(t, err)
	mockTournamentRepo.AssertExpectations(t)
}

func TestStatusChangeMessages(t *testing.T) {
	tournament := &entity.Tournament{TournamentName: "Friday Night Cup"}

	assert.Equal(t, "Match started", statusChangeTitle(entity.TournamentStatusOngoing))
	assert.Equal(t, "Tournament completed", statusChangeTitle(entity.TournamentStatusCompleted))
	assert.Contains(t, statusChangeMessage(tournament, entity.TournamentStatusOngoing), "Friday Night Cup")
}
