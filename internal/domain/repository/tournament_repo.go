package repository

import (
	"time"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
)

// TournamentFilters определяет фильтры каталога турниров
type TournamentFilters struct {
	Status      string // Фильтр по статусу (upcoming, ongoing, completed, cancelled)
	Type        string // "free", "paid" или конкретный match_type
	Game        string // Фильтр по названию игры
	EntryFee    *int   // Точное значение entry fee
	MinEntryFee *int   // Нижняя граница entry fee
}

// TournamentStats содержит счётчики турниров для главной страницы
type TournamentStats struct {
	Free    int64 `json:"free"`
	OneRs   int64 `json:"oneRs"`
	PerKill int64 `json:"perKill"`
	CsSolo  int64 `json:"csSolo"`
	CsDuo   int64 `json:"csDuo"`
	CsSquad int64 `json:"csSquad"`
}

// TournamentRepository определяет методы для работы с турнирами
type TournamentRepository interface {
	Create(tournament *entity.Tournament) error
	GetByID(id uint) (*entity.Tournament, error)
	// GetWithDetails возвращает турнир с предзагруженными слотами, призами и победителями
	GetWithDetails(id uint) (*entity.Tournament, error)
	Update(tournament *entity.Tournament) error
	UpdateStatus(tournamentID uint, status string) error
	SetRoom(tournamentID uint, roomID, roomPassword string) error
	Delete(id uint) error
	List(filters TournamentFilters, limit, offset int) ([]entity.Tournament, int64, error)
	GetPlayers(tournamentID uint) ([]entity.Slot, error)
	// GetByParticipant возвращает турниры, в которых пользователь занимает слот
	GetByParticipant(userID uint) ([]entity.Tournament, error)
	Stats() (*TournamentStats, error)
	// DueForStart возвращает upcoming-турниры, чьё match_time уже наступило
	DueForStart(now time.Time) ([]entity.Tournament, error)
	// PastDeadlineUnderfilled возвращает upcoming-турниры с истёкшим дедлайном
	// регистрации и числом игроков меньше минимального
	PastDeadlineUnderfilled(now time.Time) ([]entity.Tournament, error)
}
