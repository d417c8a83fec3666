package entity

import (
	"time"
)

// Константы статусов турнира
const (
	TournamentStatusUpcoming  = "upcoming"
	TournamentStatusOngoing   = "ongoing"
	TournamentStatusCompleted = "completed"
	TournamentStatusCancelled = "cancelled"
)

// Типы подсчёта призов
const (
	ScoringWinBased  = "win_based"  // призы по занятым местам
	ScoringKillBased = "kill_based" // места + бонус за киллы
	ScoringTeamBased = "team_based" // равный делёж пула на победившую команду
)

// Режимы матча
const (
	ModeSolo  = "solo"
	ModeDuo   = "duo"
	ModeSquad = "squad"
)

// Tournament представляет турнир
type Tournament struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	TournamentName string  `gorm:"size:100;not null" json:"tournament_name"`
	Slug           string  `gorm:"size:120;not null;index" json:"slug"`
	GameName       string  `gorm:"size:100;not null" json:"game_name"`
	ModeType       string  `gorm:"size:20;not null;default:'solo'" json:"mode_type"`
	MatchType      string  `gorm:"size:30;not null;default:'battle_royale'" json:"match_type"`
	ScoringType    string  `gorm:"size:20;not null;default:'win_based'" json:"scoring_type"`
	PerKillAmount  float64 `gorm:"not null;default:0" json:"per_kill_amount"`
	EntryFee       int     `gorm:"not null;default:0" json:"entry_fee"`
	PrizePool      int     `gorm:"not null;default:0" json:"prize_pool"`
	MinPlayers     int     `gorm:"not null;default:2" json:"min_players"`
	MaxPlayers     int     `gorm:"not null" json:"max_players"`
	CurrentPlayers int     `gorm:"not null;default:0" json:"current_players"`

	MatchTime            time.Time `gorm:"not null;index" json:"match_time"`
	RegistrationDeadline time.Time `gorm:"not null" json:"registration_deadline"`
	DurationMin          int       `gorm:"not null;default:30" json:"duration_min"`

	RoomID       string `gorm:"size:50;not null;default:''" json:"room_id,omitempty"`
	RoomPassword string `gorm:"size:50;not null;default:''" json:"room_password,omitempty"`

	Status string      `gorm:"size:20;not null;default:'upcoming';index" json:"status"`
	Rules  StringArray `gorm:"type:jsonb;not null;default:'[]'" json:"rules"`

	Slots   []Slot   `gorm:"foreignKey:TournamentID" json:"slots,omitempty"`
	Prizes  []Prize  `gorm:"foreignKey:TournamentID" json:"prizes,omitempty"`
	Winners []Winner `gorm:"foreignKey:TournamentID" json:"winners,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Tournament) TableName() string {
	return "tournaments"
}

// IsUpcoming проверяет, открыт ли турнир для регистрации
func (t *Tournament) IsUpcoming() bool {
	return t.Status == TournamentStatusUpcoming
}

// IsCompleted проверяет, завершён ли турнир
func (t *Tournament) IsCompleted() bool {
	return t.Status == TournamentStatusCompleted
}

// IsFull проверяет, заполнен ли турнир
func (t *Tournament) IsFull() bool {
	return t.CurrentPlayers >= t.MaxPlayers
}

// RequiresSlotChoice возвращает true, если при регистрации игрок обязан
// явно выбрать номер слота (командные турниры)
func (t *Tournament) RequiresSlotChoice() bool {
	return t.ScoringType == ScoringTeamBased
}

// TotalPrizeAmount возвращает сумму всех позиционных призов
func (t *Tournament) TotalPrizeAmount() int {
	total := 0
	for _, p := range t.Prizes {
		total += p.Amount
	}
	return total
}

// UserSlot возвращает слот, занятый пользователем, или nil
func (t *Tournament) UserSlot(userID uint) *Slot {
	for i := range t.Slots {
		if t.Slots[i].UserID != nil && *t.Slots[i].UserID == userID {
			return &t.Slots[i]
		}
	}
	return nil
}

// FreeSlot возвращает слот по номеру, если он существует и свободен
func (t *Tournament) FreeSlot(slotNumber int) *Slot {
	for i := range t.Slots {
		if t.Slots[i].SlotNumber == slotNumber && t.Slots[i].UserID == nil {
			return &t.Slots[i]
		}
	}
	return nil
}

// NextFreeSlot возвращает первый свободный слот по возрастанию номера, или nil
func (t *Tournament) NextFreeSlot() *Slot {
	var best *Slot
	for i := range t.Slots {
		s := &t.Slots[i]
		if s.UserID != nil {
			continue
		}
		if best == nil || s.SlotNumber < best.SlotNumber {
			best = s
		}
	}
	return best
}

// CanTransitionTo проверяет допустимость перехода статуса.
// Статус движется строго вперёд: upcoming -> ongoing -> completed.
// cancelled терминален и достижим из любого незавершённого состояния.
func (t *Tournament) CanTransitionTo(newStatus string) bool {
	if t.Status == newStatus {
		return false
	}
	switch newStatus {
	case TournamentStatusOngoing:
		return t.Status == TournamentStatusUpcoming
	case TournamentStatusCompleted:
		return t.Status == TournamentStatusOngoing
	case TournamentStatusCancelled:
		return t.Status != TournamentStatusCompleted && t.Status != TournamentStatusCancelled
	default:
		return false
	}
}

// Slot представляет одну позицию в ростере турнира.
// Слот либо пуст, либо занят ровно одним пользователем.
type Slot struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TournamentID uint       `gorm:"not null;uniqueIndex:idx_slots_tournament_number" json:"tournament_id"`
	SlotNumber   int        `gorm:"not null;uniqueIndex:idx_slots_tournament_number" json:"slot_number"`
	UserID       *uint      `gorm:"index:idx_slots_user" json:"user_id,omitempty"`
	Username     string     `gorm:"size:50;not null;default:''" json:"username,omitempty"`
	JoinedAt     *time.Time `gorm:"type:timestamp" json:"joined_at,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Slot) TableName() string {
	return "slots"
}

// IsOccupied возвращает true, если слот занят
func (s *Slot) IsOccupied() bool {
	return s.UserID != nil
}

// Prize представляет позиционный приз турнира
type Prize struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	TournamentID uint `gorm:"not null;uniqueIndex:idx_prizes_tournament_position" json:"tournament_id"`
	Position     int  `gorm:"not null;uniqueIndex:idx_prizes_tournament_position" json:"position"`
	Amount       int  `gorm:"not null" json:"amount"`
}

// TableName определяет имя таблицы для GORM
func (Prize) TableName() string {
	return "prizes"
}

// Winner представляет зафиксированную выплату победителю.
// Для team_based Position равен 0 - позиции в команде не назначаются.
type Winner struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TournamentID uint      `gorm:"not null;index" json:"tournament_id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Position     int       `gorm:"not null;default:0" json:"position"`
	Kills        int       `gorm:"not null;default:0" json:"kills"`
	Amount       float64   `gorm:"not null" json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Winner) TableName() string {
	return "winners"
}
