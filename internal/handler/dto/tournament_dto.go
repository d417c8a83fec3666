package dto

import (
	"time"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
)

// PrizeDTO представляет один позиционный приз
type PrizeDTO struct {
	Position int `json:"position"`
	Amount   int `json:"amount"`
}

// SlotDTO представляет позицию в ростере турнира
type SlotDTO struct {
	SlotNumber int        `json:"slotNumber"`
	UserID     *uint      `json:"userId,omitempty"`
	Username   string     `json:"username,omitempty"`
	JoinedAt   *time.Time `json:"joinedAt,omitempty"`
	IsOccupied bool       `json:"isOccupied"`
}

// WinnerDTO представляет выплату победителю
type WinnerDTO struct {
	UserID   uint    `json:"userId"`
	Position int     `json:"position"`
	Kills    int     `json:"kills"`
	Amount   float64 `json:"amount"`
}

// TournamentResponse представляет турнир в API.
// Данные комнаты включаются только для участников и админов.
type TournamentResponse struct {
	ID                   uint        `json:"id"`
	TournamentName       string      `json:"tournamentName"`
	Slug                 string      `json:"slug"`
	GameName             string      `json:"gameName"`
	ModeType             string      `json:"modeType"`
	MatchType            string      `json:"matchType"`
	ScoringType          string      `json:"scoringType"`
	PerKillAmount        float64     `json:"perKillAmount,omitempty"`
	EntryFee             int         `json:"entryFee"`
	PrizePool            int         `json:"prizePool"`
	MinPlayers           int         `json:"minPlayers"`
	MaxPlayers           int         `json:"maxPlayers"`
	CurrentPlayers       int         `json:"currentPlayers"`
	MatchTime            time.Time   `json:"matchTime"`
	RegistrationDeadline time.Time   `json:"registrationDeadline"`
	DurationMin          int         `json:"durationMin"`
	Status               string      `json:"status"`
	Rules                []string    `json:"rules"`
	RoomID               string      `json:"roomId,omitempty"`
	RoomPassword         string      `json:"roomPassword,omitempty"`
	Prizes               []PrizeDTO  `json:"prizes,omitempty"`
	Slots                []SlotDTO   `json:"slots,omitempty"`
	Winners              []WinnerDTO `json:"winners,omitempty"`

	// Поля, зависящие от запрашивающего пользователя
	CanJoin   bool     `json:"canJoin"`
	UserSlot  *SlotDTO `json:"userSlot,omitempty"`
	HasJoined bool     `json:"hasJoined"`
}

// NewTournamentResponse собирает ответ из сущности.
// viewerID - ID запрашивающего (0 для анонима), isAdmin открывает данные комнаты.
func NewTournamentResponse(t *entity.Tournament, viewerID uint, isAdmin bool) *TournamentResponse {
	resp := &TournamentResponse{
		ID:                   t.ID,
		TournamentName:       t.TournamentName,
		Slug:                 t.Slug,
		GameName:             t.GameName,
		ModeType:             t.ModeType,
		MatchType:            t.MatchType,
		ScoringType:          t.ScoringType,
		PerKillAmount:        t.PerKillAmount,
		EntryFee:             t.EntryFee,
		PrizePool:            t.PrizePool,
		MinPlayers:           t.MinPlayers,
		MaxPlayers:           t.MaxPlayers,
		CurrentPlayers:       t.CurrentPlayers,
		MatchTime:            t.MatchTime,
		RegistrationDeadline: t.RegistrationDeadline,
		DurationMin:          t.DurationMin,
		Status:               t.Status,
		Rules:                t.Rules,
	}
	if resp.Rules == nil {
		resp.Rules = []string{}
	}

	for _, p := range t.Prizes {
		resp.Prizes = append(resp.Prizes, PrizeDTO{Position: p.Position, Amount: p.Amount})
	}
	for i := range t.Slots {
		resp.Slots = append(resp.Slots, newSlotDTO(&t.Slots[i]))
	}
	for _, w := range t.Winners {
		resp.Winners = append(resp.Winners, WinnerDTO{
			UserID:   w.UserID,
			Position: w.Position,
			Kills:    w.Kills,
			Amount:   w.Amount,
		})
	}

	var joined bool
	if viewerID != 0 {
		if slot := t.UserSlot(viewerID); slot != nil {
			joined = true
			dto := newSlotDTO(slot)
			resp.UserSlot = &dto
		}
	}
	resp.HasJoined = joined
	resp.CanJoin = t.IsUpcoming() && !joined && !t.IsFull() &&
		time.Now().Before(t.RegistrationDeadline)

	// Комната видна участникам и админам
	if isAdmin || joined {
		resp.RoomID = t.RoomID
		resp.RoomPassword = t.RoomPassword
	}

	return resp
}

// NewTournamentListResponse собирает список без слотов - каталогу они не нужны
func NewTournamentListResponse(tournaments []entity.Tournament, viewerID uint, isAdmin bool) []*TournamentResponse {
	result := make([]*TournamentResponse, 0, len(tournaments))
	for i := range tournaments {
		resp := NewTournamentResponse(&tournaments[i], viewerID, isAdmin)
		resp.Slots = nil
		result = append(result, resp)
	}
	return result
}

func newSlotDTO(s *entity.Slot) SlotDTO {
	return SlotDTO{
		SlotNumber: s.SlotNumber,
		UserID:     s.UserID,
		Username:   s.Username,
		JoinedAt:   s.JoinedAt,
		IsOccupied: s.IsOccupied(),
	}
}
