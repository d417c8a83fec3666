package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	"github.com/yourusername/maxbattle-api/internal/handler/dto"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
	"github.com/yourusername/maxbattle-api/internal/service"
)

// TournamentRequest представляет запрос на создание/редактирование турнира
type TournamentRequest struct {
	TournamentName       string      `json:"tournamentName" binding:"required,max=100"`
	GameName             string      `json:"gameName" binding:"required,max=100"`
	ModeType             string      `json:"modeType" binding:"required,oneof=solo duo squad"`
	MatchType            string      `json:"matchType" binding:"required,max=30"`
	ScoringType          string      `json:"scoringType" binding:"required,oneof=win_based kill_based team_based"`
	PerKillAmount        float64     `json:"perKillAmount" binding:"omitempty,gte=0"`
	EntryFee             int         `json:"entryFee" binding:"gte=0"`
	PrizePool            int         `json:"prizePool" binding:"gte=0"`
	MinPlayers           int         `json:"minPlayers" binding:"required,gte=2"`
	MaxPlayers           int         `json:"maxPlayers" binding:"required,gte=2"`
	MatchTime            time.Time   `json:"matchTime" binding:"required"`
	RegistrationDeadline time.Time   `json:"registrationDeadline" binding:"required"`
	DurationMin          int         `json:"durationMin" binding:"omitempty,gte=0"`
	Rules                []string    `json:"rules"`
	Prizes               map[int]int `json:"prizes"` // позиция -> сумма
}

// JoinRequest представляет запрос на регистрацию в турнире
type JoinRequest struct {
	SlotNumber *int `json:"slotNumber" binding:"omitempty,gte=1"`
}

// StatusRequest представляет запрос на смену статуса турнира
type StatusRequest struct {
	Status string `json:"status" binding:"required,oneof=upcoming ongoing completed cancelled"`
}

// NotifyRoomRequest представляет запрос на рассылку данных комнаты
type NotifyRoomRequest struct {
	RoomID       string `json:"roomId" binding:"required,max=50"`
	RoomPassword string `json:"roomPassword" binding:"required,max=50"`
}

// TournamentHandler обрабатывает запросы, связанные с турнирами
type TournamentHandler struct {
	tournamentService *service.TournamentService
	prizeService      *service.PrizeService
}

// NewTournamentHandler создает новый обработчик турниров
func NewTournamentHandler(tournamentService *service.TournamentService, prizeService *service.PrizeService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		prizeService:      prizeService,
	}
}

// List возвращает страницу каталога турниров с фильтрами
func (h *TournamentHandler) List(c *gin.Context) {
	filters := repository.TournamentFilters{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Game:   c.Query("game"),
	}
	if v := c.Query("entryFee"); v != "" {
		if fee, err := strconv.Atoi(v); err == nil && fee >= 0 {
			filters.EntryFee = &fee
		}
	}
	if v := c.Query("minEntryFee"); v != "" {
		if fee, err := strconv.Atoi(v); err == nil && fee >= 0 {
			filters.MinEntryFee = &fee
		}
	}

	page, pageSize := paginationParams(c, 20, 100)

	tournaments, total, err := h.tournamentService.List(filters, pageSize, (page-1)*pageSize)
	if err != nil {
		h.handleTournamentError(c, err)
		return
	}

	viewerID, isAdmin := viewerInfo(c)
	c.JSON(http.StatusOK, gin.H{
		"tournaments": dto.NewTournamentListResponse(tournaments, viewerID, isAdmin),
		"total":       total,
		"page":        page,
		"per_page":    pageSize,
	})
}

// Stats возвращает счётчики турниров для главной страницы
func (h *TournamentHandler) Stats(c *gin.Context) {
	stats, err := h.tournamentService.Stats()
	if err != nil {
		h.handleTournamentError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Get возвращает турнир со слотами и призами
func (h *TournamentHandler) Get(c *gin.Context) {
	tournamentID := c.MustGet("tournamentID").(uint)

	tournament, err := h.tournamentService.GetByID(tournamentID)
	if err != nil {
		h.handleTournamentError(c, err)
		return
	}

	viewerID, isAdmin := viewerInfo(c)
	c.JSON(http.StatusOK, dto.NewTournamentResponse(tournament, viewerID, isAdmin))
}

// Create обрабатывает запрос на создание турнира
func (h *TournamentHandler) Create(c *gin.Context) {
	var req TournamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tournament, err := h.tournamentService.Create(tournamentInput(&req))
	if err != nil {
		h.handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewTournamentResponse(tournament, 0, true))
}

// Update обрабатывает запрос на редактирование турнира
func (h *TournamentHandler) Update(c *gin.Context) {
	tournamentID := c.MustGet("tournamentID").(uint)

	var req TournamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tournament, err := h.tournamentService.Update(tournamentID, tournamentInput(&req))
	if err != nil {
		h.handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTournamentResponse(tournament, 0, true))
}

// Delete обрабатывает запрос на удаление турнира
func (h *TournamentHandler) Delete(c *gin.Context) {
	tournamentID := c.MustGet("tournamentID").(uint)

	if err := h.tournamentService.Delete(tournamentID); err != nil {
		h.handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tournament deleted"})
}

// Join регистрирует пользователя в турнире
func (h *TournamentHandler) Join(c *gin.Context) {
	tournamentID := c.MustGet("tournamentID").(uint)
	userID := c.MustGet("user_id").(uint)

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.tournamentService.Join(userID, tournamentID, req.SlotNumber)
	if err != nil {
		h.handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Joined tournament",
		"slotNumber": slot.SlotNumber,
	})
}

// GetPlayers возвращает занятые слоты турнира
func (h *TournamentHandler) GetPlayers(c *gin.Context) {
	tournamentID := c.MustGet("tournamentID").(uint)

	slots, err := h.tournamentService.GetPlayers(tournamentID)
	if err != nil {
		h.handleTournamentError(c, err)
		return
	}

	players := make([]dto.SlotDTO, 0, len(slots))
	for i := range slots {
		players = append(players, dto.SlotDTO{
			SlotNumber: slots[i].SlotNumber,
			UserID:     slots[i].UserID,
			Username:   slots[i].Username,
			JoinedAt:   slots[i].JoinedAt,
			IsOccupied: true,
		})
	}
	c.JSON(http.StatusOK, gin.H{"players": players})
}

// UpdateStatus переводит турнир в новый статус
func (h *TournamentHandler) UpdateStatus(c *gin.Context) {
	tournamentID := c.MustGet("tournamentID").(uint)

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tournament, err := h.tournamentService.UpdateStatus(tournamentID, req.Status)
	if err != nil {
		h.handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTournamentResponse(tournament, 0, true))
}

// NotifyRoom сохраняет данные комнаты и рассылает их участникам
func (h *TournamentHandler) NotifyRoom(c *gin.Context) {
	tournamentID := c.MustGet("tournamentID").(uint)

	var req NotifyRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tournamentService.NotifyRoom(tournamentID, req.RoomID, req.RoomPassword); err != nil {
		h.handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Room details sent to participants"})
}

// DistributePrizes проводит раздачу призов турнира
func (h *TournamentHandler) DistributePrizes(c *gin.Context) {
	tournamentID := c.MustGet("tournamentID").(uint)

	var req service.DistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	winners, err := h.prizeService.Distribute(tournamentID, &req)
	if err != nil {
		h.handleTournamentError(c, err)
		return
	}

	result := make([]dto.WinnerDTO, 0, len(winners))
	for _, w := range winners {
		result = append(result, dto.WinnerDTO{
			UserID:   w.UserID,
			Position: w.Position,
			Kills:    w.Kills,
			Amount:   w.Amount,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Prizes distributed",
		"winners": result,
	})
}

func tournamentInput(req *TournamentRequest) *service.TournamentInput {
	return &service.TournamentInput{
		TournamentName:       req.TournamentName,
		GameName:             req.GameName,
		ModeType:             req.ModeType,
		MatchType:            req.MatchType,
		ScoringType:          req.ScoringType,
		PerKillAmount:        req.PerKillAmount,
		EntryFee:             req.EntryFee,
		PrizePool:            req.PrizePool,
		MinPlayers:           req.MinPlayers,
		MaxPlayers:           req.MaxPlayers,
		MatchTime:            req.MatchTime,
		RegistrationDeadline: req.RegistrationDeadline,
		DurationMin:          req.DurationMin,
		Rules:                req.Rules,
		Prizes:               req.Prizes,
	}
}

// viewerInfo возвращает ID и признак админа запрашивающего (0/false для анонима)
func viewerInfo(c *gin.Context) (uint, bool) {
	var viewerID uint
	if v, exists := c.Get("user_id"); exists {
		viewerID = v.(uint)
	}
	isAdmin := false
	if v, exists := c.Get("role"); exists {
		isAdmin = v.(string) == entity.RoleAdmin
	}
	return viewerID, isAdmin
}

// paginationParams извлекает page/page_size из query с ограничением сверху
func paginationParams(c *gin.Context, defaultSize, maxSize int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultSize)))
	if err != nil || pageSize < 1 {
		pageSize = defaultSize
	} else if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}

func (h *TournamentHandler) handleTournamentError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrInsufficientBalance) {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in TournamentHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
