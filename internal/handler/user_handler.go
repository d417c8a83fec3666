package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/maxbattle-api/internal/handler/dto"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
	"github.com/yourusername/maxbattle-api/internal/service"
)

// AddUPIRequest представляет запрос на добавление UPI id
type AddUPIRequest struct {
	UPIID string `json:"upiId" binding:"required,max=100"`
}

// UserHandler обрабатывает запросы, связанные с пользователями
type UserHandler struct {
	userService       *service.UserService
	tournamentService *service.TournamentService
}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler(userService *service.UserService, tournamentService *service.TournamentService) *UserHandler {
	return &UserHandler{
		userService:       userService,
		tournamentService: tournamentService,
	}
}

// GetLeaderboard обрабатывает запрос на получение лидерборда
func (h *UserHandler) GetLeaderboard(c *gin.Context) {
	page, pageSize := paginationParams(c, 50, 100)

	users, total, err := h.userService.GetLeaderboard(pageSize, (page-1)*pageSize)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLeaderboardResponse(users, total, page, pageSize))
}

// GetMyTournaments возвращает турниры, в которых участвует пользователь
func (h *UserHandler) GetMyTournaments(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	tournaments, err := h.tournamentService.GetByParticipant(userID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	viewerID, isAdmin := viewerInfo(c)
	c.JSON(http.StatusOK, gin.H{
		"tournaments": dto.NewTournamentListResponse(tournaments, viewerID, isAdmin),
	})
}

// GetReferralStats возвращает статистику реферальной программы пользователя
func (h *UserHandler) GetReferralStats(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	stats, err := h.userService.GetReferralStats(userID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListReferralCodes возвращает все активные реферальные коды
func (h *UserHandler) ListReferralCodes(c *gin.Context) {
	codes, err := h.userService.ListReferralCodes()
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"referralCodes": codes})
}

// AddUPI добавляет UPI id в профиль. Добавлять можно только в собственный
// профиль, админ может в любой.
func (h *UserHandler) AddUPI(c *gin.Context) {
	targetID := c.MustGet("targetUserID").(uint)
	viewerID, isAdmin := viewerInfo(c)

	if targetID != viewerID && !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only add a UPI id to your own profile"})
		return
	}

	var req AddUPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.AddUPI(targetID, req.UPIID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.NewUserResponse(user)})
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in UserHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
