package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
	"github.com/yourusername/maxbattle-api/internal/service"
)

// CreateOrderRequest представляет запрос на создание платёжного ордера
type CreateOrderRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// VerifyPaymentRequest представляет запрос на подтверждение платежа
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// WithdrawRequest представляет заявку на вывод средств
type WithdrawRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	UPIID  string  `json:"upiId" binding:"required"`
}

// WalletHandler обрабатывает запросы кошелька
type WalletHandler struct {
	walletService *service.WalletService
}

// NewWalletHandler создает новый обработчик кошелька
func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// ListTransactions возвращает страницу транзакций пользователя
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	filters := repository.TransactionFilters{
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}
	page, pageSize := paginationParams(c, 20, 100)

	transactions, total, err := h.walletService.ListTransactions(userID, filters, pageSize, (page-1)*pageSize)
	if err != nil {
		h.handleWalletError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        total,
		"page":         page,
		"per_page":     pageSize,
	})
}

// CreateOrder создает платёжный ордер на пополнение
func (h *WalletHandler) CreateOrder(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.walletService.CreateOrder(userID, req.Amount)
	if err != nil {
		h.handleWalletError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// VerifyPayment проверяет подпись платежа и зачисляет депозит
func (h *WalletHandler) VerifyPayment(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transaction, err := h.walletService.VerifyPayment(userID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		h.handleWalletError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Payment verified",
		"transaction": transaction,
	})
}

// Withdraw создает заявку на вывод средств
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transaction, err := h.walletService.Withdraw(userID, req.Amount, req.UPIID)
	if err != nil {
		h.handleWalletError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Withdrawal request submitted",
		"transaction": transaction,
	})
}

// Spin вращает колесо бонусов
func (h *WalletHandler) Spin(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	result, err := h.walletService.Spin(userID)
	if err != nil {
		h.handleWalletError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *WalletHandler) handleWalletError(c *gin.Context, err error) {
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
		log.Printf("ERROR: Internal server error in WalletHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
