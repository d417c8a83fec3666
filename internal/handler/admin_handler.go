package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/maxbattle-api/internal/domain/entity"
	"github.com/yourusername/maxbattle-api/internal/domain/repository"
	"github.com/yourusername/maxbattle-api/internal/handler/dto"
	apperrors "github.com/yourusername/maxbattle-api/internal/pkg/errors"
	"github.com/yourusername/maxbattle-api/internal/service"
)

// SetUserStatusRequest представляет запрос на бан/разбан пользователя
type SetUserStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// SendEmailRequest представляет запрос на рассылку по всем пользователям
type SendEmailRequest struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=5000"`
}

// AdminHandler обрабатывает административные запросы
type AdminHandler struct {
	userService   *service.UserService
	walletService *service.WalletService
	emailService  service.EmailService
}

// NewAdminHandler создает новый административный обработчик
func NewAdminHandler(
	userService *service.UserService,
	walletService *service.WalletService,
	emailService service.EmailService,
) *AdminHandler {
	return &AdminHandler{
		userService:   userService,
		walletService: walletService,
		emailService:  emailService,
	}
}

// ListUsers возвращает страницу пользователей
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, pageSize := paginationParams(c, 50, 200)

	users, total, err := h.userService.List(pageSize, (page-1)*pageSize)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":    dto.NewAdminUserList(users),
		"total":    total,
		"page":     page,
		"per_page": pageSize,
	})
}

// SetUserStatus банит или разбанивает пользователя
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	adminID := c.MustGet("user_id").(uint)
	targetID := c.MustGet("targetUserID").(uint)

	var req SetUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.SetActive(adminID, targetID, *req.IsActive)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.NewUserResponse(user)})
}

// SendEmail рассылает письмо всем активным пользователям
func (h *AdminHandler) SendEmail(c *gin.Context) {
	var req SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	emails, err := h.userService.ListEmails()
	if err != nil {
		h.handleAdminError(c, err)
		return
	}
	if len(emails) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No active users to email"})
		return
	}

	if err := h.emailService.SendAnnouncement(c.Request.Context(), emails, req.Subject, req.Message); err != nil {
		log.Printf("[AdminHandler] Ошибка рассылки '%s': %v", req.Subject, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Email sent",
		"recipients": len(emails),
	})
}

// ListTransactions возвращает страницу транзакций всех пользователей
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	filters := repository.TransactionFilters{
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}
	page, pageSize := paginationParams(c, 50, 200)

	transactions, total, err := h.walletService.ListAllTransactions(filters, pageSize, (page-1)*pageSize)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        total,
		"page":         page,
		"per_page":     pageSize,
	})
}

// ApproveWithdrawal подтверждает заявку на вывод
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	transactionID := c.MustGet("transactionID").(uint)

	transaction, err := h.walletService.ApproveWithdrawal(transactionID)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Withdrawal approved",
		"transaction": transaction,
	})
}

// RejectWithdrawal отклоняет заявку на вывод с возвратом средств
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	transactionID := c.MustGet("transactionID").(uint)

	transaction, err := h.walletService.RejectWithdrawal(transactionID)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Withdrawal rejected",
		"transaction": transaction,
	})
}

// ExportTransactions выгружает транзакции в CSV или XLSX
func (h *AdminHandler) ExportTransactions(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	filters := repository.TransactionFilters{
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}

	// Для выгрузки берём всё без пагинации
	transactions, _, err := h.walletService.ListAllTransactions(filters, 100000, 0)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	filename := fmt.Sprintf("transactions_%s", time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, transactions, filename)
	default:
		h.exportCSV(c, transactions, filename)
	}
}

// exportCSV выгружает транзакции в CSV с правильным экранированием спецсимволов
func (h *AdminHandler) exportCSV(c *gin.Context, transactions []entity.Transaction, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"ID", "User ID", "Type", "Amount", "Fee", "Status", "Order ID", "UPI", "Description", "Created At"})

	for _, t := range transactions {
		writer.Write([]string{
			strconv.FormatUint(uint64(t.ID), 10),
			strconv.FormatUint(uint64(t.UserID), 10),
			t.Type,
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			strconv.Itoa(t.Fee),
			t.Status,
			sanitizeForExcel(t.OrderID),
			sanitizeForExcel(t.UPIID),
			sanitizeForExcel(t.Description),
			t.CreatedAt.Format(time.RFC3339),
		})
	}
}

// exportXLSX выгружает транзакции в Excel через StreamWriter
func (h *AdminHandler) exportXLSX(c *gin.Context, transactions []entity.Transaction, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Transactions"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AdminHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"ID", "User ID", "Type", "Amount", "Fee", "Status", "Order ID", "UPI", "Description", "Created At"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AdminHandler] Ошибка записи заголовков: %v", err)
	}

	for i, t := range transactions {
		rowNum := i + 2 // Первая строка - заголовки
		cell := fmt.Sprintf("A%d", rowNum)

		row := []interface{}{
			t.ID,
			t.UserID,
			t.Type,
			t.Amount,
			t.Fee,
			t.Status,
			sanitizeForExcel(t.OrderID),
			sanitizeForExcel(t.UPIID),
			sanitizeForExcel(t.Description),
			t.CreatedAt.Format(time.RFC3339),
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[AdminHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AdminHandler] Ошибка при Flush: %v", err)
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AdminHandler] Ошибка записи файла в ответ: %v", err)
	}
}

// sanitizeForExcel экранирует значения, которые Excel мог бы исполнить как формулу
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

func (h *AdminHandler) handleAdminError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in AdminHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
