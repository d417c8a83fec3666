package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	razorpay "github.com/razorpay/razorpay-go"
)

// Order представляет созданный платёжный ордер
type Order struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"`   // в пайсах
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

// Gateway - интерфейс платёжного шлюза.
// Абстракция нужна для подмены в тестах.
type Gateway interface {
	// CreateOrder создает ордер на пополнение. amount - сумма в рупиях.
	CreateOrder(amount float64, receipt string) (*Order, error)
	// VerifySignature проверяет подпись завершённого платежа
	VerifySignature(orderID, paymentID, signature string) bool
}

// RazorpayGateway - реализация Gateway поверх Razorpay API
type RazorpayGateway struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
}

// NewRazorpayGateway создает платёжный шлюз Razorpay
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client:    razorpay.NewClient(keyID, keySecret),
		keyID:     keyID,
		keySecret: keySecret,
	}
}

// CreateOrder создает ордер в Razorpay. Сумма конвертируется в пайсы.
func (g *RazorpayGateway) CreateOrder(amount float64, receipt string) (*Order, error) {
	amountPaise := int(amount * 100)
	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  receipt,
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		log.Printf("[Payment] Ошибка создания ордера Razorpay (receipt=%s): %v", receipt, err)
		return nil, fmt.Errorf("razorpay order create: %w", err)
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return nil, fmt.Errorf("razorpay order create: response has no order id")
	}

	return &Order{
		ID:       orderID,
		Amount:   amountPaise,
		Currency: "INR",
		KeyID:    g.keyID,
	}, nil
}

// VerifySignature проверяет HMAC-SHA256 подпись платежа.
// Подпись считается от строки "order_id|payment_id" с секретным ключом.
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID, paymentID, signature, g.keySecret)
}

// VerifySignature - чистая функция проверки подписи Razorpay
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
