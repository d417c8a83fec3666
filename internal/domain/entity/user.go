package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Роли пользователей
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
// Используется GORM для записи StringArray в JSONB в базе
func (o StringArray) Value() (driver.Value, error) {
	if o == nil || len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// User представляет пользователя в системе
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Email    string `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password string `gorm:"size:100;not null" json:"-"`
	GameName string `gorm:"size:100;not null;default:''" json:"game_name"`
	Role     string `gorm:"size:20;not null;default:'user'" json:"role"` // "user" или "admin"

	// Компоненты баланса. TotalBalance всегда равен winning + bonus + deposited;
	// на вывод доступна только winning-часть.
	TotalBalance float64 `gorm:"not null;default:0" json:"total_balance"`
	Winning      float64 `gorm:"not null;default:0" json:"winning"`
	Bonus        float64 `gorm:"not null;default:0" json:"bonus"`
	Deposited    float64 `gorm:"not null;default:0" json:"deposited"`

	IsActive       bool        `gorm:"not null;default:true" json:"is_active"`
	IsVerified     bool        `gorm:"not null;default:false" json:"is_verified"`
	IsEighteenPlus bool        `gorm:"not null;default:false" json:"is_eighteen_plus"`
	ReferralCode   string      `gorm:"size:20;not null;uniqueIndex" json:"referral_code"`
	ReferredBy     *uint       `gorm:"index" json:"referred_by,omitempty"`
	UPI            StringArray `gorm:"type:jsonb;not null;default:'[]'" json:"upi"`
	LastSpinTime   *time.Time  `gorm:"type:timestamp" json:"last_spin_time,omitempty"`

	TournamentsPlayed int64   `gorm:"not null;default:0" json:"tournaments_played"`
	WinsCount         int64   `gorm:"not null;default:0;index:idx_users_leaderboard" json:"wins_count"`
	TotalPrizeWon     float64 `gorm:"not null;default:0;index:idx_users_leaderboard" json:"total_prize_won"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// BeforeSave хеширует пароль перед сохранением, только если он не является bcrypt-хешем
func (u *User) BeforeSave(tx *gorm.DB) error {
	// Хешируем пароль только если он:
	// 1. Не пустой
	// 2. Не является уже bcrypt-хешем (начинается с "$2a$", "$2b$" или "$2y$")
	if len(u.Password) > 0 && !strings.HasPrefix(u.Password, "$2a$") &&
		!strings.HasPrefix(u.Password, "$2b$") && !strings.HasPrefix(u.Password, "$2y$") {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[User.BeforeSave] Ошибка при хешировании пароля для email=%s: %v", u.Email, err)
			return err
		}
		u.Password = string(hashedPassword)
	}
	return nil
}

// HashPassword возвращает bcrypt-хеш пароля.
// Используется, когда пароль нужно захешировать до создания записи User.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword проверяет, соответствует ли переданный пароль хешу
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// IsAdmin возвращает true для администратора
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasUPI возвращает true, если у пользователя зарегистрирован хотя бы один UPI id
func (u *User) HasUPI() bool {
	return len(u.UPI) > 0
}

// RecalculateTotal пересчитывает общий баланс из компонент.
// Вызывается после любого изменения winning/bonus/deposited.
func (u *User) RecalculateTotal() {
	u.TotalBalance = u.Winning + u.Bonus + u.Deposited
}

// DebitForEntry списывает entry fee в порядке bonus -> deposited -> winning.
// Возвращает false, если общего баланса не хватает (ничего не списывается).
func (u *User) DebitForEntry(amount float64) bool {
	if amount <= 0 {
		return true
	}
	if u.TotalBalance < amount {
		return false
	}

	remaining := amount
	take := func(component *float64) {
		if remaining <= 0 || *component <= 0 {
			return
		}
		part := *component
		if part > remaining {
			part = remaining
		}
		*component -= part
		remaining -= part
	}

	take(&u.Bonus)
	take(&u.Deposited)
	take(&u.Winning)
	u.RecalculateTotal()
	return true
}

// SpinCooldown - пауза между вращениями колеса бонусов
const SpinCooldown = 5 * time.Hour

// CanSpin проверяет, доступно ли пользователю вращение колеса в момент now
func (u *User) CanSpin(now time.Time) bool {
	if u.LastSpinTime == nil {
		return true
	}
	return now.Sub(*u.LastSpinTime) >= SpinCooldown
}

// NextSpinAt возвращает время, когда вращение снова станет доступным
func (u *User) NextSpinAt() time.Time {
	if u.LastSpinTime == nil {
		return time.Time{}
	}
	return u.LastSpinTime.Add(SpinCooldown)
}
