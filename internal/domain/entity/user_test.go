package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_HashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err, "Хеширование пароля должно быть успешным")
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, len(hash) > 50)

	user := &User{Password: hash}
	assert.True(t, user.CheckPassword("secret123"), "Правильный пароль должен проходить проверку")
	assert.False(t, user.CheckPassword("wrong"), "Неверный пароль не должен проходить проверку")
}

func TestUser_RecalculateTotal(t *testing.T) {
	user := &User{Winning: 100, Bonus: 25.5, Deposited: 300}
	user.RecalculateTotal()
	assert.Equal(t, 425.5, user.TotalBalance)
}

func TestUser_DebitForEntry_Order(t *testing.T) {
	// Списание идёт bonus -> deposited -> winning
	user := &User{Winning: 100, Bonus: 10, Deposited: 20}
	user.RecalculateTotal()

	ok := user.DebitForEntry(50)

	require.True(t, ok, "При достаточном балансе списание должно пройти")
	assert.Equal(t, float64(0), user.Bonus, "Бонус списывается первым")
	assert.Equal(t, float64(0), user.Deposited, "Депозит списывается вторым")
	assert.Equal(t, float64(80), user.Winning, "Winning покрывает остаток")
	assert.Equal(t, float64(80), user.TotalBalance)
}

func TestUser_DebitForEntry_BonusCoversAll(t *testing.T) {
	user := &User{Winning: 100, Bonus: 50, Deposited: 20}
	user.RecalculateTotal()

	ok := user.DebitForEntry(30)

	require.True(t, ok)
	assert.Equal(t, float64(20), user.Bonus)
	assert.Equal(t, float64(20), user.Deposited, "Депозит не тронут")
	assert.Equal(t, float64(100), user.Winning, "Winning не тронут")
}

func TestUser_DebitForEntry_InsufficientBalance(t *testing.T) {
	user := &User{Winning: 10, Bonus: 5, Deposited: 5}
	user.RecalculateTotal()

	ok := user.DebitForEntry(50)

	assert.False(t, ok, "При нехватке общего баланса списание запрещено")
	// Ничего не должно быть списано
	assert.Equal(t, float64(5), user.Bonus)
	assert.Equal(t, float64(5), user.Deposited)
	assert.Equal(t, float64(10), user.Winning)
	assert.Equal(t, float64(20), user.TotalBalance)
}

func TestUser_DebitForEntry_ZeroAmount(t *testing.T) {
	user := &User{}
	assert.True(t, user.DebitForEntry(0), "Нулевое списание всегда успешно")
}

func TestUser_CanSpin(t *testing.T) {
	now := time.Now()

	neverSpun := &User{}
	assert.True(t, neverSpun.CanSpin(now), "Пользователь без вращений может крутить сразу")

	recent := now.Add(-1 * time.Hour)
	spunRecently := &User{LastSpinTime: &recent}
	assert.False(t, spunRecently.CanSpin(now), "Кулдаун 5 часов ещё не истёк")

	old := now.Add(-6 * time.Hour)
	spunLongAgo := &User{LastSpinTime: &old}
	assert.True(t, spunLongAgo.CanSpin(now))

	exactly := now.Add(-SpinCooldown)
	spunExactly := &User{LastSpinTime: &exactly}
	assert.True(t, spunExactly.CanSpin(now), "Ровно через 5 часов вращение снова доступно")
}

func TestUser_NextSpinAt(t *testing.T) {
	last := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	user := &User{LastSpinTime: &last}
	assert.Equal(t, last.Add(5*time.Hour), user.NextSpinAt())

	neverSpun := &User{}
	assert.True(t, neverSpun.NextSpinAt().IsZero())
}

func TestUser_IsAdminAndHasUPI(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	assert.True(t, admin.IsAdmin())

	user := &User{Role: RoleUser, UPI: StringArray{"name@bank"}}
	assert.False(t, user.IsAdmin())
	assert.True(t, user.HasUPI())
	assert.False(t, (&User{}).HasUPI())
}
