package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Email    EmailConfig
	Payment  PaymentConfig
	Referral ReferralConfig
	OTP      OTPConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single' (для обратной совместимости).
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig содержит настройки JWT
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpirationHrs int    `mapstructure:"expirationHrs"`
	CookieName    string `mapstructure:"cookie_name"`
}

// EmailConfig содержит настройки отправки почты через Resend
type EmailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from"`
}

// PaymentConfig содержит настройки платёжного шлюза Razorpay
type PaymentConfig struct {
	KeyID     string `mapstructure:"key_id"`
	KeySecret string `mapstructure:"key_secret"`
}

// ReferralConfig содержит настройки реферальной программы
type ReferralConfig struct {
	// BonusAmount - бонус рефереру и приглашённому за верифицированную регистрацию (в рупиях)
	BonusAmount float64 `mapstructure:"bonus_amount"`
}

// OTPConfig содержит настройки одноразовых кодов регистрации
type OTPConfig struct {
	// TTLMinutes - время жизни кода и pending-регистрации
	TTLMinutes int `mapstructure:"ttl_minutes"`
	// ResendCooldownSec - минимальный интервал между повторными отправками
	ResendCooldownSec int `mapstructure:"resend_cooldown_sec"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expirationHrs", "JWT_EXPIRATIONHRS")
	vip.BindEnv("jwt.cookie_name", "JWT_COOKIE_NAME")

	vip.BindEnv("email.enabled", "EMAIL_ENABLED")
	vip.BindEnv("email.api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")

	vip.BindEnv("payment.key_id", "RAZORPAY_KEY_ID")
	vip.BindEnv("payment.key_secret", "RAZORPAY_KEY_SECRET")

	vip.BindEnv("referral.bonus_amount", "REFERRAL_BONUS_AMOUNT")

	vip.BindEnv("otp.ttl_minutes", "OTP_TTL_MINUTES")
	vip.BindEnv("otp.resend_cooldown_sec", "OTP_RESEND_COOLDOWN_SEC")

	vip.BindEnv("server.port", "SERVER_PORT")

	// Значения по умолчанию
	vip.SetDefault("server.port", "3000")
	vip.SetDefault("server.readtimeout", 15)
	vip.SetDefault("server.writetimeout", 15)
	vip.SetDefault("jwt.expirationHrs", 24)
	vip.SetDefault("jwt.cookie_name", "mb_session")
	vip.SetDefault("referral.bonus_amount", 5)
	vip.SetDefault("otp.ttl_minutes", 15)
	vip.SetDefault("otp.resend_cooldown_sec", 60)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Не страшно, если файла нет - значения придут из BindEnv
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("JWT Secret Set: %t", cfg.JWT.Secret != "")
		log.Printf("Email Enabled: %t", cfg.Email.Enabled)
		log.Printf("Razorpay Key Set: %t", cfg.Payment.KeyID != "")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	// Проверка обязательных параметров
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if cfg.Payment.KeyID == "" || cfg.Payment.KeySecret == "" {
		return nil, fmt.Errorf("razorpay configuration is incomplete in config (check RAZORPAY_KEY_ID, RAZORPAY_KEY_SECRET env vars)")
	}
	if cfg.Email.Enabled && (cfg.Email.APIKey == "" || cfg.Email.From == "") {
		return nil, fmt.Errorf("email is enabled but RESEND_API_KEY or EMAIL_FROM is missing")
	}

	return &cfg, nil
}
