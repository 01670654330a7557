package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"falplatform/internal/domain"

	"github.com/spf13/viper"
)

type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	HTTPPort       string `mapstructure:"HTTP_PORT"`
	GRPCPort       string `mapstructure:"GRPC_PORT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AccessSecret  string `mapstructure:"ACCESS_SECRET"`
	RefreshSecret string `mapstructure:"REFRESH_SECRET"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeCurrency      string `mapstructure:"STRIPE_CURRENCY"`
	FrontendURL         string `mapstructure:"FRONTEND_URL"`

	OpenAIKey   string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel string `mapstructure:"OPENAI_MODEL"`

	// Таймзона, в которой считается "новый день" для сброса лимитов
	ResetTimezone string `mapstructure:"RESET_TIMEZONE"`

	// Таблица ролей: монеты / гадания в день / AI-вопросы в день
	AdminCoins             int `mapstructure:"ROLE_ADMIN_COINS"`
	AdminDailyFortunes     int `mapstructure:"ROLE_ADMIN_DAILY_FORTUNES"`
	AdminDailyAI           int `mapstructure:"ROLE_ADMIN_DAILY_AI"`
	ModeratorCoins         int `mapstructure:"ROLE_MODERATOR_COINS"`
	ModeratorDailyFortunes int `mapstructure:"ROLE_MODERATOR_DAILY_FORTUNES"`
	ModeratorDailyAI       int `mapstructure:"ROLE_MODERATOR_DAILY_AI"`
	UserCoins              int `mapstructure:"ROLE_USER_COINS"`
	UserDailyFortunes      int `mapstructure:"ROLE_USER_DAILY_FORTUNES"`
	UserDailyAI            int `mapstructure:"ROLE_USER_DAILY_AI"`

	// Лимиты для неавторизованного просмотра
	AnonDailyFortunes int `mapstructure:"ANON_DAILY_FORTUNES"`
	AnonDailyAI       int `mapstructure:"ANON_DAILY_AI"`
}

var defaults = map[string]interface{}{
	"APP_ENV":         "development",
	"LOG_LEVEL":       "info",
	"HTTP_PORT":       ":8080",
	"GRPC_PORT":       ":9090",
	"ALLOWED_ORIGINS": "http://localhost:3000",
	"DB_HOST":         "localhost",
	"DB_PORT":         "5432",
	"DB_USER":         "postgres",
	"DB_NAME":         "fal",
	"REDIS_ADDR":      "localhost:6379",
	"STRIPE_CURRENCY": "try",
	"FRONTEND_URL":    "http://localhost:3000",
	"OPENAI_MODEL":    "gpt-4o",
	"RESET_TIMEZONE":  "UTC",

	"ROLE_ADMIN_COINS":              1000,
	"ROLE_ADMIN_DAILY_FORTUNES":     10,
	"ROLE_ADMIN_DAILY_AI":           20,
	"ROLE_MODERATOR_COINS":          500,
	"ROLE_MODERATOR_DAILY_FORTUNES": 5,
	"ROLE_MODERATOR_DAILY_AI":       10,
	"ROLE_USER_COINS":               100,
	"ROLE_USER_DAILY_FORTUNES":      3,
	"ROLE_USER_DAILY_AI":            5,
	"ANON_DAILY_FORTUNES":           3,
	"ANON_DAILY_AI":                 5,
}

func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.AutomaticEnv()

	// Явно биндим все ключи, иначе Unmarshal не увидит ENV без файла
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range []string{
		"DB_PASSWORD", "REDIS_PASSWORD", "ACCESS_SECRET", "REFRESH_SECRET",
		"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "OPENAI_API_KEY",
	} {
		v.BindEnv(key)
	}

	// Файла может не быть - тогда работаем только на ENV
	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
	}

	err = v.Unmarshal(&config)
	return
}

// RoleTable - роль -> стартовые монеты и дневные лимиты. Читается один раз при старте.
func (c Config) RoleTable() map[domain.Role]domain.RoleDefaults {
	return map[domain.Role]domain.RoleDefaults{
		domain.RoleAdmin:     {Coins: c.AdminCoins, DailyFreeFortunes: c.AdminDailyFortunes, DailyAIQuestions: c.AdminDailyAI},
		domain.RoleModerator: {Coins: c.ModeratorCoins, DailyFreeFortunes: c.ModeratorDailyFortunes, DailyAIQuestions: c.ModeratorDailyAI},
		domain.RoleUser:      {Coins: c.UserCoins, DailyFreeFortunes: c.UserDailyFortunes, DailyAIQuestions: c.UserDailyAI},
	}
}

func (c Config) AnonymousDefaults() domain.RoleDefaults {
	return domain.RoleDefaults{DailyFreeFortunes: c.AnonDailyFortunes, DailyAIQuestions: c.AnonDailyAI}
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ResetTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
