package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации всего сервера.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Detect   DetectConfig   `mapstructure:"detect"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// Каталог статики дашборда (SPA). Если пуст или не существует —
	// раздача статики отключается, API работает как обычно.
	DashboardDir string `mapstructure:"dashboard_dir"`

	// Каталог для сохранения вложений агентов.
	DownloadsDir string `mapstructure:"downloads_dir"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub и Cache).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит настройки админ-аккаунта и сессионных токенов.
type AuthConfig struct {
	// Учетка первого запуска. Если пароль пуст — генерируем случайный.
	BootstrapID string `mapstructure:"bootstrap_id"`
	BootstrapPW string `mapstructure:"bootstrap_pw"`

	// Аварийный ключ-обход (ENV ADMIN_KEY). Пустая строка = выключено.
	BypassKey string `mapstructure:"bypass_key"`

	// Секрет для подписи сессионных JWT (HS256).
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// DetectConfig — настройки детектора чувствительных данных.
type DetectConfig struct {
	// Адрес локального LLM-сайдкара. Пустая строка = только regex.
	LLMBaseURL string        `mapstructure:"llm_base_url"`
	LLMTimeout time.Duration `mapstructure:"llm_timeout"`

	// Reliability-обвязка вызовов сайдкара
	RateLimit     float64       `mapstructure:"rate_limit"` // запросов/сек
	RateBurst     int           `mapstructure:"rate_burst"`
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
}

// EngineConfig содержит настройки конвейера инспекции.
type EngineConfig struct {
	AuditBufferSize    int           `mapstructure:"audit_buffer_size"`
	AuditBatchSize     int           `mapstructure:"audit_batch_size"`
	AuditFlushInterval time.Duration `mapstructure:"audit_flush_interval"`

	// TTL кэша /api/summary в Redis
	SummaryCacheTTL time.Duration `mapstructure:"summary_cache_ttl"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает файл: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Совместимость со старыми деплой-скриптами:
	// ADMIN_ID/ADMIN_PW/ADMIN_KEY читаются напрямую из ENV
	if id := os.Getenv("ADMIN_ID"); id != "" {
		cfg.Auth.BootstrapID = strings.TrimSpace(id)
	}
	if pw := os.Getenv("ADMIN_PW"); pw != "" {
		cfg.Auth.BootstrapPW = strings.TrimSpace(pw)
	}
	if key := os.Getenv("ADMIN_KEY"); key != "" {
		cfg.Auth.BypassKey = strings.TrimSpace(key)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8443)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.downloads_dir", "./downloads")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("auth.bootstrap_id", "admin")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("detect.llm_timeout", 20*time.Second)
	v.SetDefault("detect.rate_limit", 20)
	v.SetDefault("detect.rate_burst", 5)
	v.SetDefault("detect.cb_max_requests", 3)
	v.SetDefault("detect.cb_interval", 5*time.Second)
	v.SetDefault("detect.cb_timeout", 30*time.Second)
	v.SetDefault("engine.audit_buffer_size", 10000)
	v.SetDefault("engine.audit_batch_size", 100)
	v.SetDefault("engine.audit_flush_interval", 500*time.Millisecond)
	v.SetDefault("engine.summary_cache_ttl", 30*time.Second)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
