// Package config предоставляет управление конфигурацией приложения
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// TelegramAPI содержит конфигурацию подключения к Telegram API.
// Учетные данные здесь необязательны: основным их источником является
// зашифрованное хранилище, а эти поля служат для первоначального заполнения.
type TelegramAPI struct {
	APIID       int    `json:"api_id,omitempty" yaml:"api_id,omitempty"`
	APIHash     string `json:"api_hash,omitempty" yaml:"api_hash,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty" yaml:"phone_number,omitempty"`
	SessionFile string `json:"session_file" yaml:"session_file"`
}

// Export содержит конфигурацию конвейера экспорта.
type Export struct {
	Dir string `json:"dir" yaml:"dir"`
	// ProgressEvery задает, каждое какое по счету сообщение порождает
	// событие прогресса.
	ProgressEvery int `json:"progress_every" yaml:"progress_every"`
	// ParticipantLimit ограничивает размер выборки участников диалога.
	ParticipantLimit int `json:"participant_limit" yaml:"participant_limit"`
}

// Security содержит конфигурацию хранилища учетных данных.
type Security struct {
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// Config содержит конфигурацию приложения
type Config struct {
	TelegramAPI TelegramAPI `json:"telegram_api" yaml:"telegram_api"`
	Export      Export      `json:"export" yaml:"export"`
	Security    Security    `json:"security" yaml:"security"`
	Logging     Logging     `json:"logging" yaml:"logging"`
}

// LoadConfig загружает конфигурацию приложения из переменных окружения, .env файла или config.yml
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	if err := godotenv.Load(); err != nil {
		// Если .env файла не существует, это нормально, мы будем полагаться на переменные окружения или config.yml
	}

	// Попытка загрузки из config.yml сначала
	cfg, err := loadFromYAML("config.yml")
	if err != nil {
		// Если загрузка YAML не удалась, используем переменные окружения
		cfg, err = loadFromEnv()
		if err != nil {
			return nil, fmt.Errorf("не удалось загрузить конфигурацию из env: %w", err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// loadFromYAML загружает конфигурацию из YAML-файла
func loadFromYAML(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return &cfg, nil
}

// loadFromEnv загружает конфигурацию из переменных окружения
func loadFromEnv() (*Config, error) {
	apiIDStr := getEnv("API_ID", "0")
	apiHash := getEnv("API_HASH", "")
	phoneNumber := getEnv("PHONE_NUMBER", "")
	sessionFile := getEnv("SESSION_FILE", DefaultSessionFile)
	exportDir := getEnv("EXPORT_DIR", DefaultExportDir)
	credentialsFile := getEnv("CREDENTIALS_FILE", DefaultCredentialsFile)
	logLevel := getEnv("LOG_LEVEL", DefaultLogLevel)

	// Учетные данные из окружения необязательны: при их отсутствии
	// приложение обращается к зашифрованному хранилищу или к пользователю.
	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		return nil, fmt.Errorf("недопустимый API_ID: %w", err)
	}

	return &Config{
		TelegramAPI: TelegramAPI{
			APIID:       apiID,
			APIHash:     apiHash,
			PhoneNumber: phoneNumber,
			SessionFile: sessionFile,
		},
		Export: Export{
			Dir: exportDir,
		},
		Security: Security{
			CredentialsFile: credentialsFile,
		},
		Logging: Logging{
			Level: logLevel,
		},
	}, nil
}

// applyDefaults заполняет незаданные поля значениями по умолчанию.
func (c *Config) applyDefaults() {
	if c.TelegramAPI.SessionFile == "" {
		c.TelegramAPI.SessionFile = DefaultSessionFile
	}
	if c.Export.Dir == "" {
		c.Export.Dir = DefaultExportDir
	}
	if c.Export.ProgressEvery == 0 {
		c.Export.ProgressEvery = DefaultProgressEvery
	}
	if c.Export.ParticipantLimit == 0 {
		c.Export.ParticipantLimit = DefaultParticipantLimit
	}
	if c.Security.CredentialsFile == "" {
		c.Security.CredentialsFile = DefaultCredentialsFile
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// HasCredentials сообщает, заданы ли учетные данные в самой конфигурации.
func (c *Config) HasCredentials() bool {
	return c.TelegramAPI.APIID > 0 && c.TelegramAPI.APIHash != "" && c.TelegramAPI.PhoneNumber != ""
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.TelegramAPI.SessionFile == "" {
		return fmt.Errorf("telegram_api.session_file не может быть пустым")
	}

	if c.Export.Dir == "" {
		return fmt.Errorf("export.dir не может быть пустым")
	}

	if c.Export.ProgressEvery <= 0 {
		return fmt.Errorf("export.progress_every должно быть положительным")
	}

	if c.Export.ParticipantLimit <= 0 {
		return fmt.Errorf("export.participant_limit должно быть положительным")
	}

	if c.Security.CredentialsFile == "" {
		return fmt.Errorf("security.credentials_file не может быть пустым")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
