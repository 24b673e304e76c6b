package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type VoucherCode struct {
	Code  string `json:"code"`
	Value int    `json:"value"`
}

type TokenCosts struct {
	BaseGeneration int
	Partner        int
	Background     int
	Style          int
	Enhance        int
}

type Config struct {
	GeminiAPIKey string

	Addr     string
	LogLevel string
	Debug    bool

	PreferIPv4 bool

	// Newspaper mode ships in the mode list but stays locked until the
	// print pipeline exists.
	NewspaperModeEnabled bool

	Costs        TokenCosts
	VoucherCodes []VoucherCode

	CountdownSeconds int

	RequestTimeout    time.Duration
	HTTPTimeout       time.Duration
	HTTPHeaderTimeout time.Duration
	GeminiBaseURL     string
	GeminiAPIVersion  string

	// Optional strip delivery over Telegram. Both must be set to enable it.
	TelegramToken  string
	DeliveryChatID int64

	// Optional TTF for the date caption on exported strips.
	CaptionFontPath string
}

func Load() (Config, error) {
	cfg := Config{
		Addr:                 strings.TrimSpace(getEnv("PHOTOBOX_ADDR", ":8080")),
		LogLevel:             strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:                getEnvBool("DEBUG", false),
		PreferIPv4:           getEnvBool("PREFER_IPV4", true),
		NewspaperModeEnabled: getEnvBool("NEWSPAPER_MODE_ENABLED", false),
		Costs: TokenCosts{
			BaseGeneration: getEnvInt("COST_BASE_GENERATION", 5),
			Partner:        getEnvInt("COST_PARTNER", 15),
			Background:     getEnvInt("COST_BACKGROUND", 10),
			Style:          getEnvInt("COST_STYLE", 10),
			Enhance:        getEnvInt("COST_ENHANCE", 2),
		},
		CountdownSeconds:  getEnvInt("COUNTDOWN_SECONDS", 3),
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		HTTPTimeout:       time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		HTTPHeaderTimeout: time.Duration(getEnvInt("HTTP_HEADER_TIMEOUT_SECONDS", 60)) * time.Second,
		GeminiBaseURL:     strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion:  strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		TelegramToken:     strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		DeliveryChatID:    getEnvInt64("DELIVERY_CHAT_ID", 0),
		CaptionFontPath:   strings.TrimSpace(os.Getenv("CAPTION_FONT_PATH")),
	}

	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	codes, err := ParseVoucherCodes(os.Getenv("VOUCHER_CODES"))
	if err != nil {
		return Config{}, err
	}
	cfg.VoucherCodes = codes

	if cfg.CountdownSeconds < 1 {
		cfg.CountdownSeconds = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.HTTPHeaderTimeout <= 0 {
		cfg.HTTPHeaderTimeout = 60 * time.Second
	}

	return cfg, nil
}

// ParseVoucherCodes reads the preseeded redemption codes, a JSON array of
// {"code","value"} objects. An empty variable means no codes, not an error.
func ParseVoucherCodes(raw string) ([]VoucherCode, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var codes []VoucherCode
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, fmt.Errorf("parse VOUCHER_CODES: %w", err)
	}

	out := codes[:0]
	for _, c := range codes {
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		if c.Code == "" || c.Value <= 0 {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
