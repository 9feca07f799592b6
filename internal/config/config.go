package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Extraction
	RulesPath      string
	ChapterPattern string
	SectionPattern string
	ChapterLevel   int
	SectionLevel   int
	Subject        string
	SubjectCode    string

	// Storage
	DatabaseURL string

	// Question import
	ExamType   string
	SourceType string

	// Upload limits
	MaxUploadBytes int64
	RequestTimeout time.Duration

	// PDF
	PDFFallbackPdftotext bool

	LogLevel slog.Level
}

// LoadDotEnv reads .env files into the environment. Missing files are
// ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("EXAMKB_API_KEY"),

		RulesPath:      os.Getenv("EXAMKB_RULES"),
		ChapterPattern: os.Getenv("EXAMKB_CHAPTER_PATTERN"),
		SectionPattern: os.Getenv("EXAMKB_SECTION_PATTERN"),
		ChapterLevel:   int(envInt64("EXAMKB_CHAPTER_LEVEL", 1)),
		SectionLevel:   int(envInt64("EXAMKB_SECTION_LEVEL", 2)),
		Subject:        envOr("EXAMKB_SUBJECT", "药学专业知识（二）"),
		SubjectCode:    envOr("EXAMKB_SUBJECT_CODE", "xiyao_yaoxue_er"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		ExamType:   envOr("EXAMKB_EXAM_TYPE", "执业药师"),
		SourceType: envOr("EXAMKB_SOURCE_TYPE", "历年真题"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		RequestTimeout: envDuration("REQUEST_TIMEOUT", 2*time.Minute),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}

	return cfg
}

// Validate checks the settings the HTTP server needs.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("EXAMKB_API_KEY is required")
	}
	if c.SubjectCode == "" {
		return fmt.Errorf("EXAMKB_SUBJECT_CODE is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return l
}
