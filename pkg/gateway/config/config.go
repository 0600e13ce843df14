package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// Agent platform leg.
	AgentURL          string
	AgentAPIKey       string
	AgentSettingsPath string
	AgentDialTimeout  time.Duration

	// Relay shape.
	FrameBytes       int
	AudioQueueFrames int

	// Knowledge-base capability. KBPath empty disables the capability.
	KBPath           string
	KBMinOverlap     int
	KBMaxAnswerChars int

	// Optional call-record store. Empty DSN disables persistence.
	DatabaseDSN string

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("VOICEBRIDGE_ADDR", ":8080"),
		AgentURL:            envOr("VOICEBRIDGE_AGENT_URL", "wss://agent.deepgram.com/v1/agent/converse"),
		AgentAPIKey:         strings.TrimSpace(os.Getenv("VOICEBRIDGE_AGENT_API_KEY")),
		AgentSettingsPath:   envOr("VOICEBRIDGE_AGENT_SETTINGS_PATH", "config.json"),
		AgentDialTimeout:    envDurationOr("VOICEBRIDGE_AGENT_DIAL_TIMEOUT", 10*time.Second),
		FrameBytes:          envIntOr("VOICEBRIDGE_FRAME_BYTES", 20*160),
		AudioQueueFrames:    envIntOr("VOICEBRIDGE_AUDIO_QUEUE_FRAMES", 256),
		KBPath:              envOr("VOICEBRIDGE_KB_PATH", ""),
		KBMinOverlap:        envIntOr("VOICEBRIDGE_KB_MIN_OVERLAP", 2),
		KBMaxAnswerChars:    envIntOr("VOICEBRIDGE_KB_MAX_CHARS", 600),
		DatabaseDSN:         strings.TrimSpace(os.Getenv("VOICEBRIDGE_DB_DSN")),
		ReadHeaderTimeout:   envDurationOr("VOICEBRIDGE_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("VOICEBRIDGE_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	if cfg.AgentAPIKey == "" {
		return Config{}, fmt.Errorf("VOICEBRIDGE_AGENT_API_KEY must be set")
	}
	u, err := url.Parse(cfg.AgentURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return Config{}, fmt.Errorf("VOICEBRIDGE_AGENT_URL must be a ws:// or wss:// url")
	}
	if strings.TrimSpace(cfg.AgentSettingsPath) == "" {
		return Config{}, fmt.Errorf("VOICEBRIDGE_AGENT_SETTINGS_PATH must not be empty")
	}
	if cfg.AgentDialTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEBRIDGE_AGENT_DIAL_TIMEOUT must be > 0")
	}
	if cfg.FrameBytes <= 0 {
		return Config{}, fmt.Errorf("VOICEBRIDGE_FRAME_BYTES must be > 0")
	}
	if cfg.AudioQueueFrames <= 0 {
		return Config{}, fmt.Errorf("VOICEBRIDGE_AUDIO_QUEUE_FRAMES must be > 0")
	}
	if cfg.KBMinOverlap <= 0 {
		return Config{}, fmt.Errorf("VOICEBRIDGE_KB_MIN_OVERLAP must be > 0")
	}
	if cfg.KBMaxAnswerChars <= 0 {
		return Config{}, fmt.Errorf("VOICEBRIDGE_KB_MAX_CHARS must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEBRIDGE_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("VOICEBRIDGE_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
