// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for simulation, loop and bridge settings.
//
// Defaults live in the Default* constructors; *FromEnv variants apply
// environment overrides; Load aggregates everything.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SIMULATION
// =============================================================================

// SimConfig holds the fixed-step simulation settings.
type SimConfig struct {
	TickRate         int   // Logical ticks per second
	FrameRate        int   // Frame deliveries per second requested from the frame source
	ViewportWidth    int   // Camera viewport width in pixels
	ViewportHeight   int   // Camera viewport height in pixels
	Seed             int64 // RNG seed; 0 means time-based
	AutoPickUpgrades bool  // Resolve level-up choices without waiting for a UI
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:         60,
		FrameRate:        60,
		ViewportWidth:    1280,
		ViewportHeight:   720,
		AutoPickUpgrades: true,
	}
}

// SimFromEnv returns simulation configuration with environment overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvInt("FRAME_RATE", 0); v > 0 {
		cfg.FrameRate = v
	}
	if v := getEnvInt("VIEWPORT_WIDTH", 0); v > 0 {
		cfg.ViewportWidth = v
	}
	if v := getEnvInt("VIEWPORT_HEIGHT", 0); v > 0 {
		cfg.ViewportHeight = v
	}
	if v := getEnvInt("SIM_SEED", 0); v != 0 {
		cfg.Seed = int64(v)
	}
	if os.Getenv("UPGRADE_CHOICE") == "manual" {
		cfg.AutoPickUpgrades = false
	}

	return cfg
}

// TickInterval returns the duration of one logical tick.
func (c SimConfig) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickRate)
}

// =============================================================================
// GAME LOOP
// =============================================================================

// LoopConfig controls the accumulator scheduler.
type LoopConfig struct {
	MaxBacklogTicks int           // Accumulator clamp, in ticks
	Epsilon         time.Duration // Jitter tolerance when comparing against the tick interval
	IdleBudget      time.Duration // Minimum spare frame time before idle housekeeping runs
	FPSWindow       time.Duration // Window over which delivered FPS is measured
}

// DefaultLoop returns the default loop configuration.
func DefaultLoop() LoopConfig {
	return LoopConfig{
		MaxBacklogTicks: 5,
		Epsilon:         250 * time.Microsecond,
		IdleBudget:      4 * time.Millisecond,
		FPSWindow:       time.Second,
	}
}

// =============================================================================
// ADAPTIVE QUALITY
// =============================================================================

// QualityConfig holds the adaptive quality controller thresholds.
type QualityConfig struct {
	Initial            int     // Starting level (1..5)
	LowFPS             float64 // Step down below this
	HighFPS            float64 // Step up above this
	CheckIntervalTicks int     // Sample period
	CooldownTicks      int     // Suppression window after any change
}

// DefaultQuality returns the default quality configuration.
func DefaultQuality() QualityConfig {
	return QualityConfig{
		Initial:            3,
		LowFPS:             45,
		HighFPS:            58,
		CheckIntervalTicks: 60,
		CooldownTicks:      180,
	}
}

// QualityFromEnv returns quality configuration with environment overrides.
func QualityFromEnv() QualityConfig {
	cfg := DefaultQuality()

	if v := getEnvInt("QUALITY_LEVEL", 0); v > 0 {
		cfg.Initial = v
	}
	if v := getEnvFloat("QUALITY_LOW_FPS", 0); v > 0 {
		cfg.LowFPS = v
	}
	if v := getEnvFloat("QUALITY_HIGH_FPS", 0); v > 0 {
		cfg.HighFPS = v
	}

	return cfg
}

// =============================================================================
// POOLS
// =============================================================================

// PoolConfig holds the minimum (preallocated) size of every entity pool.
type PoolConfig struct {
	Projectiles int
	Particles   int
	XPOrbs      int
	HealOrbs    int
	MagnetOrbs  int
	ChestOrbs   int
}

// DefaultPools returns the default pool sizes.
func DefaultPools() PoolConfig {
	return PoolConfig{
		Projectiles: 256,
		Particles:   512,
		XPOrbs:      128,
		HealOrbs:    16,
		MagnetOrbs:  8,
		ChestOrbs:   4,
	}
}

// =============================================================================
// BRIDGE SERVER
// =============================================================================

// ServerConfig holds HTTP bridge settings.
type ServerConfig struct {
	Port          int
	CORSOrigins   []string
	BroadcastRate int // Websocket snapshot pushes per second

	// Per-IP HTTP token bucket
	RateLimitRPS   float64
	RateLimitBurst int

	// Concurrent websocket connections
	WSMaxPerIP int
	WSMaxTotal int
}

// DefaultServer returns the default server configuration. The HTTP limit
// leaves room for a renderer polling state plus a burst of input commands.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		BroadcastRate:  20,
		RateLimitRPS:   60,
		RateLimitBurst: 120,
		WSMaxPerIP:     10,
		WSMaxTotal:     500,
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if r := getEnvInt("BROADCAST_RATE", 0); r > 0 {
		cfg.BroadcastRate = r
	}
	if v := getEnvFloat("RATE_LIMIT_RPS", 0); v > 0 {
		cfg.RateLimitRPS = v
	}
	if v := getEnvInt("RATE_LIMIT_BURST", 0); v > 0 {
		cfg.RateLimitBurst = v
	}
	if v := getEnvInt("WS_MAX_PER_IP", 0); v > 0 {
		cfg.WSMaxPerIP = v
	}
	if v := getEnvInt("WS_MAX_CONNECTIONS", 0); v > 0 {
		cfg.WSMaxTotal = v
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg
}

// =============================================================================
// OBSERVABILITY & EVENT LOG
// =============================================================================

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be "127.0.0.1:6060" in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservability returns safe defaults.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// ObservabilityFromEnv returns observability configuration with environment overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")

	return cfg
}

// EventLogConfig configures the run event log.
type EventLogConfig struct {
	Path string // Empty disables file output
}

// EventLogFromEnv returns event log configuration with environment overrides.
func EventLogFromEnv() EventLogConfig {
	return EventLogConfig{Path: getEnvWithDefault("EVENT_LOG_PATH", "events.jsonl")}
}

// =============================================================================
// LOGGING
// =============================================================================

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string
	Pretty bool
}

// LogFromEnv returns logging configuration from the environment.
func LogFromEnv() LogConfig {
	return LogConfig{
		Level:  getEnvWithDefault("LOG_LEVEL", "info"),
		Pretty: os.Getenv("LOG_PRETTY") == "true",
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim           SimConfig
	Loop          LoopConfig
	Quality       QualityConfig
	Pools         PoolConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	EventLog      EventLogConfig
	Log           LogConfig
	Balance       Balance
	BalancePath   string
}

// Load returns the complete configuration with environment overrides.
// The balance table starts from defaults; callers apply BALANCE_PATH with
// LoadBalance so a broken file can be reported and ignored.
func Load() AppConfig {
	return AppConfig{
		Sim:           SimFromEnv(),
		Loop:          DefaultLoop(),
		Quality:       QualityFromEnv(),
		Pools:         DefaultPools(),
		Server:        ServerFromEnv(),
		Observability: ObservabilityFromEnv(),
		EventLog:      EventLogFromEnv(),
		Log:           LogFromEnv(),
		Balance:       DefaultBalance(),
		BalancePath:   os.Getenv("BALANCE_PATH"),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvWithDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
