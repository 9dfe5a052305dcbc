package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

const (
	EnvVerifierPrivateKey    = "VERIFIER_PRIVATE_KEY"
	EnvCheckInProgramID      = "CHECKIN_PROGRAM_ID"
	EnvSolanaRPCURL          = "SOLANA_RPC_URL"
	EnvRPCTimeoutSec         = "RPC_TIMEOUT_SEC"
	EnvServerHost            = "HOST"
	EnvServerPort            = "PORT"
	EnvServerReadTimeoutSec  = "SERVER_READ_TIMEOUT_SEC"
	EnvServerWriteTimeoutSec = "SERVER_WRITE_TIMEOUT_SEC"
	EnvServerIdleTimeoutSec  = "SERVER_IDLE_TIMEOUT_SEC"
	EnvAllowedOrigins        = "ALLOWED_ORIGINS"
	EnvProgressAPIURL        = "PROGRESS_API_URL"
	EnvProgressAPIKey        = "PROGRESS_API_KEY"
	EnvProgressTimeoutSec    = "PROGRESS_TIMEOUT_SEC"
	EnvLogLevel              = "LOG_LEVEL"
	EnvLogDevelopment        = "LOG_DEVELOPMENT"

	DefaultEnvFile = ".env"

	MinPortNumber = 1
	MaxPortNumber = 65535
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
	AllowedOrigins  []string
}

// ProgressConfig points at the external course-progress API.
// An empty APIURL selects the static placeholder checker.
type ProgressConfig struct {
	APIURL     string
	APIKey     Secret
	TimeoutSec int
}

// Config holds backend runtime configuration.
type Config struct {
	Server             ServerConfig
	VerifierPrivateKey Secret
	CheckInProgramID   string
	SolanaRPCURL       string
	RPCTimeoutSec      int
	Progress           ProgressConfig
	LogLevel           string
	LogDevelopment     bool
}

var bindings = map[string]any{
	EnvVerifierPrivateKey:    "",
	EnvCheckInProgramID:      "",
	EnvSolanaRPCURL:          "https://api.devnet.solana.com",
	EnvRPCTimeoutSec:         5,
	EnvServerHost:            "0.0.0.0",
	EnvServerPort:            3001,
	EnvServerReadTimeoutSec:  15,
	EnvServerWriteTimeoutSec: 15,
	EnvServerIdleTimeoutSec:  60,
	EnvAllowedOrigins:        "http://localhost:5173",
	EnvProgressAPIURL:        "",
	EnvProgressAPIKey:        "",
	EnvProgressTimeoutSec:    5,
	EnvLogLevel:              "info",
	EnvLogDevelopment:        false,
}

// NewViper returns a viper instance with defaults set and every variable
// bound to the process environment. Environment values take precedence over
// anything later read from an env file.
func NewViper() *viper.Viper {
	v := viper.New()
	for env, def := range bindings {
		key := strings.ToLower(env)
		v.SetDefault(key, def)
		// BindEnv only errors when called without a key.
		_ = v.BindEnv(key, env)
	}
	return v
}

// ReadEnvFile merges KEY=VALUE pairs from a dotenv style file into v.
func ReadEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("env file %q: %w", path, err)
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading env file %q: %w", path, err)
	}
	return nil
}

// Load builds and validates a Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:            strings.TrimSpace(v.GetString(Key(EnvServerHost))),
			Port:            v.GetInt(Key(EnvServerPort)),
			ReadTimeoutSec:  v.GetInt(Key(EnvServerReadTimeoutSec)),
			WriteTimeoutSec: v.GetInt(Key(EnvServerWriteTimeoutSec)),
			IdleTimeoutSec:  v.GetInt(Key(EnvServerIdleTimeoutSec)),
			AllowedOrigins:  splitList(v.GetString(Key(EnvAllowedOrigins))),
		},
		VerifierPrivateKey: Secret(strings.TrimSpace(v.GetString(Key(EnvVerifierPrivateKey)))),
		CheckInProgramID:   strings.TrimSpace(v.GetString(Key(EnvCheckInProgramID))),
		SolanaRPCURL:       strings.TrimSpace(v.GetString(Key(EnvSolanaRPCURL))),
		RPCTimeoutSec:      v.GetInt(Key(EnvRPCTimeoutSec)),
		Progress: ProgressConfig{
			APIURL:     strings.TrimRight(strings.TrimSpace(v.GetString(Key(EnvProgressAPIURL))), "/"),
			APIKey:     Secret(strings.TrimSpace(v.GetString(Key(EnvProgressAPIKey)))),
			TimeoutSec: v.GetInt(Key(EnvProgressTimeoutSec)),
		},
		LogLevel:       strings.ToLower(strings.TrimSpace(v.GetString(Key(EnvLogLevel)))),
		LogDevelopment: v.GetBool(Key(EnvLogDevelopment)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from the process environment only.
func LoadFromEnv() (Config, error) {
	return Load(NewViper())
}

// Validate checks that the configuration is coherent.
func (c Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("invalid %s: must not be empty", EnvServerHost)
	}
	if c.Server.Port < MinPortNumber || c.Server.Port > MaxPortNumber {
		return fmt.Errorf("invalid %s: must be in range %d..%d", EnvServerPort, MinPortNumber, MaxPortNumber)
	}
	if c.Server.ReadTimeoutSec <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvServerReadTimeoutSec)
	}
	if c.Server.WriteTimeoutSec <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvServerWriteTimeoutSec)
	}
	if c.Server.IdleTimeoutSec <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvServerIdleTimeoutSec)
	}
	if c.VerifierPrivateKey == "" {
		return fmt.Errorf("invalid %s: must not be empty (run the keygen command to create one)", EnvVerifierPrivateKey)
	}
	if c.CheckInProgramID != "" {
		programID, err := solana.PublicKeyFromBase58(c.CheckInProgramID)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvCheckInProgramID, err)
		}
		if programID.Equals(solana.SystemProgramID) || programID.Equals(solana.ComputeBudget) {
			return fmt.Errorf("invalid %s: must not be a native program", EnvCheckInProgramID)
		}
	}
	if err := validateURL(EnvSolanaRPCURL, c.SolanaRPCURL); err != nil {
		return err
	}
	if c.RPCTimeoutSec <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvRPCTimeoutSec)
	}
	if c.Progress.APIURL != "" {
		if err := validateURL(EnvProgressAPIURL, c.Progress.APIURL); err != nil {
			return err
		}
	}
	if c.Progress.TimeoutSec <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvProgressTimeoutSec)
	}
	return nil
}

// ProgramID returns the configured check-in program, if any.
func (c Config) ProgramID() (solana.PublicKey, bool) {
	if c.CheckInProgramID == "" {
		return solana.PublicKey{}, false
	}
	programID, err := solana.PublicKeyFromBase58(c.CheckInProgramID)
	if err != nil {
		return solana.PublicKey{}, false
	}
	return programID, true
}

func (c Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPCTimeoutSec) * time.Second
}

func (c Config) ProgressTimeout() time.Duration {
	return time.Duration(c.Progress.TimeoutSec) * time.Second
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("invalid %s: must not be empty", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https", name)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s: missing host", name)
	}
	return nil
}

// Key is the viper key bound to an environment variable.
func Key(env string) string {
	return strings.ToLower(env)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
