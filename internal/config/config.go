package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
)

// Module names of the on-chain game packages.
const (
	ModuleCrash      = "crash_game"
	ModuleMines      = "mines_game"
	ModuleSlide      = "slide_game"
	ModuleVideoPoker = "videopoker_game"
)

// ClockObjectID is the shared system clock object passed to time-aware calls.
const ClockObjectID = "0x0000000000000000000000000000000000000000000000000000000000000006"

var rpcEndpoints = map[string]string{
	"testnet": "https://rpc-testnet.onelabs.cc:443",
	"devnet":  "https://rpc-devnet.onelabs.cc:443",
	"mainnet": "https://rpc-mainnet.onelabs.cc:443",
}

// GameConfig addresses one deployed game package.
type GameConfig struct {
	PackageID string
	Module    string
	ObjectID  string
}

// Configured reports whether the game has been deployed and wired.
func (g GameConfig) Configured() bool {
	return g.PackageID != "" && g.ObjectID != ""
}

// Target builds a call target for a function of this game's module.
func (g GameConfig) Target(function string) string {
	return fmt.Sprintf("%s::%s::%s", g.PackageID, g.Module, function)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"gte=0,lte=15"`
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

type Config struct {
	Network  string `validate:"oneof=testnet devnet mainnet"`
	RPCURL   string `validate:"required,url"`
	RelayURL string `validate:"omitempty,url"`
	Player   string

	Crash      GameConfig
	Mines      GameConfig
	Slide      GameConfig
	VideoPoker GameConfig

	PollInterval   time.Duration `validate:"gt=0"`
	ClockTick      time.Duration `validate:"gt=0"`
	SettleDelay    time.Duration `validate:"gte=0"`
	EventPageLimit int           `validate:"gte=1,lte=1000"`
	HistorySize    int           `validate:"gte=1"`
	Port           int           `validate:"gte=1,lte=65535"`

	Redis    RedisConfig
	Database DatabaseConfig
}

// Game returns the deployment of the named game ("crash", "mines", "slide",
// "videopoker").
func (c *Config) Game(name string) (GameConfig, bool) {
	switch name {
	case "crash":
		return c.Crash, true
	case "mines":
		return c.Mines, true
	case "slide":
		return c.Slide, true
	case "videopoker":
		return c.VideoPoker, true
	}
	return GameConfig{}, false
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	network := getEnv("ONECHAIN_NETWORK", "testnet")

	cfg := &Config{
		Network:  network,
		RPCURL:   getEnv("ONECHAIN_RPC_URL", rpcEndpoints[network]),
		RelayURL: getEnv("SIGNER_RELAY_URL", ""),
		Player:   getEnv("PLAYER_ADDRESS", ""),

		Crash: GameConfig{
			PackageID: getEnv("CRASH_PACKAGE_ID", ""),
			Module:    ModuleCrash,
			ObjectID:  getEnv("CRASH_GAME_ID", ""),
		},
		Mines: GameConfig{
			PackageID: getEnv("MINES_PACKAGE_ID", ""),
			Module:    ModuleMines,
			ObjectID:  getEnv("MINES_TREASURY_ID", ""),
		},
		Slide: GameConfig{
			PackageID: getEnv("SLIDE_PACKAGE_ID", ""),
			Module:    ModuleSlide,
			ObjectID:  getEnv("SLIDE_ROUND_ID", ""),
		},
		VideoPoker: GameConfig{
			PackageID: getEnv("POKER_PACKAGE_ID", ""),
			Module:    ModuleVideoPoker,
			ObjectID:  getEnv("POKER_TREASURY_ID", ""),
		},

		PollInterval:   getEnvAsDuration("POLL_INTERVAL", time.Second),
		ClockTick:      getEnvAsDuration("CLOCK_TICK", 100*time.Millisecond),
		SettleDelay:    getEnvAsDuration("SETTLE_DELAY", time.Second),
		EventPageLimit: getEnvAsInt("EVENT_PAGE_LIMIT", 50),
		HistorySize:    getEnvAsInt("HISTORY_SIZE", 10),
		Port:           getEnvAsInt("PORT", 8080),

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_URL", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Database: getEnv("DB_DATABASE", "octarcade"),
			Username: getEnv("DB_USERNAME", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Schema:   getEnv("DB_SCHEMA", "public"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
