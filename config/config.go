package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tullo/modchat/internal/models"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Store    StoreConfig
	JWT      JWTConfig
	Chat     ChatConfig
	API      APIConfig
	CORS     CORSConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Store backends
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
)

type StoreConfig struct {
	Backend      string
	Dir          string
	SQLitePath   string
	WriteTimeout time.Duration
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type ChatConfig struct {
	AdminTokens      []string
	HistoryCapacity  int
	MuteDefault      time.Duration
	Rooms            []models.Room
	MaxRooms         int
	MaxMessageLength int
}

// defaultRooms is the ROOMS default. Entries are id[|name[|description]].
const defaultRooms = "general|General|A friendly demo room,dev|Dev Talk|Share code & tips,random|Random|Memes and ideas"

type APIConfig struct {
	RateLimitMessagesPerSec int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level string
}

const defaultSecret = "change-this-secret-key"

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "modchat"),
			Password: getEnv("DB_PASSWORD", "modchat_password"),
			DBName:   getEnv("DB_NAME", "modchat_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Store: StoreConfig{
			Backend:      strings.ToLower(getEnv("STORE_BACKEND", BackendFile)),
			Dir:          getEnv("STORE_DIR", "./data"),
			SQLitePath:   getEnv("SQLITE_PATH", "./data/modchat.db"),
			WriteTimeout: getEnvDuration("STORE_WRITE_TIMEOUT", 5*time.Second),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", defaultSecret),
			ExpiryHours: getEnvInt("TICKET_EXPIRY_HOURS", 8760),
		},
		Chat: ChatConfig{
			AdminTokens:      splitList(getEnv("ADMIN_TOKENS", "")),
			HistoryCapacity:  getEnvInt("HISTORY_CAPACITY", 100),
			MuteDefault:      getEnvDuration("MUTE_DEFAULT", 5*time.Minute),
			Rooms:            parseRooms(getEnv("ROOMS", defaultRooms)),
			MaxRooms:         getEnvInt("MAX_ROOMS", 50),
			MaxMessageLength: getEnvInt("MAX_MESSAGE_LENGTH", 500),
		},
		API: APIConfig{
			RateLimitMessagesPerSec: getEnvInt("RATE_LIMIT_MESSAGES_PER_SECOND", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime
func (c *Config) Validate() error {
	if c.JWT.Secret == defaultSecret && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}

	switch c.Store.Backend {
	case BackendFile, BackendMemory, BackendPostgres, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Chat.HistoryCapacity < 1 {
		return fmt.Errorf("HISTORY_CAPACITY must be positive, got %d", c.Chat.HistoryCapacity)
	}
	if c.Chat.MuteDefault <= 0 {
		return fmt.Errorf("MUTE_DEFAULT must be positive, got %s", c.Chat.MuteDefault)
	}
	if len(c.Chat.Rooms) == 0 {
		return fmt.Errorf("ROOMS must name at least one room")
	}
	for _, r := range c.Chat.Rooms {
		if !models.ValidRoomID(r.ID) {
			return fmt.Errorf("invalid room id %q in ROOMS", r.ID)
		}
	}
	if c.Chat.MaxRooms < len(c.Chat.Rooms) {
		return fmt.Errorf("MAX_ROOMS (%d) is below the number of configured rooms (%d)", c.Chat.MaxRooms, len(c.Chat.Rooms))
	}
	if c.API.RateLimitMessagesPerSec < 1 {
		return fmt.Errorf("RATE_LIMIT_MESSAGES_PER_SECOND must be positive")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// DefaultRoom is the room sessions join when they do not pick one
func (c *Config) DefaultRoom() string {
	return c.Chat.Rooms[0].ID
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, defaultValue.String()))
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseRooms reads id[|name[|description]] entries. Ids are normalized to lower
// case so they match what clients send; later duplicates are dropped.
func parseRooms(s string) []models.Room {
	var out []models.Room
	seen := make(map[string]bool)
	for _, entry := range splitList(s) {
		parts := strings.SplitN(entry, "|", 3)
		room := models.Room{ID: models.RoomID(parts[0])}
		if len(parts) > 1 {
			room.Name = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			room.Description = strings.TrimSpace(parts[2])
		}
		if room.Name == "" {
			room.Name = strings.TrimSpace(parts[0])
		}
		if seen[room.ID] {
			continue
		}
		seen[room.ID] = true
		out = append(out, room)
	}
	return out
}
