package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once from the environment at startup.
type Config struct {
	Port      string
	WebOrigin string

	StoreDriver string // file | sqlite | postgres
	DataDir     string
	SQLitePath  string
	Database    DatabaseConfig

	LockDriver string // local | redis
	LockTTL    time.Duration

	RedisAddr  string
	RedisPwd   string
	SessionTTL time.Duration

	UploadDriver   string // fs | minio | memory
	UploadDir      string
	UploadMaxBytes int64
	Minio          MinioConfig

	NotifyDriver string // log | amqp
	AMQPURL      string
	AMQPQueue    string

	AdminUsernames []string

	BootstrapUsername string
	BootstrapPassword string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LoadEnv loads a .env file from the working directory when one exists.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
}

func Load() Config {
	return Config{
		Port:        getEnv("PORT", "3001"),
		WebOrigin:   getEnv("WEB_ORIGIN", "http://localhost:5173"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "file")),
		DataDir:     getEnv("DATA_DIR", "data"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/guild.db"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "guild"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "guild"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		LockDriver:     strings.ToLower(getEnv("LOCK_DRIVER", "local")),
		LockTTL:        time.Duration(getEnvInt("LOCK_TTL_SECONDS", 15)) * time.Second,
		RedisAddr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:       getEnv("REDIS_PASSWORD", ""),
		SessionTTL:     time.Duration(getEnvInt("SESSION_TTL_SECONDS", 86400)) * time.Second,
		UploadDriver:   strings.ToLower(getEnv("UPLOAD_DRIVER", "fs")),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		UploadMaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 5<<20)),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "guild-uploads"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		NotifyDriver:   strings.ToLower(getEnv("NOTIFY_DRIVER", "log")),
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPQueue:      getEnv("AMQP_QUEUE", "guild.borrows"),
		AdminUsernames: getEnvList("ADMIN_USERNAMES"),

		BootstrapUsername: getEnv("BOOTSTRAP_ADMIN_USERNAME", ""),
		BootstrapPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("config: %s=%q is not a number, using %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// getEnvList splits a comma separated value, lowercasing each entry.
func getEnvList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}
