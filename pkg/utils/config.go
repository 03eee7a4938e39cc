package utils

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
	RefreshTTL  time.Duration
	LoginRPS    float64
}

type ServerConfig struct {
	HTTPAddr       string
	TCPAddr        string
	UDPAddr        string
	LogFile        string
	AllowedOrigins []string
}

type Config struct {
	Server ServerConfig
	Auth   AuthConfig
}

// Load reads .env when present, then the environment.
func Load() Config {
	_ = godotenv.Load()
	return Config{Server: LoadServerConfig(), Auth: LoadAuthConfig()}
}

func LoadServerConfig() ServerConfig {
	var origins []string
	for _, o := range strings.Split(getEnv("PROPERTYHUB_ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return ServerConfig{
		HTTPAddr:       getEnv("PROPERTYHUB_HTTP_ADDR", ":8080"),
		TCPAddr:        getEnv("PROPERTYHUB_TCP_ADDR", "127.0.0.1:9090"),
		UDPAddr:        getEnv("PROPERTYHUB_UDP_ADDR", ":9091"),
		LogFile:        getEnv("PROPERTYHUB_LOG_FILE", ""),
		AllowedOrigins: origins,
	}
}

func LoadAuthConfig() AuthConfig {
	return AuthConfig{
		// dev default, set PROPERTYHUB_JWT_SECRET in production
		JWTSecret:   getEnv("PROPERTYHUB_JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:   getEnv("PROPERTYHUB_JWT_ISSUER", "propertyhub"),
		JWTDuration: time.Duration(getEnvInt("PROPERTYHUB_JWT_TTL_MINUTES", 60)) * time.Minute,
		RefreshTTL:  time.Duration(getEnvInt("PROPERTYHUB_REFRESH_TTL_HOURS", 24*30)) * time.Hour,
		LoginRPS:    getEnvFloat("PROPERTYHUB_LOGIN_RPS", 1),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}
