// Package config provides centralized default values for CivQuest
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err == nil {
			log.Println("Loading configuration overrides from .env file...")
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Tenant Limits
	MaxTenants int

	// Database Pool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int

	// ArcGIS Platform
	ArcGISPortalURL        string
	ArcGISProbeTimeout     time.Duration
	ArcGISProbeConcurrency int

	// Sharing Cache
	SharingCacheTTL time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// Visibility Stream
	StreamWriteTimeout      time.Duration
	StreamPingInterval      time.Duration
	StreamSendBuffer        int
	MaxStreamClientsPerUser int
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Tenant Limits
	MaxTenants = getEnvInt("MAX_TENANTS", 5)

	// Database Pool
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)

	// ArcGIS Platform
	ArcGISPortalURL = getEnvString("ARCGIS_PORTAL_URL", "https://www.arcgis.com")
	ArcGISProbeTimeout = getEnvDuration("ARCGIS_PROBE_TIMEOUT", 5*time.Second)
	ArcGISProbeConcurrency = getEnvInt("ARCGIS_PROBE_CONCURRENCY", 8)

	// Sharing Cache
	SharingCacheTTL = getEnvDuration("SHARING_CACHE_TTL", 60*time.Second)
	RedisAddr = getEnvString("REDIS_ADDR", "")
	RedisPassword = getEnvString("REDIS_PASSWORD", "")
	RedisDB = getEnvInt("REDIS_DB", 0)

	// Visibility Stream
	StreamWriteTimeout = getEnvDuration("STREAM_WRITE_TIMEOUT", 10*time.Second)
	StreamPingInterval = getEnvDuration("STREAM_PING_INTERVAL", 30*time.Second)
	StreamSendBuffer = getEnvInt("STREAM_SEND_BUFFER", 16)
	MaxStreamClientsPerUser = getEnvInt("MAX_STREAM_CLIENTS_PER_USER", 3)
}
