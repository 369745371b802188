// Package helpers holds small utilities shared by the reviewchat packages:
// environment lookups with defaults, string fallbacks and pointer helpers.
package helpers

import (
	"os"
	"strconv"
	"time"
)

// GetStringFromEnv returns the environment variable value or defaultValue if
// it is unset or empty.
//
// Example:
//
//	host := helpers.GetStringFromEnv("QDRANT_HOST", "localhost")
func GetStringFromEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetIntFromEnv returns the environment variable parsed as int, or
// defaultValue if it is unset or not a valid integer.
//
// Example:
//
//	topK := helpers.GetIntFromEnv("REVIEWCHAT_TOP_K", 5)
func GetIntFromEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetFloatFromEnv returns the environment variable parsed as float64, or
// defaultValue if it is unset or invalid.
func GetFloatFromEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetBoolFromEnv returns the environment variable parsed with
// strconv.ParseBool, or defaultValue if it is unset or invalid.
func GetBoolFromEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetDurationFromEnv returns the environment variable parsed with
// time.ParseDuration, or defaultValue if it is unset or invalid.
//
// Example:
//
//	ttl := helpers.GetDurationFromEnv("REVIEWCHAT_CACHE_TTL", 24*time.Hour)
func GetDurationFromEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
