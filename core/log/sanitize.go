// Package log provides zap field helpers that sanitise asset paths and
// credentials before they reach the logs.
package log

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// SanitizationMode controls how sensitive data is handled in logs
type SanitizationMode int

const (
	// ProductionMode hashes paths
	ProductionMode SanitizationMode = iota
	// DevelopmentMode shows truncated paths
	DevelopmentMode
	// DebugMode shows full paths
	DebugMode
)

var currentMode = ProductionMode

func init() {
	if mode := os.Getenv("ASSET_LOG_MODE"); mode != "" {
		currentMode = ParseMode(mode)
	}
}

// ParseMode maps a mode name to a SanitizationMode, defaulting to ProductionMode.
func ParseMode(mode string) SanitizationMode {
	switch strings.ToLower(mode) {
	case "debug":
		return DebugMode
	case "development":
		return DevelopmentMode
	default:
		return ProductionMode
	}
}

// SetMode overrides the mode read from the environment.
func SetMode(mode SanitizationMode) {
	currentMode = mode
}

// SanitizePath sanitizes asset and local paths for logging based on the current mode
func SanitizePath(path string) string {
	if path == "" {
		return ""
	}

	switch currentMode {
	case ProductionMode:
		hash := sha256.Sum256([]byte(path))
		return fmt.Sprintf("hash:%x", hash[:8])
	case DevelopmentMode:
		if len(path) <= 20 {
			return path
		}
		return path[:10] + "..." + path[len(path)-7:]
	default:
		return path
	}
}

// MaskSecret never returns the secret itself.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// Path returns a sanitised zap field.
func Path(key, path string) zap.Field {
	return zap.String(key, SanitizePath(path))
}
