package log

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePath(t *testing.T) {
	defer SetMode(currentMode)

	long := "some/deeply/nested/asset/file.txt"

	SetMode(DebugMode)
	assert.Equal(t, long, SanitizePath(long))

	SetMode(DevelopmentMode)
	assert.Equal(t, "short.txt", SanitizePath("short.txt"))
	assert.Equal(t, "some/deepl...ile.txt", SanitizePath(long))

	SetMode(ProductionMode)
	hashed := SanitizePath(long)
	assert.True(t, strings.HasPrefix(hashed, "hash:"))
	assert.NotContains(t, hashed, "file.txt")
	assert.Equal(t, hashed, SanitizePath(long))

	assert.Equal(t, "", SanitizePath(""))
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ProductionMode, ParseMode("PRODUCTION"))
	assert.Equal(t, DevelopmentMode, ParseMode("development"))
	assert.Equal(t, DebugMode, ParseMode("Debug"))
	assert.Equal(t, ProductionMode, ParseMode(""))
	assert.Equal(t, ProductionMode, ParseMode("unknown"))
}

func TestDefaultModeHashesPaths(t *testing.T) {
	var zero SanitizationMode
	assert.Equal(t, ProductionMode, zero)

	if os.Getenv("ASSET_LOG_MODE") == "" {
		assert.True(t, strings.HasPrefix(SanitizePath("private/report.csv"), "hash:"))
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "***", MaskSecret("p4ssw0rd"))
	assert.Equal(t, "", MaskSecret(""))
}
