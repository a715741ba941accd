package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/platelog/platelog/internal/config"
)

func TestBuildInitConfigLoads(t *testing.T) {
	raw := buildInitConfig()

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(raw), &parsed))
	require.Contains(t, parsed, "lookup")
	require.Contains(t, parsed, "portions")

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(raw)))

	cfg, err := config.LoadFrom(v, "")
	require.NoError(t, err)
	require.Equal(t, 100.0, cfg.Portions.DefaultGrams)
	require.Equal(t, 10*time.Second, cfg.Lookup.Timeout)
	require.Equal(t, 5, cfg.Lookup.PageSize)
}

func TestFormatHelpers(t *testing.T) {
	require.Equal(t, "512 bytes", formatFileSize(512))
	require.Equal(t, "2.0 KB", formatFileSize(2048))
	require.Equal(t, "unknown", formatTimeAgo(time.Time{}))
	require.Equal(t, "just now", formatTimeAgo(time.Now()))
	require.Equal(t, "3 hours ago", formatTimeAgo(time.Now().Add(-3*time.Hour-time.Minute)))
	require.Equal(t, "1 day ago", formatTimeAgo(time.Now().Add(-25*time.Hour)))
}
