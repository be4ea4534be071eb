package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMainConfig_Defaults(t *testing.T) {
	cfg, err := LoadMainConfig(writeConfig(t, "input_path: feed.xml\n"))
	require.NoError(t, err)

	assert.Equal(t, "feed.xml", cfg.InputPath)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "transformed_{externalId}.xml", cfg.OutputFilePattern)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Upload.Enabled)
	assert.Equal(t, time.Second, cfg.Upload.Delay)
	assert.Equal(t, "UPLOAD_TOKEN", cfg.Upload.TokenEnv)
	assert.Equal(t, "./images", cfg.Images.Dir)
	assert.Equal(t, 10*time.Second, cfg.Images.Timeout)
	assert.Equal(t, "Mozilla/5.0", cfg.Images.UserAgent)

	want := DefaultMainConfig()
	want.InputPath = "feed.xml"
	assert.Equal(t, want, cfg)
}

func TestLoadMainConfig_Full(t *testing.T) {
	cfg, err := LoadMainConfig(writeConfig(t, `
output_dir: out
report_dir: rep
log_level: debug
upload:
  enabled: true
  endpoint: https://api.example.com/realestate
  delay: 250ms
  max_retries: 5
images:
  dir: pics
  timeout: 3s
`))
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "rep", cfg.ReportDir)
	assert.True(t, cfg.Upload.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Upload.Delay)
	assert.Equal(t, 5, cfg.Upload.MaxRetries)
	assert.Equal(t, "pics", cfg.Images.Dir)
	assert.Equal(t, 3*time.Second, cfg.Images.Timeout)
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"no endpoint":  "upload:\n  enabled: true\n",
		"bad endpoint": "upload:\n  enabled: true\n  endpoint: ftp://x\n",
		"negative":     "upload:\n  delay: -1s\n",
		"bad yaml":     "upload: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadMainConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadUploadToken(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FEED_TEST_TOKEN=from-file\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("FEED_TEST_TOKEN") })

	token, err := UploadConfig{EnvFile: envFile, TokenEnv: "FEED_TEST_TOKEN"}.LoadUploadToken()
	require.NoError(t, err)
	assert.Equal(t, "from-file", token)

	t.Setenv("FEED_TEST_OTHER", "from-env")
	token, err = UploadConfig{EnvFile: filepath.Join(dir, "absent.env"), TokenEnv: "FEED_TEST_OTHER"}.LoadUploadToken()
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)

	_, err = UploadConfig{TokenEnv: "FEED_TEST_UNSET"}.LoadUploadToken()
	assert.Error(t, err)
}
