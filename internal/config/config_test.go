package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	tests := []struct {
		name string
		want func(*testing.T)
	}{
		{
			name: "config file initially does not exist",
			want: func(t *testing.T) {
				_, err := os.Open(configFilePath)
				require.ErrorIs(t, err, os.ErrNotExist)
			},
		},
		{
			name: "non-interactive; creates config file with defaults",
			want: func(t *testing.T) {
				cfg, err := Get()
				require.NoError(t, err)
				require.Equal(t, defaultAssetDir, cfg.AssetDir)
				require.Equal(t, defaultOutput, cfg.Output)

				_, err = os.Stat(configFilePath)
				require.NoError(t, err)
			},
		},
		{
			name: "non-interactive; defaults fail validation",
			want: func(t *testing.T) {
				cfg, err := Get()
				require.NoError(t, err)
				require.Error(t, cfg.Validate())
			},
		},
		{
			name: "non-interactive; config exists",
			want: func(t *testing.T) {
				existing := Config{
					AccountID:   "acct",
					NamespaceID: "ns",
					AssetDir:    "public",
					Output:      "data/assets.bin",
				}
				require.NoError(t, existing.persist())

				cfg, err := Get()
				require.NoError(t, err)
				require.Equal(t, existing, cfg)
				require.NoError(t, cfg.Validate())
			},
		},
		{
			name: "interactive; reads account and namespace",
			want: func(t *testing.T) {
				inputFile = fileWithTextContent(t, "acct-id\nns-id\n\n\n")
				cfg, err := GetInteractive()
				require.NoError(t, err)
				require.Equal(t, "acct-id", cfg.AccountID)
				require.Equal(t, "ns-id", cfg.NamespaceID)
				require.Equal(t, defaultAssetDir, cfg.AssetDir)
			},
		},
		{
			name: "interactive; overrides paths",
			want: func(t *testing.T) {
				inputFile = fileWithTextContent(t, "acct-id\nns-id\nsite/public\nbuild/assets.bin\n")
				cfg, err := GetInteractive()
				require.NoError(t, err)
				require.Equal(t, "site/public", cfg.AssetDir)
				require.Equal(t, "build/assets.bin", cfg.Output)
			},
		},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				tempDirSetup(t)
				tt.want(t)
			},
		)
	}
}

func TestToken(t *testing.T) {
	c := Config{}

	t.Setenv(TokenEnv, "")
	_, err := c.Token()
	require.Error(t, err)

	t.Setenv(TokenEnv, "secret")
	token, err := c.Token()
	require.NoError(t, err)
	require.Equal(t, "secret", token)
}

func tempDirSetup(t *testing.T) {
	tempDir := t.TempDir()
	configFilePath = filepath.Join(tempDir, "config.toml")
}

func fileWithTextContent(t *testing.T, text string) *os.File {
	tempDir := t.TempDir()
	f, err := os.Create(filepath.Join(tempDir, "input.txt"))
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)

	ff, _ := os.Open(f.Name())
	return ff
}
