package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/stevelr/kv-assets/internal/logging"
	"github.com/stevelr/kv-assets/internal/util"
)

var (
	configFilePath  = filepath.Join(util.ConfigDir, "config.toml")
	defaultAssetDir = "public"
	defaultOutput   = filepath.Join("data", "assets.bin")
)

// TokenEnv is the environment variable holding the API bearer token.
// The token is never written to the config file.
const TokenEnv = "CLOUDFLARE_API_TOKEN"

type Config struct {
	AccountID   string `toml:"account_id"`
	NamespaceID string `toml:"namespace_id"`
	AssetDir    string `toml:"asset_dir"`
	Output      string `toml:"output"`
}

func Get() (Config, error) {
	return get(false)
}

func GetInteractive() (Config, error) {
	return get(true)
}

func get(interactive bool) (Config, error) {
	c := Config{}
	f, err := os.Open(configFilePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return initConfig(interactive)
	case err != nil:
		return c, fmt.Errorf("could not open config file for reading '%s': %s", configFilePath, err)
	}
	defer f.Close()

	_, err = toml.NewDecoder(f).Decode(&c)
	if err != nil {
		return c, fmt.Errorf("could not decode config file '%s': %s", configFilePath, err)
	}
	return c, nil
}

// Validate checks that the remote namespace coordinates are present.
// A freshly initialized non-interactive config fails this until the
// operator fills in account and namespace.
func (c *Config) Validate() error {
	if c.AccountID == "" {
		return fmt.Errorf("account_id is not set, edit '%s' or run 'kvsync init'", configFilePath)
	}
	if c.NamespaceID == "" {
		return fmt.Errorf("namespace_id is not set, edit '%s' or run 'kvsync init'", configFilePath)
	}
	return nil
}

// Token reads the API bearer token from the environment.
func (c *Config) Token() (string, error) {
	token := os.Getenv(TokenEnv)
	if token == "" {
		return "", fmt.Errorf("%s is not set", TokenEnv)
	}
	return token, nil
}

func initConfig(interactive bool) (Config, error) {
	c := initialConfig()
	if interactive {
		err := guidedInitialization(&c)
		if err != nil {
			return c, fmt.Errorf("could not initialize config interactively: %w", err)
		}
	}
	return c, c.persist()
}

func (c *Config) persist() error {
	f, err := util.OpenWithParents(configFilePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open config file for writing '%s': %w", configFilePath, err)
	}
	defer f.Close()

	logging.Debugf("Persisting config file to '%s'", configFilePath)
	err = toml.NewEncoder(f).Encode(c)
	if err != nil {
		return fmt.Errorf("could not persist config to file '%s': %w", configFilePath, err)
	}

	return nil
}

func initialConfig() Config {
	return Config{AssetDir: defaultAssetDir, Output: defaultOutput}
}
