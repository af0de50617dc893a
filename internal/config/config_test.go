package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/ethai-cli/internal/application"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "0x696c83111a49eBb94267ecf4DDF6E220D5A80129"

// unsetEnv clears key for the duration of the test, restoring it afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadAppliesDefaults(t *testing.T) {
	home := t.TempDir()
	unsetEnv(t, "ETHAI_RPC_URL", "ETHAI_CONTRACT_ADDRESS", "ETHAI_CHAIN_ID", "ETHAI_LISTEN_TIMEOUT")

	_, cfg, err := Load(LoadOptions{HomeDir: home, EnvFile: filepath.Join(home, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, int64(application.DefaultChainID), cfg.ChainID)
	assert.Equal(t, uint64(application.DefaultGasLimit), cfg.GasLimit)
	assert.Equal(t, int64(application.DefaultGasPriceGwei), cfg.GasPriceGwei)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 200, cfg.MaxRetries)
	assert.Equal(t, 120*time.Second, cfg.ListenTimeout)
	assert.True(t, cfg.Correlate)
	assert.Equal(t, DefaultSystemPrompt, cfg.SystemPrompt)
	assert.Equal(t, int64(DefaultModelID), cfg.ModelID)
	assert.Equal(t, application.DefaultKeyRef, cfg.KeyRef)
	assert.Equal(t, filepath.Join(home, ".ethai", "sessions.toml"), cfg.SessionsPath)
	assert.Equal(t, filepath.Join(home, ".ethai", "journal.db"), cfg.JournalPath)
	assert.Empty(t, cfg.RPCURL)
}

func TestLoadReadsConfigFile(t *testing.T) {
	home := t.TempDir()
	unsetEnv(t, "ETHAI_RPC_URL", "ETHAI_CONTRACT_ADDRESS", "ETHAI_GAS_LIMIT", "ETHAI_LISTEN_TIMEOUT")

	writeFile(t, filepath.Join(home, ".ethai", "config.toml"), `
rpc_url = "https://rpc.example"
contract_address = "`+testContract+`"

[gas]
limit = 900000

[listen]
timeout = "30s"
correlate = false
`)

	_, cfg, err := Load(LoadOptions{HomeDir: home, EnvFile: filepath.Join(home, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example", cfg.RPCURL)
	assert.Equal(t, testContract, cfg.ContractAddress)
	assert.Equal(t, uint64(900000), cfg.GasLimit)
	assert.Equal(t, 30*time.Second, cfg.ListenTimeout)
	assert.False(t, cfg.Correlate)
	require.NoError(t, cfg.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	home := t.TempDir()
	unsetEnv(t, "ETHAI_RPC_URL", "ETHAI_MODEL_ID")
	t.Setenv("ETHAI_GAS_PRICE_GWEI", "7")

	writeFile(t, filepath.Join(home, ".ethai", "config.toml"), `
rpc_url = "https://from-file"
model_id = 3
`)
	envFile := filepath.Join(home, "local.env")
	writeFile(t, envFile, "ETHAI_RPC_URL=https://from-dotenv\nETHAI_GAS_PRICE_GWEI=9\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int64("model-id", 0, "")
	require.NoError(t, flags.Parse([]string{"--model-id", "42"}))

	_, cfg, err := Load(LoadOptions{HomeDir: home, EnvFile: envFile, Flags: flags})
	require.NoError(t, err)

	assert.Equal(t, "https://from-dotenv", cfg.RPCURL, ".env beats the config file")
	assert.Equal(t, int64(7), cfg.GasPriceGwei, "the process environment beats .env")
	assert.Equal(t, int64(42), cfg.ModelID, "flags beat everything")
}

func TestLoadUnchangedFlagKeepsDefault(t *testing.T) {
	home := t.TempDir()
	unsetEnv(t, "ETHAI_LISTEN_MAX_RETRIES")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-retries", 0, "")
	require.NoError(t, flags.Parse(nil))

	_, cfg, err := Load(LoadOptions{HomeDir: home, EnvFile: filepath.Join(home, "missing.env"), Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, application.DefaultMaxRetries, cfg.MaxRetries)
}

func TestLoadRejectsMissingExplicitConfigFile(t *testing.T) {
	home := t.TempDir()

	_, _, err := Load(LoadOptions{
		HomeDir:    home,
		EnvFile:    filepath.Join(home, "missing.env"),
		ConfigFile: filepath.Join(home, "nope.toml"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat config file")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		RPCURL:          "https://rpc.example",
		ContractAddress: testContract,
		ChainID:         application.DefaultChainID,
		ModelID:         11,
		PollInterval:    application.DefaultPollInterval,
		MaxRetries:      application.DefaultMaxRetries,
		ListenTimeout:   application.DefaultListenTimeout,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing rpc url", mutate: func(c *Config) { c.RPCURL = "" }, wantErr: "rpc url is required"},
		{name: "missing contract", mutate: func(c *Config) { c.ContractAddress = "" }, wantErr: "contract address is required"},
		{name: "malformed contract", mutate: func(c *Config) { c.ContractAddress = "0x1234" }, wantErr: "contract_address"},
		{name: "malformed sender", mutate: func(c *Config) { c.SenderAddress = "alice" }, wantErr: "sender_address"},
		{name: "malformed oracle", mutate: func(c *Config) { c.OracleAddress = "0xzz" }, wantErr: "oracle_address"},
		{name: "zero chain id", mutate: func(c *Config) { c.ChainID = 0 }, wantErr: "chain id must be positive"},
		{name: "negative model", mutate: func(c *Config) { c.ModelID = -1 }, wantErr: "model id"},
		{name: "zero max retries", mutate: func(c *Config) { c.MaxRetries = 0 }, wantErr: "listen.max_retries must be positive"},
		{name: "zero timeout", mutate: func(c *Config) { c.ListenTimeout = 0 }, wantErr: "listen.timeout must be positive"},
		{name: "zero poll interval", mutate: func(c *Config) { c.PollInterval = 0 }, wantErr: "listen.poll_interval must be positive"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigConversions(t *testing.T) {
	t.Parallel()

	cfg := Config{
		ContractAddress: testContract,
		ChainID:         5,
		GasLimit:        1000,
		GasPriceGwei:    2,
		PollInterval:    time.Second,
		MaxRetries:      3,
		ListenTimeout:   time.Minute,
		Correlate:       true,
		SystemPrompt:    "be brief",
		ModelID:         11,
	}

	clientCfg := cfg.SessionClientConfig()
	assert.Equal(t, cfg.Contract(), clientCfg.ContractAddress)
	assert.Equal(t, "5", clientCfg.Gas.ChainID.String())
	assert.Equal(t, "2000000000", clientCfg.Gas.GasPrice.String())
	assert.Equal(t, uint64(1000), clientCfg.Gas.GasLimit)
	assert.True(t, clientCfg.Correlate)
	assert.Equal(t, "be brief", clientCfg.SystemPrompt)

	listen := cfg.ListenOptions()
	assert.Equal(t, 3, listen.MaxRetries)
	assert.Equal(t, time.Minute, listen.Timeout)
	assert.Equal(t, time.Second, listen.PollInterval)
	assert.Nil(t, listen.RequestID)

	assert.Equal(t, "11", cfg.Model().String())
	assert.Equal(t, common.Address{}, cfg.Sender())
}
