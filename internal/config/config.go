// Package config resolves ethai settings from defaults, ~/.ethai/config.toml,
// a .env file, ETHAI_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/ethai-cli/internal/application"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyRPCURL          = "rpc_url"
	KeyContractAddress = "contract_address"
	KeyOracleAddress   = "oracle_address"
	KeySenderAddress   = "sender_address"
	KeyKeyRef          = "key_ref"
	KeyChainID         = "chain_id"
	KeyGasLimit        = "gas.limit"
	KeyGasPriceGwei    = "gas.price_gwei"
	KeyPollInterval    = "listen.poll_interval"
	KeyMaxRetries      = "listen.max_retries"
	KeyListenTimeout   = "listen.timeout"
	KeyCorrelate       = "listen.correlate"
	KeySystemPrompt    = "system_prompt"
	KeySessionsPath    = "sessions.path"
	KeyJournalPath     = "journal.path"
	KeyModelID         = "model_id"

	EnvPrefix = "ETHAI"

	DefaultSystemPrompt = "You are a assistant"
	DefaultModelID      = 11

	configDirName  = ".ethai"
	configFileName = "config.toml"
	journalName    = "journal.db"
)

type Config struct {
	RPCURL          string
	ContractAddress string
	OracleAddress   string
	SenderAddress   string
	KeyRef          string
	ChainID         int64
	GasLimit        uint64
	GasPriceGwei    int64
	PollInterval    time.Duration
	MaxRetries      int
	ListenTimeout   time.Duration
	Correlate       bool
	SystemPrompt    string
	SessionsPath    string
	JournalPath     string
	ModelID         int64
}

type LoadOptions struct {
	// HomeDir locates ~/.ethai. Empty means os.UserHomeDir.
	HomeDir string
	// EnvFile is loaded into the process environment when present. Empty means ".env".
	EnvFile string
	// ConfigFile overrides ~/.ethai/config.toml.
	ConfigFile string
	Flags      *pflag.FlagSet
}

// New returns a viper instance carrying defaults and the ETHAI_ environment binding.
func New(homeDir string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyKeyRef, application.DefaultKeyRef)
	v.SetDefault(KeyChainID, application.DefaultChainID)
	v.SetDefault(KeyGasLimit, application.DefaultGasLimit)
	v.SetDefault(KeyGasPriceGwei, application.DefaultGasPriceGwei)
	v.SetDefault(KeyPollInterval, application.DefaultPollInterval)
	v.SetDefault(KeyMaxRetries, application.DefaultMaxRetries)
	v.SetDefault(KeyListenTimeout, application.DefaultListenTimeout)
	v.SetDefault(KeyCorrelate, true)
	v.SetDefault(KeySystemPrompt, DefaultSystemPrompt)
	v.SetDefault(KeyModelID, DefaultModelID)
	if homeDir != "" {
		v.SetDefault(KeySessionsPath, filepath.Join(homeDir, configDirName, "sessions.toml"))
		v.SetDefault(KeyJournalPath, filepath.Join(homeDir, configDirName, journalName))
	}

	return v
}

// Load reads every source into a viper instance and decodes it. The returned
// viper is handed to adapters that read their own keys.
func Load(opts LoadOptions) (*viper.Viper, Config, error) {
	homeDir := opts.HomeDir
	if homeDir == "" {
		resolved, err := os.UserHomeDir()
		if err != nil {
			return nil, Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		homeDir = resolved
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := loadEnvFile(envFile); err != nil {
		return nil, Config{}, err
	}

	v := New(homeDir)

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = filepath.Join(homeDir, configDirName, configFileName)
	}
	if err := readConfigFile(v, configFile, opts.ConfigFile != ""); err != nil {
		return nil, Config{}, err
	}

	if opts.Flags != nil {
		if err := BindFlags(v, opts.Flags); err != nil {
			return nil, Config{}, err
		}
	}

	return v, Decode(v), nil
}

// loadEnvFile never overrides variables already present in the environment.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func readConfigFile(v *viper.Viper, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("stat config file: %w", err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return nil
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"rpc-url":          KeyRPCURL,
	"contract-address": KeyContractAddress,
	"oracle-address":   KeyOracleAddress,
	"sender-address":   KeySenderAddress,
	"key-ref":          KeyKeyRef,
	"chain-id":         KeyChainID,
	"gas-limit":        KeyGasLimit,
	"gas-price-gwei":   KeyGasPriceGwei,
	"poll-interval":    KeyPollInterval,
	"max-retries":      KeyMaxRetries,
	"timeout":          KeyListenTimeout,
	"correlate":        KeyCorrelate,
	"system-prompt":    KeySystemPrompt,
	"sessions-path":    KeySessionsPath,
	"journal-path":     KeyJournalPath,
	"model-id":         KeyModelID,
}

// BindFlags binds every known flag present in flags. Unknown names are ignored
// so commands only declare the flags they use.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func Decode(v *viper.Viper) Config {
	return Config{
		RPCURL:          strings.TrimSpace(v.GetString(KeyRPCURL)),
		ContractAddress: strings.TrimSpace(v.GetString(KeyContractAddress)),
		OracleAddress:   strings.TrimSpace(v.GetString(KeyOracleAddress)),
		SenderAddress:   strings.TrimSpace(v.GetString(KeySenderAddress)),
		KeyRef:          strings.TrimSpace(v.GetString(KeyKeyRef)),
		ChainID:         v.GetInt64(KeyChainID),
		GasLimit:        v.GetUint64(KeyGasLimit),
		GasPriceGwei:    v.GetInt64(KeyGasPriceGwei),
		PollInterval:    v.GetDuration(KeyPollInterval),
		MaxRetries:      v.GetInt(KeyMaxRetries),
		ListenTimeout:   v.GetDuration(KeyListenTimeout),
		Correlate:       v.GetBool(KeyCorrelate),
		SystemPrompt:    v.GetString(KeySystemPrompt),
		SessionsPath:    v.GetString(KeySessionsPath),
		JournalPath:     v.GetString(KeyJournalPath),
		ModelID:         v.GetInt64(KeyModelID),
	}
}

// Validate checks what is needed to talk to the network. Commands that stay
// local (sessions, history, keys) do not call it.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return domain.ConfigurationError("rpc url is required (set rpc_url or ETHAI_RPC_URL)", nil)
	}
	if c.ContractAddress == "" {
		return domain.ConfigurationError("contract address is required (set contract_address or ETHAI_CONTRACT_ADDRESS)", nil)
	}

	for _, field := range []struct{ name, value string }{
		{KeyContractAddress, c.ContractAddress},
		{KeyOracleAddress, c.OracleAddress},
		{KeySenderAddress, c.SenderAddress},
	} {
		if field.value != "" && !common.IsHexAddress(field.value) {
			return domain.ConfigurationError(fmt.Sprintf("%s %q is not a valid address", field.name, field.value), nil)
		}
	}

	if c.ChainID <= 0 {
		return domain.ConfigurationError(fmt.Sprintf("chain id must be positive, got %d", c.ChainID), nil)
	}
	if c.GasPriceGwei < 0 {
		return domain.ConfigurationError(fmt.Sprintf("gas price must not be negative, got %d", c.GasPriceGwei), nil)
	}
	if c.ModelID < 0 {
		return domain.ConfigurationError(fmt.Sprintf("model id must not be negative, got %d", c.ModelID), nil)
	}
	if c.MaxRetries <= 0 {
		return domain.ConfigurationError(fmt.Sprintf("%s must be positive, got %d", KeyMaxRetries, c.MaxRetries), nil)
	}
	if c.ListenTimeout <= 0 {
		return domain.ConfigurationError(fmt.Sprintf("%s must be positive, got %s", KeyListenTimeout, c.ListenTimeout), nil)
	}
	if c.PollInterval <= 0 {
		return domain.ConfigurationError(fmt.Sprintf("%s must be positive, got %s", KeyPollInterval, c.PollInterval), nil)
	}

	return nil
}

func (c Config) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

func (c Config) Oracle() common.Address {
	if c.OracleAddress == "" {
		return common.Address{}
	}
	return common.HexToAddress(c.OracleAddress)
}

// Sender is the expected signer address; the zero address disables the check.
func (c Config) Sender() common.Address {
	if c.SenderAddress == "" {
		return common.Address{}
	}
	return common.HexToAddress(c.SenderAddress)
}

func (c Config) Model() *big.Int {
	return big.NewInt(c.ModelID)
}

func (c Config) GasPolicy() application.GasPolicy {
	return application.GasPolicy{
		ChainID:  big.NewInt(c.ChainID),
		GasLimit: c.GasLimit,
		GasPrice: application.GweiToWei(c.GasPriceGwei),
	}
}

func (c Config) ListenOptions() application.ListenOptions {
	return application.ListenOptions{
		MaxRetries:   c.MaxRetries,
		Timeout:      c.ListenTimeout,
		PollInterval: c.PollInterval,
	}
}

func (c Config) SessionClientConfig() application.SessionClientConfig {
	return application.SessionClientConfig{
		ContractAddress: c.Contract(),
		OracleAddress:   c.Oracle(),
		Gas:             c.GasPolicy(),
		SystemPrompt:    c.SystemPrompt,
		Correlate:       c.Correlate,
	}
}
