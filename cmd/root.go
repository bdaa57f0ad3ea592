package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/goal-tracker/internal/cache"
	"github.com/spigell/goal-tracker/internal/server"
)

const (
	app       = "goal-tracker"
	envPrefix = "GOAL_TRACKER"
)

type Config struct {
	Store  *StoreConfig  `mapstructure:"store"`
	Cache  cache.Config  `mapstructure:"cache"`
	Server server.Config `mapstructure:"server"`
	AI     *AIConfig     `mapstructure:"ai"`
}

type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	DSNFile  string `mapstructure:"dsn-file"`
	URI      string `mapstructure:"uri"`
	URIFile  string `mapstructure:"uri-file"`
	Database string `mapstructure:"database"`
	// TransactionalCascade runs deletes in a single transaction when the
	// driver supports it.
	TransactionalCascade bool `mapstructure:"transactional-cascade"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "goal-tracker tracks employee goals, their recurring periods and progress",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is goal-tracker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", app+".json")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.dsn-file", "")
	v.SetDefault("store.uri", "")
	v.SetDefault("store.uri-file", "")
	v.SetDefault("store.database", "goal_tracker")
	v.SetDefault("store.transactional-cascade", false)
	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read-timeout", "30s")
	v.SetDefault("server.write-timeout", "30s")
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)
}

func initConfig() {
	if err := loadConfig(viper.GetViper(), cfgFile); err != nil {
		cobra.CheckErr(err)
	}
}

// loadConfig reads .env, the environment and the optional config file into v.
// A missing default config file is not an error; a missing explicit one is.
func loadConfig(v *viper.Viper, file string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", file, err)
		}
		return nil
	}

	v.AddConfigPath(".")
	v.SetConfigName(app)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func getConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}
	if config.Store == nil {
		config.Store = &StoreConfig{}
	}

	return config, nil
}
