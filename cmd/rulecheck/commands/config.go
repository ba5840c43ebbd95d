package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/bfv/rulecheck/internal/dataset"
	"github.com/bfv/rulecheck/internal/engine"
)

// AppName names the config file, env prefix and data directory.
const AppName = "rulecheck"

// Config keys.
const (
	keySampleCap           = "sample_cap"
	keyTreatEmptyAsMissing = "treat_empty_as_missing"
	keyOut                 = "out"
	keyEncoding            = "encoding"
	keyHistoryEnabled      = "history.enabled"
	keyHistoryPath         = "history.path"
	keyLogFile             = "log.file"
)

// DefaultHistoryPath is where runs are recorded unless history.path is set.
func DefaultHistoryPath() string {
	return filepath.Join(xdg.DataHome, AppName, "history.db")
}

// historyPath returns the configured history database path.
func historyPath() string {
	if p := viper.GetString(keyHistoryPath); p != "" {
		return p
	}
	return DefaultHistoryPath()
}

func setDefaults() {
	viper.SetDefault(keySampleCap, engine.DefaultSampleCap)
	viper.SetDefault(keyTreatEmptyAsMissing, true)
	viper.SetDefault(keyOut, "out")
	viper.SetDefault(keyEncoding, string(dataset.EncodingAuto))
	viper.SetDefault(keyHistoryEnabled, true)
	viper.SetDefault(keyHistoryPath, DefaultHistoryPath())
	viper.SetDefault(keyLogFile, "")
}

// InitConfig loads defaults, RULECHECK_* environment variables and the config
// file. With cfgFile empty, .rulecheck.yaml in the working directory is used
// when present.
func InitConfig(cfgFile string) error {
	viper.SetFs(appFS)
	setDefaults()

	viper.SetEnvPrefix(AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("." + AppName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			log.Debug().Msg("no config file found, using defaults")
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	log.Debug().Str("file", viper.ConfigFileUsed()).Msg("config loaded")
	return nil
}
