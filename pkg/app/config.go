package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/fleetsim/pkg/log"
)

const configFlagName = "config"

// addConfigFlag registers --config on fs.
func (a *App) addConfigFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&a.configFile, configFlagName, "c", a.configFile,
		fmt.Sprintf("Read configuration from the specified file (yaml, json or toml). "+
			"When empty, %s.yaml is searched in the working directory, $HOME/.%s and /etc/%s.",
			a.basename, a.basename, a.basename))
}

// loadConfig layers flags, environment and the config file into a.viper.
// Precedence, highest first: explicit flag, env, config file, flag default.
func (a *App) loadConfig(fs *pflag.FlagSet) error {
	v := a.viper

	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
	} else {
		v.SetConfigName(a.basename)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+a.basename))
		}
		v.AddConfigPath(filepath.Join("/etc", a.basename))
	}

	v.SetEnvPrefix(a.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}
	a.usedConfig = v.ConfigFileUsed()
	return nil
}

// watchConfig re-applies the log level whenever the config file changes.
// Other settings take effect on restart.
func (a *App) watchConfig() {
	if a.usedConfig == "" {
		return
	}
	a.viper.OnConfigChange(func(e fsnotify.Event) {
		level := a.viper.GetString("log.level")
		log.Info("Configuration file changed", "file", e.Name, "op", e.Op.String(), "log.level", level)
		log.SetLevel(level)
	})
	a.viper.WatchConfig()
}
