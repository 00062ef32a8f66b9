package flags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

const (
	// Env vars
	EnvVarHome       = "FGP_HOME"
	EnvVarConfigFile = "FGP_CONFIG_FILE"
	EnvVarLogPath    = "FGP_LOG_PATH"
	EnvVarLogLevel   = "FGP_LOG_LEVEL"

	// Defaults
	DefaultLogPath  = ""
	DefaultLogLevel = "info"

	// Flag names
	FlagNameHome       = "home"
	FlagNameConfigFile = "config-file"
	FlagNameLogPath    = "log-path"
	FlagNameLogLevel   = "log-level"
)

var (
	Home       string
	ConfigFile string
	LogPath    string
	LogLevel   string
)

func InitFlags(fs *pflag.FlagSet) {
	initHome(fs)
	initConfigFile(fs)
	initLogger(fs)
}

// DefaultHome returns the default FGP home directory (~/.fgp).
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fgp"
	}
	return filepath.Join(home, ".fgp")
}

func initHome(fs *pflag.FlagSet) {
	if Home == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarHome)); env != "" {
			Home = env
		} else {
			Home = DefaultHome()
		}
	}
	fs.StringVar(&Home, FlagNameHome, Home, "path to the FGP home directory")
}

func initConfigFile(fs *pflag.FlagSet) {
	if ConfigFile == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarConfigFile)); env != "" {
			ConfigFile = env
		} else {
			ConfigFile = filepath.Join(Home, "config.toml")
		}
	}
	fs.StringVar(&ConfigFile, FlagNameConfigFile, ConfigFile, "path to config file")
}

func initLogger(fs *pflag.FlagSet) {
	if LogPath == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogPath)); env != "" {
			LogPath = env
		} else {
			LogPath = DefaultLogPath
		}
	}
	fs.StringVar(&LogPath, FlagNameLogPath, LogPath, "path to generated log file")

	if LogLevel == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogLevel)); env != "" {
			LogLevel = strings.ToLower(env)
		} else {
			LogLevel = DefaultLogLevel
		}
	}
	fs.StringVar(&LogLevel, FlagNameLogLevel, LogLevel, "log level for fgp logs")
}
