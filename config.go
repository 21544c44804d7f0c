package alttext

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// Config is the tool configuration, loaded from an INI file. Every field has
// a default so a missing file yields a working local setup.
type Config struct {
	// [llm]
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration

	// [logging]
	LogLevel string
	LogFile  string

	// [storage]
	DBPath string
}

// LoadConfig reads the INI file at path. An empty path or a missing file
// returns the defaults; a file that exists but cannot be parsed is an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("ini")

	v.SetDefault("llm.endpoint", "http://localhost:1234/v1/chat/completions")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemma-3-12b-it")
	v.SetDefault("llm.timeout", 60)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "alttext.log")
	v.SetDefault("storage.db", "alttext.db")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return &Config{
		Endpoint: v.GetString("llm.endpoint"),
		APIKey:   v.GetString("llm.api_key"),
		Model:    v.GetString("llm.model"),
		Timeout:  time.Duration(v.GetInt("llm.timeout")) * time.Second,
		LogLevel: v.GetString("logging.level"),
		LogFile:  v.GetString("logging.file"),
		DBPath:   v.GetString("storage.db"),
	}, nil
}
