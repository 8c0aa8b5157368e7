package logger

// Config holds logger configuration.
type Config struct {
	Level       string   `mapstructure:"level"`
	Development bool     `mapstructure:"development"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
	EnableColor bool     `mapstructure:"enable_color"`
	Caller      bool     `mapstructure:"caller"`
	Stacktrace  bool     `mapstructure:"stacktrace"`
}

// DefaultConfig returns production-safe logger defaults.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Encoding:    "json",
		OutputPaths: []string{"stdout"},
	}
}
