package log

// Default formatting used when the configuration leaves it empty.
const (
	DefaultPattern    = "%time [%level] %field %msg\n"
	DefaultTimeLayout = "2006-01-02 15:04:05.000"
)

type Config struct {
	Level     string           `mapstructure:"level" yaml:"level"`
	Pattern   string           `mapstructure:"pattern" yaml:"pattern"`
	Time      string           `mapstructure:"time" yaml:"time"`
	Caller    bool             `mapstructure:"caller" yaml:"caller"`
	Appenders []AppenderConfig `mapstructure:"appenders" yaml:"appenders"`
}

// AppenderConfig selects one output. Type is "console" or "file"; file
// options are decoded into FileAppenderOpt.
type AppenderConfig struct {
	Type    string                 `mapstructure:"type" yaml:"type"`
	Options map[string]interface{} `mapstructure:"options" yaml:"options,omitempty"`
}

// DefaultConfig logs info and above to the console.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Pattern:   DefaultPattern,
		Time:      DefaultTimeLayout,
		Appenders: []AppenderConfig{{Type: "console"}},
	}
}
