package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceConfig selects where flow records come from.
type SourceConfig struct {
	Type    string        `yaml:"type"` // "flowmon" or "capture"
	Flowmon FlowmonConfig `yaml:"flowmon"`
	Capture CaptureConfig `yaml:"capture"`
}

// FlowmonConfig points at a FlowMonitor XML dump.
type FlowmonConfig struct {
	Path string `yaml:"path"`
}

// CaptureConfig lists the pcap files recorded at the sending and receiving ends.
type CaptureConfig struct {
	TxPaths []string `yaml:"tx_paths"`
	RxPaths []string `yaml:"rx_paths"`
}

// ReducerConfig controls input validation.
type ReducerConfig struct {
	Strict          bool `yaml:"strict"`
	AllowDuplicates bool `yaml:"allow_duplicates"`
}

// TextWriterConfig holds settings for the text writer. An empty path means stdout.
type TextWriterConfig struct {
	Path string `yaml:"path"`
}

// FileWriterConfig holds settings for writers that lay out a directory tree.
type FileWriterConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds the connection settings for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines a single report writer.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	Text       TextWriterConfig `yaml:"text"`
	JSON       FileWriterConfig `yaml:"json"`
	Gob        FileWriterConfig `yaml:"gob"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// AlerterRule defines a single threshold check against a report.
type AlerterRule struct {
	Name      string  `yaml:"name"`
	Metric    string  `yaml:"metric"`
	Scope     string  `yaml:"scope"` // "aggregate" or "flow"
	Operator  string  `yaml:"operator"`
	Threshold float64 `yaml:"threshold"`
}

// AlerterConfig holds the alerting rules.
type AlerterConfig struct {
	Enabled bool          `yaml:"enabled"`
	Rules   []AlerterRule `yaml:"rules"`
}

// SMTPConfig holds the settings of the email notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"` // comma-separated
}

// NATSConfig holds the settings for report publishing.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// APIConfig holds the listen addresses of the query API.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	GRPCAddr   string `yaml:"grpc_addr"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Reducer ReducerConfig `yaml:"reducer"`
	Writers []WriterDef   `yaml:"writers"`
	Alerter AlerterConfig `yaml:"alerter"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	NATS    NATSConfig    `yaml:"nats"`
	API     APIConfig     `yaml:"api"`
	Log     LogConfig     `yaml:"log"`
}

const (
	DefaultNATSURL     = "nats://127.0.0.1:4222"
	DefaultNATSSubject = "flowspectra.reports"
	DefaultListenAddr  = ":8080"
	DefaultGRPCAddr    = ":9090"
)

// Default returns a configuration that validates records strictly, prints
// the report to stdout and does nothing else.
func Default() *Config {
	cfg := &Config{
		Reducer: ReducerConfig{Strict: true},
		Writers: []WriterDef{{Type: "text", Enabled: true}},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads the configuration from a YAML file, validates it against
// the embedded schema and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := Validate(filePath, data); err != nil {
		return nil, err
	}

	// keys absent from the file keep these values
	cfg := Config{Reducer: ReducerConfig{Strict: true}}
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Source.Type == "" {
		c.Source.Type = "flowmon"
	}
	if c.NATS.URL == "" {
		c.NATS.URL = DefaultNATSURL
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = DefaultNATSSubject
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = DefaultListenAddr
	}
	if c.API.GRPCAddr == "" {
		c.API.GRPCAddr = DefaultGRPCAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	for i := range c.Alerter.Rules {
		if c.Alerter.Rules[i].Scope == "" {
			c.Alerter.Rules[i].Scope = "aggregate"
		}
	}
	for i := range c.Writers {
		if c.Writers[i].ClickHouse.Port == 0 {
			c.Writers[i].ClickHouse.Port = 9000
		}
	}
}

// ClickHouse returns the settings of the first enabled ClickHouse writer.
func (c *Config) ClickHouse() (ClickHouseConfig, bool) {
	for _, w := range c.Writers {
		if w.Enabled && w.Type == "clickhouse" {
			return w.ClickHouse, true
		}
	}
	return ClickHouseConfig{}, false
}
