// Package config provides configuration management for the wordtally server and client.
//
// Configuration is assembled from several sources with the following precedence:
//  1. Command-line flags (highest priority)
//  2. Environment variables prefixed with "WORDTALLY_"
//  3. A TOML file given with -config
//  4. Default values (lowest priority)
//
// Example TOML file:
//
//	[server]
//	host = "127.0.0.1"
//	port = 6379
//	log_level = "debug"
//
//	[client]
//	server = "127.0.0.1:6379"
//	chunks = 4
//
// Example server usage:
//
//	cfg, err := config.LoadServerConfig(os.Args[1:])
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default configuration constants
const (
	DefaultHost            = "127.0.0.1"
	DefaultServerPort      = 6379
	DefaultLogLevel        = "info"
	DefaultChunks          = 1
	DefaultConnTimeoutSecs = 5

	envPrefix = "WORDTALLY_"
)

// ServerConfig holds the options of a wordtally server.
type ServerConfig struct {
	Host         string `toml:"host"`          // Host address to bind to (default: "127.0.0.1")
	LogLevel     string `toml:"log_level"`     // debug, info, warn, error (default: "info")
	Port         int    `toml:"port"`          // TCP port to listen on (default: 6379)
	ReadTimeout  int    `toml:"read_timeout"`  // Per-frame read deadline in seconds, 0 disables (default: 0)
	WriteTimeout int    `toml:"write_timeout"` // Per-frame write deadline in seconds, 0 disables (default: 0)
	ShowVersion  bool   `toml:"-"`
}

// ClientConfig holds the options of a wordtally client.
type ClientConfig struct {
	Server       string   `toml:"server"`         // Server address (default: "127.0.0.1:6379")
	LogLevel     string   `toml:"log_level"`      // debug, info, warn, error (default: "info")
	Chunks       int      `toml:"chunks"`         // Chunk readers per file (default: 1)
	MaxChunkSize int64    `toml:"max_chunk_size"` // Nominal chunk size in bytes, 0 derives it from the file size
	ConnTimeout  int      `toml:"conn_timeout"`   // Dial timeout in seconds (default: 5)
	Loop         bool     `toml:"loop"`           // Re-read the files forever
	Files        []string `toml:"-"`
	ShowVersion  bool     `toml:"-"`
}

// File is the layout of a TOML configuration file.
type File struct {
	Server ServerConfig `toml:"server"`
	Client ClientConfig `toml:"client"`
}

// DefaultServerConfig returns a ServerConfig with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:     DefaultHost,
		Port:     DefaultServerPort,
		LogLevel: DefaultLogLevel,
	}
}

// DefaultClientConfig returns a ClientConfig with default values.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Server:      fmt.Sprintf("%s:%d", DefaultHost, DefaultServerPort),
		LogLevel:    DefaultLogLevel,
		Chunks:      DefaultChunks,
		ConnTimeout: DefaultConnTimeoutSecs,
	}
}

// LoadFile decodes a TOML file on top of the defaults.
func LoadFile(path string) (*File, error) {
	f := &File{
		Server: *DefaultServerConfig(),
		Client: *DefaultClientConfig(),
	}
	if _, err := toml.DecodeFile(path, f); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return f, nil
}

// LoadServerConfig builds a ServerConfig from args (without the program
// name), the environment, an optional TOML file and the defaults.
func LoadServerConfig(args []string) (*ServerConfig, error) {
	cfg := DefaultServerConfig()

	fs := flag.NewFlagSet("wordtally-server", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a TOML config file")
	host := fs.String("host", cfg.Host, "Server host")
	port := fs.Int("port", cfg.Port, "Server port")
	readTimeout := fs.Int("read-timeout", cfg.ReadTimeout, "Read timeout in seconds (0 disables)")
	writeTimeout := fs.Int("write-timeout", cfg.WriteTimeout, "Write timeout in seconds (0 disables)")
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show current version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configPath != "" {
		f, err := LoadFile(*configPath)
		if err != nil {
			return nil, err
		}
		f.Server.ShowVersion = cfg.ShowVersion
		cfg = &f.Server
	}

	if v := os.Getenv(envPrefix + "HOST"); v != "" {
		cfg.Host = v
	}
	envInt(envPrefix+"PORT", &cfg.Port)
	envInt(envPrefix+"READ_TIMEOUT", &cfg.ReadTimeout)
	envInt(envPrefix+"WRITE_TIMEOUT", &cfg.WriteTimeout)
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = *host
		case "port":
			cfg.Port = *port
		case "read-timeout":
			cfg.ReadTimeout = *readTimeout
		case "write-timeout":
			cfg.WriteTimeout = *writeTimeout
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	return cfg, nil
}

// LoadClientConfig builds a ClientConfig the same way. Positional
// arguments are the files to read.
func LoadClientConfig(args []string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()

	fs := flag.NewFlagSet("wordtally-client", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a TOML config file")
	server := fs.String("server", cfg.Server, "Server address (host:port)")
	chunks := fs.Int("chunks", cfg.Chunks, "Chunk readers per file")
	maxChunkSize := fs.Int64("max-chunk-size", cfg.MaxChunkSize, "Nominal chunk size in bytes (0 derives it from the file size)")
	connTimeout := fs.Int("conn-timeout", cfg.ConnTimeout, "Connection timeout in seconds")
	loop := fs.Bool("loop", cfg.Loop, "Re-read the files forever")
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show current version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configPath != "" {
		f, err := LoadFile(*configPath)
		if err != nil {
			return nil, err
		}
		f.Client.ShowVersion = cfg.ShowVersion
		cfg = &f.Client
	}

	if v := os.Getenv(envPrefix + "SERVER"); v != "" {
		cfg.Server = strings.TrimSpace(v)
	}
	envInt(envPrefix+"CHUNKS", &cfg.Chunks)
	envInt(envPrefix+"CONN_TIMEOUT", &cfg.ConnTimeout)
	if v := os.Getenv(envPrefix + "MAX_CHUNK_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxChunkSize = n
		}
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			cfg.Server = *server
		case "chunks":
			cfg.Chunks = *chunks
		case "max-chunk-size":
			cfg.MaxChunkSize = *maxChunkSize
		case "conn-timeout":
			cfg.ConnTimeout = *connTimeout
		case "loop":
			cfg.Loop = *loop
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	cfg.Files = fs.Args()
	return cfg, nil
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Address returns the "host:port" the server binds to.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the ServerConfig contains valid values.
//
// Validation rules:
//   - Port must be between 0 and 65535 (0 picks a free port)
//   - Timeouts must be non-negative
//   - LogLevel must be one of: debug, info, warn, error
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.ReadTimeout < 0 {
		return fmt.Errorf("read timeout must be non-negative: %d", c.ReadTimeout)
	}

	if c.WriteTimeout < 0 {
		return fmt.Errorf("write timeout must be non-negative: %d", c.WriteTimeout)
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// Validate checks if the ClientConfig contains valid values.
//
// Validation rules:
//   - Server must be a host:port address
//   - Chunks and ConnTimeout must be positive
//   - MaxChunkSize must be non-negative
//   - LogLevel must be one of: debug, info, warn, error
//   - At least one file must be given
func (c *ClientConfig) Validate() error {
	if c.Server == "" || !strings.Contains(c.Server, ":") {
		return fmt.Errorf("invalid server address format: %q", c.Server)
	}

	if c.Chunks < 1 {
		return fmt.Errorf("chunks must be positive: %d", c.Chunks)
	}

	if c.MaxChunkSize < 0 {
		return fmt.Errorf("max chunk size must be non-negative: %d", c.MaxChunkSize)
	}

	if c.ConnTimeout < 1 {
		return fmt.Errorf("connection timeout must be positive: %d", c.ConnTimeout)
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if len(c.Files) == 0 {
		return fmt.Errorf("at least one input file must be given")
	}

	return nil
}
