package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/estincelle/chip-tool-go/internal/logging"
	"github.com/estincelle/chip-tool-go/internal/server"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultUpgradeBurst = 10

// Config represents the server configuration file.
type Config struct {
	Port                 uint16 `yaml:"port" toml:"port"`
	TraceDecode          uint8  `yaml:"trace_decode" toml:"trace_decode"`
	LogLevel             string `yaml:"log_level" toml:"log_level"`
	LogFile              string `yaml:"log_file" toml:"log_file"`
	MaxUpgradesPerMinute int    `yaml:"max_upgrades_per_minute" toml:"max_upgrades_per_minute"`
	UpgradeBurst         int    `yaml:"upgrade_burst" toml:"upgrade_burst"`
}

func defaultConfig() *Config {
	return &Config{
		Port:         server.DefaultPort,
		LogLevel:     "info",
		LogFile:      logging.DefaultFile(),
		UpgradeBurst: defaultUpgradeBurst,
	}
}

func defaultConfigPaths() []string {
	paths := []string{
		"chip-tool.yaml",
		"chip-tool.yml",
		"chip-tool.toml",
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths,
			filepath.Join(home, ".chip-tool/config.yaml"),
			filepath.Join(home, ".chip-tool/config.toml"),
		)
	}
	return paths
}

// loadConfig layers a config file over the defaults. An explicit path must
// exist; otherwise the first default path found is used, if any. It returns
// the path that was loaded.
func loadConfig(path string) (*Config, string, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := decodeConfig(path, data, cfg); err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	for _, p := range defaultConfigPaths() {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if err := decodeConfig(p, data, cfg); err != nil {
			return nil, "", err
		}
		return cfg, p, nil
	}
	return cfg, "", nil
}

// decodeConfig picks the decoder from the file extension. Keys that do not
// map to a Config field are rejected.
func decodeConfig(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("config parse failed (%s): unknown keys %v", path, undecoded)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}
	return nil
}

// applyFlagOverrides copies explicitly set flags over file values.
func applyFlagOverrides(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("port") {
		if cfg.Port, err = flags.GetUint16("port"); err != nil {
			return err
		}
	}
	if flags.Changed("trace_decode") {
		if cfg.TraceDecode, err = flags.GetUint8("trace_decode"); err != nil {
			return err
		}
	}
	if flags.Changed("log-level") {
		if cfg.LogLevel, err = flags.GetString("log-level"); err != nil {
			return err
		}
	}
	if flags.Changed("log-file") {
		if cfg.LogFile, err = flags.GetString("log-file"); err != nil {
			return err
		}
	}
	if flags.Changed("max-upgrades-per-minute") {
		if cfg.MaxUpgradesPerMinute, err = flags.GetInt("max-upgrades-per-minute"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) serverConfig() server.Config {
	return server.Config{
		Addr:                 net.JoinHostPort("0.0.0.0", strconv.Itoa(int(c.Port))),
		TraceDecode:          c.TraceDecode != 0,
		MaxUpgradesPerMinute: c.MaxUpgradesPerMinute,
		UpgradeBurst:         c.UpgradeBurst,
	}
}
