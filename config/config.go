// Package config loads cpyrepl settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cpyrepl/board"
	"cpyrepl/util/env"
)

const (
	EnvConfig      = "CPYREPL_CONFIG"
	EnvDriver      = "CPYREPL_DRIVER"
	EnvPort        = "CPYREPL_PORT"
	EnvUploadDelay = "CPYREPL_UPLOAD_DELAY"
	EnvListen      = "CPYREPL_LISTEN"

	DefaultDriver = "serial"
	DefaultListen = "127.0.0.1:27640"
)

type Config struct {
	Driver string
	Listen string
	Board  board.Config
}

// file mirrors the YAML layout.
type file struct {
	Driver           string        `yaml:"driver"`
	Listen           string        `yaml:"listen"`
	Port             string        `yaml:"port"`
	VendorIDs        []uint16      `yaml:"vendor_ids"`
	UploadDelay      *float64      `yaml:"upload_delay"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	SettleDelay      time.Duration `yaml:"settle_delay"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
	ResultTimeout    time.Duration `yaml:"result_timeout"`
}

func Default() Config {
	return Config{
		Driver: DefaultDriver,
		Listen: DefaultListen,
		Board:  board.DefaultConfig(),
	}
}

// Load reads path (or $CPYREPL_CONFIG when path is empty) over the defaults and
// then applies environment overrides. No path at all means defaults.
func Load(path string) (cfg Config, err error) {
	cfg = Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("config: %w", err)
			return
		}
		if err = Parse(data, &cfg); err != nil {
			err = fmt.Errorf("config: %s: %w", path, err)
			return
		}
	}

	applyEnv(&cfg)
	return
}

// Parse overlays YAML settings onto cfg.
func Parse(data []byte, cfg *Config) error {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}

	if f.Driver != "" {
		cfg.Driver = f.Driver
	}
	if f.Listen != "" {
		cfg.Listen = f.Listen
	}
	if f.Port != "" {
		cfg.Board.Port = f.Port
	}
	if len(f.VendorIDs) > 0 {
		cfg.Board.VendorIDs = f.VendorIDs
	}
	if f.UploadDelay != nil {
		secs := *f.UploadDelay
		if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return fmt.Errorf("upload_delay: invalid value %v", secs)
		}
		cfg.Board.UploadDelay = time.Duration(secs * float64(time.Second))
	}

	durations := []struct {
		name string
		v    time.Duration
		dst  *time.Duration
	}{
		{"handshake_timeout", f.HandshakeTimeout, &cfg.Board.HandshakeTimeout},
		{"poll_interval", f.PollInterval, &cfg.Board.PollInterval},
		{"settle_delay", f.SettleDelay, &cfg.Board.SettleDelay},
		{"reset_timeout", f.ResetTimeout, &cfg.Board.ResetTimeout},
		{"result_timeout", f.ResultTimeout, &cfg.Board.ResultTimeout},
	}
	for _, d := range durations {
		if d.v < 0 {
			return fmt.Errorf("%s: must not be negative", d.name)
		}
		if d.v > 0 {
			*d.dst = d.v
		}
	}

	if cfg.Driver == "" {
		return errors.New("driver: must not be empty")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Driver = env.GetOrDefault(EnvDriver, cfg.Driver)
	cfg.Listen = env.GetOrDefault(EnvListen, cfg.Listen)
	cfg.Board.Port = env.GetOrDefault(EnvPort, cfg.Board.Port)
	cfg.Board.UploadDelay = env.SecondsOrDefault(EnvUploadDelay, cfg.Board.UploadDelay)
}
