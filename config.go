package truetime

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	SOURCE_NTP  = "ntp"
	SOURCE_NTS  = "nts"
	SOURCE_HTTP = "http"
)

// NTPConfig lists time servers. Empty list means built in defaults
type NTPConfig struct {
	Servers     []string
	TimeoutMs   int
	MaxRequests int
}

type SyncConfig struct {
	Source              string
	ResyncOnSystemEvent bool
	HttpURL             string
	HistoryDir          string
}

type WatcherTomlConfig struct {
	PollIntervalMs         int
	JumpThresholdMs        int
	ConnectivityDebounceMs int
	LocaltimePath          string
}

type APIConfig struct {
	Address  string
	LogLevel string
}

// Config is read from toml file
type Config struct {
	NTP     NTPConfig
	Sync    SyncConfig
	Watcher WatcherTomlConfig
	API     APIConfig
}

func DefaultConfig() Config {
	return Config{
		NTP: NTPConfig{
			TimeoutMs: 1000,
		},
		Sync: SyncConfig{
			Source: SOURCE_NTP,
		},
		Watcher: WatcherTomlConfig{
			PollIntervalMs:         int(DEFAULTWATCHINTERVAL / time.Millisecond),
			JumpThresholdMs:        int(DEFAULTJUMPTHRESHOLD / time.Millisecond),
			ConnectivityDebounceMs: int(DEFAULTCONNECTIVITYDEBOUNCE / time.Millisecond),
			LocaltimePath:          DEFAULTLOCALTIMEPATH,
		},
		API: APIConfig{
			Address:  "127.0.0.1:8123",
			LogLevel: "*:INFO",
		},
	}
}

//ParseConfig fills defaults for fields missing from toml
func ParseConfig(raw []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(filename string) (Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(raw)
}

func (p *Config) Validate() error {
	switch p.Sync.Source {
	case SOURCE_NTP, SOURCE_NTS, SOURCE_HTTP:
	default:
		return fmt.Errorf("unknown sync source %q", p.Sync.Source)
	}
	if p.NTP.TimeoutMs < 0 {
		return fmt.Errorf("negative ntp timeout %v", p.NTP.TimeoutMs)
	}
	if p.NTP.MaxRequests < 0 {
		return fmt.Errorf("negative ntp max requests %v", p.NTP.MaxRequests)
	}
	return nil
}

func (p *Config) WatcherConfig() WatcherConfig {
	return WatcherConfig{
		PollInterval:         time.Duration(p.Watcher.PollIntervalMs) * time.Millisecond,
		JumpThreshold:        time.Duration(p.Watcher.JumpThresholdMs) * time.Millisecond,
		ConnectivityDebounce: time.Duration(p.Watcher.ConnectivityDebounceMs) * time.Millisecond,
		LocaltimePath:        p.Watcher.LocaltimePath,
	}
}
