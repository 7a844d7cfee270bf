// Package config loads the remote's startup configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Defaults for optional settings.
const (
	DefaultHistoryLabel = "Unlock Remote"
	DefaultDwell        = 3 * time.Second
	DefaultPollInterval = time.Second
	DefaultDebounce     = 50 * time.Millisecond
	DefaultLink         = LinkProbe
	DefaultBattery      = "BAT0"
)

// Link and battery selectors.
const (
	LinkProbe    = "probe"
	LinkNmcli    = "nmcli"
	BatteryFixed = "fixed"
)

// Config holds everything the remote needs at startup.
type Config struct {
	// WiFiSSID and WiFiPassword are handed to the network link.
	WiFiSSID     string
	WiFiPassword string

	// RelayURL is the relay endpoint that forwards the unlock command to the lock vendor.
	RelayURL string

	// APIKey authenticates against the lock vendor API.
	APIKey string

	// QRCode is the pairing token identifying the lock.
	QRCode string

	// HistoryLabel is shown in the lock's history as the origin of the unlock.
	HistoryLabel string

	// Dwell is how long Success, Failure and the battery view stay on screen.
	Dwell time.Duration

	// PollInterval is the connectivity polling interval.
	PollInterval time.Duration

	// ConnectTimeout bounds the connectivity wait. Zero waits forever.
	ConnectTimeout time.Duration

	// HTTPTimeout bounds each relay request. Zero leaves it to the transport.
	HTTPTimeout time.Duration

	// Debounce is the minimum gap between two accepted presses of one button.
	Debounce time.Duration

	// Link selects the network link implementation: "probe" or "nmcli".
	Link string

	// Battery names the sysfs power supply, or "fixed".
	Battery string
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		WiFiSSID:     os.Getenv("REMOTE_WIFI_SSID"),
		WiFiPassword: os.Getenv("REMOTE_WIFI_PASSWORD"),
		RelayURL:     os.Getenv("REMOTE_RELAY_URL"),
		APIKey:       os.Getenv("REMOTE_API_KEY"),
		QRCode:       os.Getenv("REMOTE_QR_CODE"),
		HistoryLabel: getEnv("REMOTE_HISTORY_LABEL", DefaultHistoryLabel),
		Link:         getEnv("REMOTE_LINK", DefaultLink),
		Battery:      getEnv("REMOTE_BATTERY", DefaultBattery),
	}

	var err error
	durations := []struct {
		key   string
		def   time.Duration
		field *time.Duration
	}{
		{"REMOTE_DWELL", DefaultDwell, &cfg.Dwell},
		{"REMOTE_POLL_INTERVAL", DefaultPollInterval, &cfg.PollInterval},
		{"REMOTE_CONNECT_TIMEOUT", 0, &cfg.ConnectTimeout},
		{"REMOTE_HTTP_TIMEOUT", 0, &cfg.HTTPTimeout},
		{"REMOTE_DEBOUNCE", DefaultDebounce, &cfg.Debounce},
	}
	for _, d := range durations {
		if *d.field, err = getDuration(d.key, d.def); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing required setting at once.
func (c Config) Validate() error {
	var missing []string
	if c.WiFiSSID == "" {
		missing = append(missing, "REMOTE_WIFI_SSID")
	}
	if c.WiFiPassword == "" {
		missing = append(missing, "REMOTE_WIFI_PASSWORD")
	}
	if c.RelayURL == "" {
		missing = append(missing, "REMOTE_RELAY_URL")
	}
	if c.APIKey == "" {
		missing = append(missing, "REMOTE_API_KEY")
	}
	if c.QRCode == "" {
		missing = append(missing, "REMOTE_QR_CODE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Dwell < 0 || c.ConnectTimeout < 0 || c.HTTPTimeout < 0 || c.Debounce < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	switch c.Link {
	case LinkProbe, LinkNmcli:
	default:
		return fmt.Errorf("unknown link %q", c.Link)
	}
	return nil
}

// getEnv returns an environment variable value or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}
