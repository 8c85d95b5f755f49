package config

const (
	DefaultStorageKey = "tabActivityIndex"
	DefaultMaxEntries = 100
	DefaultThrottleMS = 2000
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			StorageKey:    DefaultStorageKey,
			MaxEntries:    DefaultMaxEntries,
			RetentionDays: 0,
		},
		Router: RouterConfig{
			ThrottleMillis: DefaultThrottleMS,
			EventBuffer:    256,
		},
		Capture: CaptureConfig{
			IgnoredSchemes:    DefaultIgnoredSchemes(),
			PlaceholderTokens: DefaultPlaceholderTokens(),
			MinURLLength:      5,
			DenylistDomains:   []string{},
		},
		Storage: StorageConfig{
			Backend:           "sqlite",
			Path:              "~/.config/tabtrail",
			SQLiteFile:        "tabtrail.db",
			PebbleDir:         "pebble",
			SQLiteJournalMode: "wal",
		},
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           7773,
			MaxRequestSize: 1 << 20,
		},
		Browser: BrowserConfig{
			CDPURL:   "",
			ExecPath: "",
			Headless: false,
		},
		Logging: LoggingConfig{
			Level: "info",
			Mode:  "console",
			File:  "",
		},
	}
}
