package backend

import (
	"fmt"

	"ledgerbook/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.Backend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.Backend)
	}

	return Config{
		Type:        backendType,
		SettingsKey: appConfig.SettingsKey,
		AsyncWrites: appConfig.AsyncWrites,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		PebbleDir:    appConfig.PebbleDir,

		RemoteBaseURL:    appConfig.RemoteBaseURL,
		RemoteToken:      appConfig.RemoteToken,
		RemoteTimeout:    appConfig.RemoteTimeout,
		RemoteMaxRetries: appConfig.RemoteMaxRetries,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PebbleBackend:
		if c.PebbleDir == "" {
			return fmt.Errorf("Pebble directory is required for pebble backend")
		}
	case RemoteBackend:
		if c.RemoteBaseURL == "" {
			return fmt.Errorf("remote base URL is required for remote backend")
		}
	case MemoryBackend:
		// nothing to check
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PebbleBackend, RemoteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
