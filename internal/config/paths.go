package config

import (
	"os"
	"path/filepath"
)

// HomeEnv relocates the dbtsel home directory.
const HomeEnv = "DBTSEL_PATH"

// Home is the dbtsel data directory: config file, .env file and the
// heartbeat of a running gateway.
type Home struct {
	dir string
}

// ResolveHome returns $DBTSEL_PATH, or ~/.dbtsel when it is unset.
func ResolveHome() Home {
	if v := os.Getenv(HomeEnv); v != "" {
		return Home{dir: v}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return Home{dir: filepath.Join(home, ".dbtsel")}
	}
	return Home{dir: ".dbtsel"}
}

// Dir is the home directory itself.
func (h Home) Dir() string { return h.dir }

// Config is the default config file.
func (h Home) Config() string { return filepath.Join(h.dir, "config.jsonc") }

// Dotenv is the .env file read at startup and on reload.
func (h Home) Dotenv() string { return filepath.Join(h.dir, ".env") }
