// Package config loads the endpoints configuration file. TOML is the native
// format; JSON is accepted for compatibility with the .json endpoint lists
// the tool historically used. Configuration problems are fatal at startup:
// a single malformed endpoint fails the whole load, so streaming never
// partially starts.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"loopcast/internal/stream"
)

// Error reports invalid configuration that prevents streaming from starting.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Reason, e.Err)
	}
	return "config: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// File is the on-disk endpoints configuration.
type File struct {
	Endpoints []stream.Endpoint `toml:"endpoints" json:"endpoints"`
}

// LoadEnv loads a .env file from the working directory into the environment.
// Missing .env is not an error.
func LoadEnv() {
	_ = godotenv.Load()
}

// Load reads the endpoints file, applies per-endpoint defaults, and validates
// every entry. An empty endpoint list is an error.
func Load(path string) ([]stream.Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Reason: "cannot read endpoints file", Err: err}
	}

	var f File
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &f)
	} else {
		err = toml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, &Error{Reason: fmt.Sprintf("cannot parse %s", path), Err: err}
	}

	return Finalize(f.Endpoints)
}

// Finalize applies defaults and validates an endpoint list, independent of
// where it came from (file or CLI flags).
func Finalize(endpoints []stream.Endpoint) ([]stream.Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, &Error{Reason: "no endpoints configured"}
	}

	for i := range endpoints {
		endpoints[i].ApplyDefaults()
		if err := endpoints[i].Validate(); err != nil {
			return nil, &Error{Reason: fmt.Sprintf("endpoint %d", i+1), Err: err}
		}
	}

	return endpoints, nil
}
