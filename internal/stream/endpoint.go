package stream

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults applied to optional endpoint fields.
const (
	DefaultUsername   = "source"
	DefaultStreamName = "Audio Stream"
	DefaultBitrate    = "128k"
	DefaultProtocol   = "http"
)

// Endpoint is a single configured Icecast destination. Endpoints are built
// once at startup, defaulted and validated, and immutable afterwards.
type Endpoint struct {
	// Host is the Icecast server hostname or IP address.
	Host string `toml:"host" json:"host"`

	// Port is the Icecast server port.
	Port int `toml:"port" json:"port"`

	// Mount is the mount point including the leading slash, e.g. "/stream.mp3".
	Mount string `toml:"mount" json:"mount"`

	// Username is the Icecast source username. Defaults to "source".
	Username string `toml:"username,omitempty" json:"username,omitempty"`

	// Password is the Icecast source password.
	Password string `toml:"password" json:"password"`

	// StreamName is the display name sent as ice-name metadata.
	StreamName string `toml:"stream_name,omitempty" json:"stream_name,omitempty"`

	// Bitrate is the target MP3 bitrate, e.g. "128k". Defaults to "128k".
	Bitrate string `toml:"bitrate,omitempty" json:"bitrate,omitempty"`

	// Source is the raw source descriptor from configuration: a local file,
	// an http(s) URL, or a directory.
	Source string `toml:"source" json:"source"`

	// SourcePath is the resolved local path for Source, filled in by the
	// cache resolver before grouping.
	SourcePath string `toml:"-" json:"-"`

	// Protocol is "http" or "https". Defaults to "http".
	Protocol string `toml:"protocol,omitempty" json:"protocol,omitempty"`
}

// ApplyDefaults fills in optional fields with their default values.
func (e *Endpoint) ApplyDefaults() {
	if e.Username == "" {
		e.Username = DefaultUsername
	}
	if e.StreamName == "" {
		e.StreamName = DefaultStreamName
	}
	if e.Bitrate == "" {
		e.Bitrate = DefaultBitrate
	}
	if e.Protocol == "" {
		e.Protocol = DefaultProtocol
	}
	e.Protocol = strings.ToLower(e.Protocol)
}

// Validate checks that all required fields are present.
func (e *Endpoint) Validate() error {
	var missing []string
	if e.Host == "" {
		missing = append(missing, "host")
	}
	if e.Port == 0 {
		missing = append(missing, "port")
	}
	if e.Mount == "" {
		missing = append(missing, "mount")
	}
	if e.Password == "" {
		missing = append(missing, "password")
	}
	if e.Source == "" {
		missing = append(missing, "source")
	}
	if len(missing) > 0 {
		return fmt.Errorf("endpoint missing required fields: %s", strings.Join(missing, ", "))
	}
	if e.Protocol != "http" && e.Protocol != "https" {
		return errors.New("protocol must be http or https")
	}
	return nil
}

// ID returns the endpoint identifier used in logs, e.g. "example.org:8000/live".
func (e *Endpoint) ID() string {
	return fmt.Sprintf("%s:%d%s", e.Host, e.Port, e.Mount)
}

// IcecastURL returns the ffmpeg output URL for this endpoint.
func (e *Endpoint) IcecastURL() string {
	return fmt.Sprintf("%s://%s:%s@%s:%d%s", e.Protocol, e.Username, e.Password, e.Host, e.Port, e.Mount)
}
