package stream

import (
	"fmt"
	"path/filepath"
)

// Key identifies a group: endpoints sharing both the resolved source path and
// the bitrate are served by a single encoder process.
type Key struct {
	SourcePath string
	Bitrate    string
}

// Group is a set of endpoints sharing one Key. One ffmpeg process streams the
// group's source to every member endpoint.
type Group struct {
	Key       Key
	Endpoints []Endpoint
}

// ID returns the group identifier used in logs and metrics,
// e.g. "music.mp3:128k".
func (g *Group) ID() string {
	return fmt.Sprintf("%s:%s", filepath.Base(g.Key.SourcePath), g.Key.Bitrate)
}

// EndpointIDs returns the identifiers of all member endpoints.
func (g *Group) EndpointIDs() []string {
	ids := make([]string, len(g.Endpoints))
	for i := range g.Endpoints {
		ids[i] = g.Endpoints[i].ID()
	}
	return ids
}

// GroupEndpoints partitions endpoints by (resolved source path, bitrate).
// The partition is stable: groups appear in order of the first endpoint that
// introduced their key, and endpoints keep their relative order within a
// group. Every endpoint lands in exactly one group.
func GroupEndpoints(endpoints []Endpoint) []*Group {
	byKey := make(map[Key]*Group)
	var groups []*Group

	for _, ep := range endpoints {
		key := Key{SourcePath: ep.SourcePath, Bitrate: ep.Bitrate}
		g, ok := byKey[key]
		if !ok {
			g = &Group{Key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.Endpoints = append(g.Endpoints, ep)
	}

	return groups
}
