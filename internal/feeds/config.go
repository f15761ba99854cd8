// Package feeds loads and validates the list of upstream feeds the service polls.
package feeds

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/feedstore"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/heartbeat"
)

// ErrInvalidConfig marks content that cannot become the active feed set.
var ErrInvalidConfig = errors.New("invalid feeds config")

// FeedConfig is one upstream feed. File is the unique key for the feed's raw snapshot.
type FeedConfig struct {
	URL   string `yaml:"url" json:"url"`
	File  string `yaml:"file" json:"file"`
	Route string `yaml:"route" json:"route"`
}

type document struct {
	Feeds []FeedConfig `yaml:"feeds"`
}

// Load reads and parses the config file at path.
func Load(path string) ([]FeedConfig, uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read feeds config: %w", err)
	}
	list, err := Parse(data)
	if err != nil {
		return nil, 0, err
	}
	return list, Hash(data), nil
}

// Parse accepts YAML or JSON, either a bare list of feeds or an object with a feeds key.
func Parse(data []byte) ([]FeedConfig, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidConfig)
	}

	var list []FeedConfig
	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	case yaml.MappingNode:
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		list = doc.Feeds
	default:
		return nil, fmt.Errorf("%w: expected a list or a feeds object", ErrInvalidConfig)
	}

	for i := range list {
		list[i] = list[i].normalized()
	}
	if err := Validate(list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []FeedConfig{}
	}
	return list, nil
}

func (f FeedConfig) normalized() FeedConfig {
	f.URL = strings.TrimSpace(f.URL)
	f.File = strings.TrimSpace(f.File)
	f.Route = strings.ToLower(strings.Trim(strings.TrimSpace(f.Route), "/"))
	return f
}

// Validate rejects the whole set on the first bad entry.
func Validate(list []FeedConfig) error {
	files := make(map[string]struct{}, len(list))
	beats := make(map[string]string, len(list))
	routes := make(map[string]struct{}, len(list))
	for i, f := range list {
		u, err := url.Parse(f.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: feed %d: url %q must be absolute http(s)", ErrInvalidConfig, i, f.URL)
		}
		if !validFileName(f.File) {
			return fmt.Errorf("%w: feed %d: file %q must be a plain file name", ErrInvalidConfig, i, f.File)
		}
		if _, dup := files[f.File]; dup {
			return fmt.Errorf("%w: feed %d: duplicate file %q", ErrInvalidConfig, i, f.File)
		}
		files[f.File] = struct{}{}
		// Heartbeat names drop the extension, so nfl.json and nfl.xml would share one.
		beat := heartbeat.FileName(f.File)
		if other, dup := beats[beat]; dup {
			return fmt.Errorf("%w: feed %d: file %q shares heartbeat %q with %q", ErrInvalidConfig, i, f.File, beat, other)
		}
		beats[beat] = f.File

		route := strings.ToLower(f.Route)
		if route == "" {
			return fmt.Errorf("%w: feed %d: route is required", ErrInvalidConfig, i)
		}
		if _, dup := routes[route]; dup {
			return fmt.Errorf("%w: feed %d: duplicate route %q", ErrInvalidConfig, i, route)
		}
		routes[route] = struct{}{}
	}
	return nil
}

func validFileName(name string) bool {
	if name == "" || name == "." || name == ".." || name == feedstore.ManifestFile {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// Hash fingerprints raw config content so identical rewrites can be ignored.
func Hash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Files returns the file keys in order.
func Files(list []FeedConfig) []string {
	out := make([]string, 0, len(list))
	for _, f := range list {
		out = append(out, f.File)
	}
	return out
}

// ByRoute finds a feed by its route, case-insensitively.
func ByRoute(list []FeedConfig, route string) (FeedConfig, bool) {
	route = strings.ToLower(strings.Trim(route, "/"))
	for _, f := range list {
		if f.Route == route {
			return f, true
		}
	}
	return FeedConfig{}, false
}
