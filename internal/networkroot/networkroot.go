// Package networkroot parses the BeliefNetwork.{json,toml} file that marks
// the root of a source tree and carries its network-scoped configuration:
// which codec parses it, strictness, and concurrency/batch knobs. It
// mirrors internal/config's defaults-then-overlay pattern, retargeted at
// JSON/TOML per spec.md §6.1 instead of the teacher's server-wide YAML.
package networkroot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileNames are the root-manifest names BeliefNetwork discovery looks for,
// in precedence order.
var FileNames = []string{"BeliefNetwork.json", "BeliefNetwork.toml"}

// Config is the network-scoped configuration carried by a BeliefNetwork
// manifest.
type Config struct {
	Codec          string `json:"codec" toml:"codec"`
	StrictFormat   bool   `json:"strict_format" toml:"strict_format"`
	BatchSize      int    `json:"batch_size" toml:"batch_size"`
	MaxConcurrency int    `json:"max_concurrency" toml:"max_concurrency"`
	CacheBackend   string `json:"cache_backend" toml:"cache_backend"`
}

// BeliefNetwork is the parsed manifest for one network root.
type BeliefNetwork struct {
	ID     string `json:"id" toml:"id"`
	Title  string `json:"title" toml:"title"`
	Config Config `json:"config" toml:"config"`

	// path is the manifest's own location, kept so the builder can resolve
	// sibling document paths relative to it.
	path string
}

// DefaultConfig returns the configuration a manifest overlays onto.
func DefaultConfig() Config {
	return Config{
		Codec:          "markdown",
		StrictFormat:   false,
		BatchSize:      100,
		MaxConcurrency: 4,
		CacheBackend:   "sqlite",
	}
}

// Discover looks for a BeliefNetwork manifest directly inside dir, trying
// each name in FileNames order.
func Discover(dir string) (string, bool) {
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// Load reads and parses a BeliefNetwork manifest, overlaying it onto
// DefaultConfig so a manifest only needs to name the fields it overrides.
func Load(path string) (*BeliefNetwork, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is resolved by Discover/the caller, not untrusted input
	if err != nil {
		return nil, fmt.Errorf("networkroot: read %s: %w", path, err)
	}

	net := &BeliefNetwork{Config: DefaultConfig(), path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, net)
	case ".toml":
		err = toml.Unmarshal(data, net)
	default:
		return nil, fmt.Errorf("networkroot: unrecognized manifest extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("networkroot: parse %s: %w", path, err)
	}

	if err := net.Validate(); err != nil {
		return nil, err
	}
	return net, nil
}

// Validate checks that the manifest names a usable codec and sane
// processing limits.
func (n *BeliefNetwork) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("networkroot: manifest %s is missing id", n.path)
	}
	if n.Config.Codec == "" {
		return fmt.Errorf("networkroot: manifest %s is missing config.codec", n.path)
	}
	if n.Config.BatchSize <= 0 {
		return fmt.Errorf("networkroot: batch_size must be positive")
	}
	if n.Config.MaxConcurrency <= 0 {
		return fmt.Errorf("networkroot: max_concurrency must be positive")
	}
	return nil
}

// Dir returns the directory the manifest lives in — the network's root.
func (n *BeliefNetwork) Dir() string { return filepath.Dir(n.path) }

// Path returns the manifest's own file path.
func (n *BeliefNetwork) Path() string { return n.path }
