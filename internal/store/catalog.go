package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"sovereignctl/internal/model"
	"sovereignctl/internal/sim"
)

// Catalog overrides the built-in seed entities. Empty sections keep the
// built-in values.
type Catalog struct {
	UpdatedAt time.Time              `yaml:"updated_at,omitempty"`
	Nodes     []model.Node           `yaml:"nodes,omitempty"`
	Models    []model.LocalModel     `yaml:"models,omitempty"`
	Rounds    []model.FederatedRound `yaml:"rounds,omitempty"`
	Peers     []model.P2PPeer        `yaml:"peers,omitempty"`
}

// Builtin returns the catalog of compiled-in seed data.
func Builtin() *Catalog {
	return &Catalog{
		Nodes:  sim.InitialNodes(),
		Models: sim.InitialModels(),
		Rounds: sim.InitialRounds(),
		Peers:  sim.InitialPeers(),
	}
}

// LoadCatalog loads a catalog from disk and fills empty sections from the
// built-in seed. An empty path or a missing file returns Builtin.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Builtin(), nil
		}
		return nil, err
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	cat.fill(Builtin())
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &cat, nil
}

// SaveCatalog writes the catalog to disk.
func SaveCatalog(path string, cat *Catalog) error {
	if cat == nil {
		return nil
	}
	cat.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(cat)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks the node invariants the simulator relies on.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Nodes))
	masters := 0
	for _, n := range c.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node with empty id")
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
		switch n.Role {
		case model.RoleMaster:
			masters++
		case model.RoleAgent:
		default:
			return fmt.Errorf("node %s: unknown role %q", n.ID, n.Role)
		}
		if n.CPUUsage < sim.CPUMin || n.CPUUsage > sim.CPUMax {
			return fmt.Errorf("node %s: cpu_usage %.1f out of range", n.ID, n.CPUUsage)
		}
		if n.Temp < sim.TempMin || n.Temp > sim.TempMax {
			return fmt.Errorf("node %s: temp %.1f out of range", n.ID, n.Temp)
		}
	}
	if masters != 1 {
		return fmt.Errorf("expected exactly one %s node, got %d", model.RoleMaster, masters)
	}
	return nil
}

func (c *Catalog) fill(def *Catalog) {
	if len(c.Nodes) == 0 {
		c.Nodes = def.Nodes
	}
	if len(c.Models) == 0 {
		c.Models = def.Models
	}
	if len(c.Rounds) == 0 {
		c.Rounds = def.Rounds
	}
	if len(c.Peers) == 0 {
		c.Peers = def.Peers
	}
}
