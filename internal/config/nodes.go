package config

import (
	"context"
	"fmt"
	"os"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/glizzus/encore/internal/node"
)

// defaultNodePort is the port audio nodes listen on out of the box.
const defaultNodePort = 2333

type NodesConfig struct {
	File string `env:"NODES_FILE, default=nodes.yaml"`
}

func NewNodesConfigFromEnv() (*NodesConfig, error) {
	var cfg NodesConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// nodesFile is the on-disk shape of the fleet file.
type nodesFile struct {
	Nodes []node.Options `yaml:"nodes"`
}

// LoadNodesFile reads the node fleet from a YAML file.
func LoadNodesFile(path string) ([]node.Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read nodes file: %w", err)
	}
	nodes, err := ParseNodes(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nodes, nil
}

// ParseNodes validates a fleet definition: every node needs a unique
// name plus a host and a password. A missing port falls back to 2333.
func ParseNodes(raw []byte) ([]node.Options, error) {
	var file nodesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse nodes file: %w", err)
	}
	if len(file.Nodes) == 0 {
		return nil, fmt.Errorf("nodes file defines no nodes")
	}

	seen := make(map[string]bool, len(file.Nodes))
	for i := range file.Nodes {
		opts := &file.Nodes[i]
		if opts.Name == "" {
			return nil, fmt.Errorf("node at index %d has no name", i)
		}
		if seen[opts.Name] {
			return nil, fmt.Errorf("node name %q appears twice", opts.Name)
		}
		seen[opts.Name] = true
		if opts.Host == "" {
			return nil, fmt.Errorf("node %q has no host", opts.Name)
		}
		if opts.Password == "" {
			return nil, fmt.Errorf("node %q has no password", opts.Name)
		}
		if opts.Port == 0 {
			opts.Port = defaultNodePort
		}
	}
	return file.Nodes, nil
}
