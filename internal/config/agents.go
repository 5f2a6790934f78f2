package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harborml/agent-engine/internal/subagent"
)

// agentsFile is the YAML document shape of the agents file.
type agentsFile struct {
	Agents []subagent.Config `yaml:"agents"`
}

// LoadAgents reads the YAML subagent definitions. Duplicate ids are a load
// error; deeper validation belongs to the subagent factory.
func LoadAgents(path string) ([]subagent.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}
	var doc agentsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse agents file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(doc.Agents))
	for _, agent := range doc.Agents {
		id := strings.TrimSpace(agent.ID)
		if id == "" {
			return nil, fmt.Errorf("agents file %s: agent with empty id", path)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("agents file %s: duplicate agent id %q", path, id)
		}
		seen[id] = struct{}{}
	}
	return doc.Agents, nil
}
