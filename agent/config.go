package agent

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultAgentTimeout = 5 * time.Second

// Immutable snapshot of runtime agent configuration. Changes are made by deriving a new snapshot with the With* methods; a snapshot which has been handed to a check is never modified. A nil *Config behaves like DefaultConfig().
type Config struct {
	disabled   map[string]bool
	weights    map[string]int
	detections map[string]bool
	timeout    time.Duration
}

func DefaultConfig() *Config {
	return &Config{timeout: DefaultAgentTimeout}
}

// Serializable form of a Config, used for YAML config files and the admin API.
type ConfigSpec struct {
	Disabled           []string       `yaml:"disabled,omitempty" json:"disabled"`
	Weights            map[string]int `yaml:"weights,omitempty" json:"weights"`
	DisabledDetections []string       `yaml:"disabledDetections,omitempty" json:"disabledDetections"`
	AgentTimeout       string         `yaml:"agentTimeout,omitempty" json:"agentTimeout"`
}

func ConfigFromSpec(spec ConfigSpec) (*Config, error) {
	cfg := DefaultConfig()
	if spec.AgentTimeout != "" {
		d, err := time.ParseDuration(spec.AgentTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing agent timeout: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("agent timeout must be positive: %s", spec.AgentTimeout)
		}
		cfg.timeout = d
	}
	for _, id := range spec.Disabled {
		cfg = cfg.WithAgentEnabled(id, false)
	}
	for id, w := range spec.Weights {
		if w < 0 || w > 100 {
			return nil, fmt.Errorf("weight for %s out of range: %d", id, w)
		}
		cfg = cfg.WithWeight(id, w)
	}
	for _, d := range spec.DisabledDetections {
		cfg = cfg.WithDetection(d, false)
	}
	return cfg, nil
}

// Reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agent config: %w", err)
	}
	var spec ConfigSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("parsing agent config %s: %w", path, err)
	}
	return ConfigFromSpec(spec)
}

func (c *Config) Spec() ConfigSpec {
	spec := ConfigSpec{
		Disabled:           []string{},
		Weights:            map[string]int{},
		DisabledDetections: []string{},
		AgentTimeout:       c.AgentTimeout().String(),
	}
	if c == nil {
		return spec
	}
	for id, off := range c.disabled {
		if off {
			spec.Disabled = append(spec.Disabled, id)
		}
	}
	for id, w := range c.weights {
		spec.Weights[id] = w
	}
	for d, on := range c.detections {
		if !on {
			spec.DisabledDetections = append(spec.DisabledDetections, d)
		}
	}
	sort.Strings(spec.Disabled)
	sort.Strings(spec.DisabledDetections)
	return spec
}

func (c *Config) clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	out := &Config{
		disabled:   make(map[string]bool, len(c.disabled)),
		weights:    make(map[string]int, len(c.weights)),
		detections: make(map[string]bool, len(c.detections)),
		timeout:    c.timeout,
	}
	for k, v := range c.disabled {
		out.disabled[k] = v
	}
	for k, v := range c.weights {
		out.weights[k] = v
	}
	for k, v := range c.detections {
		out.detections[k] = v
	}
	return out
}

func (c *Config) WithAgentEnabled(id string, enabled bool) *Config {
	out := c.clone()
	if enabled {
		delete(out.disabled, id)
	} else {
		out.disabled[id] = true
	}
	return out
}

func (c *Config) WithWeight(id string, weight int) *Config {
	out := c.clone()
	out.weights[id] = Clamp(weight)
	return out
}

func (c *Config) WithDetection(name string, enabled bool) *Config {
	out := c.clone()
	if enabled {
		delete(out.detections, name)
	} else {
		out.detections[name] = false
	}
	return out
}

func (c *Config) WithAgentTimeout(d time.Duration) *Config {
	out := c.clone()
	out.timeout = d
	return out
}

func (c *Config) AgentEnabled(id string) bool {
	if c == nil {
		return true
	}
	return !c.disabled[id]
}

// Effective weight: the override if one is set, otherwise the agent's default.
func (c *Config) WeightFor(id Identity) int {
	if c != nil {
		if w, ok := c.weights[id.ID]; ok {
			return w
		}
	}
	return id.Weight
}

func (c *Config) DetectionEnabled(name string) bool {
	if c == nil {
		return true
	}
	on, ok := c.detections[name]
	return !ok || on
}

// Set of disabled detection types. Callers get a copy.
func (c *Config) DisabledDetections() map[string]bool {
	out := map[string]bool{}
	if c == nil {
		return out
	}
	for d, on := range c.detections {
		if !on {
			out[d] = true
		}
	}
	return out
}

func (c *Config) AgentTimeout() time.Duration {
	if c == nil || c.timeout <= 0 {
		return DefaultAgentTimeout
	}
	return c.timeout
}

// Checks the snapshot against a set of agents: every referenced agent must exist, and the effective weights of enabled agents must add up to 100.
func (c *Config) Validate(agents []Identity) error {
	known := make(map[string]bool, len(agents))
	for _, id := range agents {
		known[id.ID] = true
	}
	if c != nil {
		for id := range c.disabled {
			if !known[id] {
				return fmt.Errorf("config disables unknown agent: %s", id)
			}
		}
		for id := range c.weights {
			if !known[id] {
				return fmt.Errorf("config sets weight for unknown agent: %s", id)
			}
		}
	}
	total := 0
	enabled := 0
	for _, id := range agents {
		if c.AgentEnabled(id.ID) {
			total += c.WeightFor(id)
			enabled++
		}
	}
	if enabled > 0 && total != 100 {
		return fmt.Errorf("weights of enabled agents must sum to 100, got %d", total)
	}
	return nil
}
