package registry

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "200ms" or "30s" decode.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// EngineConfig is the YAML configuration surface for a deployment: engine
// limits plus the agent definitions. Zero values mean "use the engine
// default".
type EngineConfig struct {
	StepLimit               int          `yaml:"stepLimit"`
	RateLimitPerTool        float64      `yaml:"rateLimitPerTool"` // requests per minute
	RetryMaxAttempts        int          `yaml:"retryMaxAttempts"`
	RetryBaseDelay          Duration     `yaml:"retryBaseDelay"`
	RetryMaxDelay           Duration     `yaml:"retryMaxDelay"`
	CircuitFailureThreshold int          `yaml:"circuitFailureThreshold"`
	CircuitCooldown         Duration     `yaml:"circuitCooldown"`
	ToolCallTimeout         Duration     `yaml:"toolCallTimeout"`
	ModelCallTimeout        Duration     `yaml:"modelCallTimeout"`
	Agents                  []Definition `yaml:"agents"`
}

// LoadConfig decodes an EngineConfig from YAML.
func LoadConfig(r io.Reader) (*EngineConfig, error) {
	var cfg EngineConfig
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Agents) == 0 {
		return nil, &ConfigurationError{Reason: "no agents configured"}
	}
	return &cfg, nil
}

// LoadConfigFile loads an EngineConfig from a YAML file.
func LoadConfigFile(path string) (*EngineConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	return LoadConfig(f)
}
