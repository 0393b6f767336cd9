package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"truck-routing-service/internal/services"
)

//go:embed profiles.yaml
var builtinProfiles []byte

type profileFile struct {
	Profiles map[string]yaml.Node `yaml:"profiles"`
}

// Profiles maps a profile name to a complete solver configuration.
type Profiles map[string]services.SolverConfig

// LoadProfiles returns the built-in profiles, overlaid with the profiles of
// path when it is non-empty. Each profile starts from the solver defaults,
// so a profile only lists the values it changes.
func LoadProfiles(path string) (Profiles, error) {
	out := Profiles{}
	if err := out.merge(builtinProfiles); err != nil {
		return nil, fmt.Errorf("built-in profiles: %w", err)
	}

	if path == "" {
		return out, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %q: %w", path, err)
	}
	if err := out.merge(raw); err != nil {
		return nil, fmt.Errorf("profiles %q: %w", path, err)
	}

	return out, nil
}

func (p Profiles) merge(raw []byte) error {
	var file profileFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}

	for name, node := range file.Profiles {
		cfg, ok := p[name]
		if !ok {
			cfg = services.DefaultSolverConfig()
		}
		if node.Kind != yaml.MappingNode {
			if node.Tag == "!!null" {
				p[name] = cfg
				continue
			}
			return fmt.Errorf("profile %q: expected a mapping of solver settings", name)
		}

		// Node.Decode ignores KnownFields, so each body is re-decoded strictly.
		body, err := yaml.Marshal(&node)
		if err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		pdec := yaml.NewDecoder(bytes.NewReader(body))
		pdec.KnownFields(true)
		if err := pdec.Decode(&cfg); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		p[name] = cfg
	}

	return nil
}

// Get returns the named profile.
func (p Profiles) Get(name string) (services.SolverConfig, error) {
	cfg, ok := p[name]
	if !ok {
		return services.SolverConfig{}, fmt.Errorf("unknown solver profile %q", name)
	}
	return cfg, nil
}
