// Package persona loads and validates the versioned persona roster.
package persona

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a persona key is not in the store.
var ErrNotFound = errors.New("persona not found")

// ToneSliders weight a persona's voice. Each slider is in [0, 1].
type ToneSliders struct {
	Meme        float64 `yaml:"meme" json:"meme"`
	Serious     float64 `yaml:"serious" json:"serious"`
	Educational float64 `yaml:"educational" json:"educational"`
}

// Profile is one persona's full voice definition.
type Profile struct {
	Key              string      `yaml:"-" json:"key"`
	Name             string      `yaml:"name" json:"name"`
	Handle           string      `yaml:"handle" json:"handle"`
	Bio              string      `yaml:"bio" json:"bio"`
	Role             string      `yaml:"role" json:"role"`
	Tone             ToneSliders `yaml:"tone" json:"tone"`
	ForbiddenPhrases []string    `yaml:"forbidden_phrases" json:"forbidden_phrases"`
	Stance           []string    `yaml:"stance" json:"stance"`
	HotTakes         []string    `yaml:"hot_takes" json:"hot_takes"`
	Examples         []string    `yaml:"examples" json:"examples"`
}

// Store holds validated personas in declaration order.
type Store struct {
	keys     []string
	profiles map[string]*Profile
}

type rootConfig struct {
	Version  int       `yaml:"version"`
	Personas yaml.Node `yaml:"personas"`
}

// Load reads a persona config file. Any structural or validation problem is
// fatal; there are no partial loads.
func Load(path string) (*Store, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona config %q: %w", path, err)
	}
	store, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("persona config %q: %w", path, err)
	}
	return store, nil
}

// Parse decodes and validates persona config content.
func Parse(content []byte) (*Store, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	var root rootConfig
	if err := decoder.Decode(&root); err != nil {
		return nil, fmt.Errorf("parse personas: %w", err)
	}

	if root.Version < 1 {
		return nil, fmt.Errorf("unsupported persona config version %d, expected >= 1", root.Version)
	}
	if root.Personas.Kind != yaml.MappingNode {
		return nil, errors.New("personas must be a mapping of key to profile")
	}

	store := &Store{profiles: make(map[string]*Profile)}

	// Mapping node content alternates key and value nodes, preserving
	// declaration order.
	for i := 0; i+1 < len(root.Personas.Content); i += 2 {
		keyNode := root.Personas.Content[i]
		valNode := root.Personas.Content[i+1]

		key := strings.TrimSpace(keyNode.Value)
		if key == "" {
			return nil, errors.New("persona key must not be blank")
		}
		if _, exists := store.profiles[key]; exists {
			return nil, fmt.Errorf("duplicate persona key %q", key)
		}

		profile, err := decodeProfile(valNode)
		if err != nil {
			return nil, fmt.Errorf("persona %q: %w", key, err)
		}
		profile.Key = key

		if err := validateProfile(profile); err != nil {
			return nil, fmt.Errorf("persona %q: %w", key, err)
		}

		store.keys = append(store.keys, key)
		store.profiles[key] = profile
	}

	if len(store.keys) == 0 {
		return nil, errors.New("no personas defined")
	}
	return store, nil
}

// decodeProfile re-encodes the mapping node and decodes it through a strict
// decoder. Node.Decode never rejects unknown fields, so unknown-field
// enforcement needs a fresh Decoder with KnownFields set.
func decodeProfile(node *yaml.Node) (*Profile, error) {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return nil, err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	profile := &Profile{}
	if err := decoder.Decode(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func validateProfile(p *Profile) error {
	required := map[string]string{
		"name":   p.Name,
		"handle": p.Handle,
		"bio":    p.Bio,
		"role":   p.Role,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("missing required field %q", field)
		}
	}

	sliders := map[string]float64{
		"meme":        p.Tone.Meme,
		"serious":     p.Tone.Serious,
		"educational": p.Tone.Educational,
	}
	for name, value := range sliders {
		if value < 0 || value > 1 {
			return fmt.Errorf("tone slider %q is %v, expected 0-1", name, value)
		}
	}
	return nil
}

// Keys returns persona keys in declaration order.
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Get returns the profile for key or ErrNotFound.
func (s *Store) Get(key string) (*Profile, error) {
	profile, ok := s.profiles[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return profile, nil
}
