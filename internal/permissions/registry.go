package permissions

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry is the closed, ordered set of permission kinds recognized by
// this deployment. It is built once at startup and never mutated.
type Registry struct {
	kinds []Kind
	index map[Kind]int
}

// NewRegistry builds a registry from an ordered kind list. Empty and
// duplicate names are rejected.
func NewRegistry(kinds []Kind) (*Registry, error) {
	if len(kinds) == 0 {
		return nil, fmt.Errorf("permissions: registry requires at least one kind")
	}
	index := make(map[Kind]int, len(kinds))
	ordered := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		k = Kind(strings.TrimSpace(string(k)))
		if k == "" {
			return nil, fmt.Errorf("permissions: empty permission kind")
		}
		if _, ok := index[k]; ok {
			return nil, fmt.Errorf("permissions: duplicate permission kind %q", k)
		}
		index[k] = len(ordered)
		ordered = append(ordered, k)
	}
	return &Registry{kinds: ordered, index: index}, nil
}

// Contains reports whether the kind is recognized.
func (r *Registry) Contains(k Kind) bool {
	_, ok := r.index[k]
	return ok
}

// Kinds returns the registry's kinds in their fixed configuration order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int {
	return len(r.kinds)
}

// RoleDefaults maps a role name to the kinds it grants absent overrides.
// Loaded from static configuration; read-only during the engine lifetime.
type RoleDefaults struct {
	grants map[string][]Kind
}

// NewRoleDefaults validates that every default kind is in the registry.
func NewRoleDefaults(registry *Registry, grants map[string][]Kind) (*RoleDefaults, error) {
	cloned := make(map[string][]Kind, len(grants))
	for role, kinds := range grants {
		role = strings.TrimSpace(role)
		if role == "" {
			return nil, fmt.Errorf("permissions: empty role name in defaults")
		}
		seen := make(map[Kind]struct{}, len(kinds))
		set := make([]Kind, 0, len(kinds))
		for _, k := range kinds {
			if !registry.Contains(k) {
				return nil, fmt.Errorf("permissions: role %q grants unknown kind %q", role, k)
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			set = append(set, k)
		}
		cloned[role] = set
	}
	return &RoleDefaults{grants: cloned}, nil
}

// Grants returns the default kinds for the role and whether the role is
// known. Unknown roles get the empty set; callers decide how to log that.
func (d *RoleDefaults) Grants(role string) ([]Kind, bool) {
	kinds, ok := d.grants[role]
	if !ok {
		return nil, false
	}
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out, true
}

// Roles returns the known role names.
func (d *RoleDefaults) Roles() []string {
	roles := make([]string, 0, len(d.grants))
	for role := range d.grants {
		roles = append(roles, role)
	}
	return roles
}

type configFile struct {
	Kinds []string            `yaml:"kinds"`
	Roles map[string][]string `yaml:"roles"`
}

// LoadConfigFile reads the registry and role defaults from a YAML file.
func LoadConfigFile(path string) (*Registry, *RoleDefaults, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("permissions: read config: %w", err)
	}
	var cfg configFile
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, nil, fmt.Errorf("permissions: parse config: %w", err)
	}
	kinds := make([]Kind, len(cfg.Kinds))
	for i, k := range cfg.Kinds {
		kinds[i] = Kind(k)
	}
	registry, err := NewRegistry(kinds)
	if err != nil {
		return nil, nil, err
	}
	grants := make(map[string][]Kind, len(cfg.Roles))
	for role, names := range cfg.Roles {
		set := make([]Kind, len(names))
		for i, n := range names {
			set[i] = Kind(n)
		}
		grants[role] = set
	}
	defaults, err := NewRoleDefaults(registry, grants)
	if err != nil {
		return nil, nil, err
	}
	return registry, defaults, nil
}
