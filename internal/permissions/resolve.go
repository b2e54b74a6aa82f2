package permissions

import "log/slog"

// Resolver computes a member's effective permission set from role defaults
// and explicit overrides. Pure computation, no I/O.
type Resolver struct {
	registry *Registry
	defaults *RoleDefaults
	logger   *slog.Logger
}

// NewResolver constructs a Resolver over injected configuration.
func NewResolver(registry *Registry, defaults *RoleDefaults, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{registry: registry, defaults: defaults, logger: logger}
}

// Resolve starts from the role's default grant set and applies overrides:
// granted=true adds the kind, granted=false removes it. Override kinds no
// longer present in the registry are inert. An unknown role degrades to the
// empty default set with a logged warning; permission checks must not fail
// on misconfiguration. The result follows registry order.
func (r *Resolver) Resolve(role string, overrides map[Kind]bool) []Kind {
	granted := make(map[Kind]struct{})
	defaults, known := r.defaults.Grants(role)
	if !known {
		r.logger.Warn("unknown role, using empty default grant set", slog.String("role", role))
	}
	for _, k := range defaults {
		granted[k] = struct{}{}
	}
	for k, allow := range overrides {
		if !r.registry.Contains(k) {
			continue
		}
		if allow {
			granted[k] = struct{}{}
		} else {
			delete(granted, k)
		}
	}
	effective := make([]Kind, 0, len(granted))
	for _, k := range r.registry.kinds {
		if _, ok := granted[k]; ok {
			effective = append(effective, k)
		}
	}
	return effective
}
