package permissions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegistryRejectsBadInput(t *testing.T) {
	_, err := NewRegistry(nil)
	require.Error(t, err)

	_, err = NewRegistry([]Kind{"create", ""})
	require.Error(t, err)

	_, err = NewRegistry([]Kind{"create", "create"})
	require.Error(t, err)
}

func TestRegistryOrderIsStable(t *testing.T) {
	registry, err := NewRegistry([]Kind{"edit", "create", "approve"})
	require.NoError(t, err)

	require.Equal(t, []Kind{"edit", "create", "approve"}, registry.Kinds())
	require.Equal(t, 3, registry.Len())
	require.True(t, registry.Contains("approve"))
	require.False(t, registry.Contains("delete"))

	// Mutating the returned slice must not affect the registry.
	kinds := registry.Kinds()
	kinds[0] = "tampered"
	require.Equal(t, []Kind{"edit", "create", "approve"}, registry.Kinds())
}

func TestNewRoleDefaultsValidatesKinds(t *testing.T) {
	registry, err := NewRegistry([]Kind{"create", "edit"})
	require.NoError(t, err)

	_, err = NewRoleDefaults(registry, map[string][]Kind{
		"supervisor": {"create", "fly"},
	})
	require.Error(t, err)

	defaults, err := NewRoleDefaults(registry, map[string][]Kind{
		"supervisor": {"create", "edit", "create"},
	})
	require.NoError(t, err)

	kinds, known := defaults.Grants("supervisor")
	require.True(t, known)
	require.Equal(t, []Kind{"create", "edit"}, kinds)

	_, known = defaults.Grants("ghost")
	require.False(t, known)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	content := []byte(`
kinds:
  - create
  - edit
  - approve
roles:
  supervisor:
    - create
    - edit
    - approve
  inspector: []
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	registry, defaults, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, []Kind{"create", "edit", "approve"}, registry.Kinds())

	kinds, known := defaults.Grants("supervisor")
	require.True(t, known)
	require.Equal(t, []Kind{"create", "edit", "approve"}, kinds)

	kinds, known = defaults.Grants("inspector")
	require.True(t, known)
	require.Empty(t, kinds)
}

func TestLoadConfigFileRejectsUnknownDefaultKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	content := []byte(`
kinds: [create]
roles:
  supervisor: [create, approve]
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	_, _, err := LoadConfigFile(path)
	require.Error(t, err)
}
