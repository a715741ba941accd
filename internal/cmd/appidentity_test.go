package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platelog/platelog/internal/appid"
)

func TestAppIdentityLoading(t *testing.T) {
	identity, err := appid.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, identity)

	require.Equal(t, "platelog", identity.BinaryName)
	require.Equal(t, "platelog", identity.ConfigName)
	require.NotEmpty(t, identity.Vendor)
	require.True(t, strings.HasSuffix(identity.EnvPrefix, "_"), "env prefix %q should end with underscore", identity.EnvPrefix)
}

func TestUserAgentDefaultsToIdentity(t *testing.T) {
	original := appIdentity
	t.Cleanup(func() { appIdentity = original })

	identity, err := appid.Get(context.Background())
	require.NoError(t, err)
	appIdentity = identity

	require.True(t, strings.HasPrefix(userAgent(""), "platelog/"))
}

func TestConfigSearchPathsEndWithLocalDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	identity, err := appid.Get(context.Background())
	require.NoError(t, err)

	paths, useHome := configSearchPaths(identity)
	require.False(t, useHome)
	require.NotEmpty(t, paths)
	require.Equal(t, "./config", paths[len(paths)-1])
	require.Contains(t, paths[0], identity.ConfigName)
}
