package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsMismatchedCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Username = "admin"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsTLSWithoutCertPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TLS = true
	require.Error(t, cfg.Validate())
}

func TestInitConfigLoadsOverridesAndSubstitutesEnv(t *testing.T) {
	require := require.New(t)

	require.NoError(os.Setenv("NETMAPD_TEST_PORT", "9090"))
	defer os.Unsetenv("NETMAPD_TEST_PORT")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "netmapd.yaml")
	contents := "port: ${NETMAPD_TEST_PORT}\ndb.dir: /var/lib/netmapd\nnotary.dir: /etc/netmapd/notaries\n"
	require.NoError(os.WriteFile(cfgPath, []byte(contents), 0o600))

	require.NoError(InitConfig(cfgPath))
	require.EqualValues(9090, GlobalConfig.Port)
	require.Equal("/var/lib/netmapd", GlobalConfig.DBDir)
	require.Equal("/etc/netmapd/notaries", GlobalConfig.NotaryDir)
	require.Equal(DefaultConfig().CacheTimeout, GlobalConfig.CacheTimeout, "unset fields keep their defaults")
}

func TestInitConfigRejectsUnknownFields(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "netmapd.yaml")
	require.NoError(os.WriteFile(cfgPath, []byte("not.a.real.field: true\n"), 0o600))

	require.Error(InitConfig(cfgPath))
}
