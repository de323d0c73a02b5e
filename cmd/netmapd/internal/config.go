package common

import (
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/oasisprotocol/netmapd/config"
)

const (
	cfgConfigFile      = "config"
	cfgPort            = "port"
	cfgDBDir           = "db.dir"
	cfgMigrateFSDir    = "migrate.fs.dir"
	cfgNotaryDir       = "notary.dir"
	cfgCacheTimeout    = "cache.timeout"
	cfgParamUpdateWait = "paramUpdate.delay"
	cfgNetworkMapWait  = "networkMap.delay"
	cfgUsername        = "username"
	cfgPassword        = "password"
	cfgTLS             = "tls"
	cfgTLSCertPath     = "tls.cert.path"
	cfgTLSKeyPath      = "tls.key.path"
	cfgHostname        = "hostname"
)

// ConfigFlags has the configuration file and override flags.
var ConfigFlags = flag.NewFlagSet("", flag.ContinueOnError)

func initConfigFlags() {
	ConfigFlags.String(cfgConfigFile, "", "path to a YAML configuration file")
	ConfigFlags.Uint16(cfgPort, 0, "HTTP listen port")
	ConfigFlags.String(cfgDBDir, "", "database-backed state directory")
	ConfigFlags.String(cfgMigrateFSDir, "", "legacy filesystem-backed state directory to migrate from")
	ConfigFlags.String(cfgNotaryDir, "", "watched notary certificate directory")
	ConfigFlags.Duration(cfgCacheTimeout, 0, "HTTP cache max-age")
	ConfigFlags.Duration(cfgParamUpdateWait, 0, "default parameter update activation delay")
	ConfigFlags.Duration(cfgNetworkMapWait, 0, "network map rebuild debounce delay")
	ConfigFlags.String(cfgUsername, "", "admin API username")
	ConfigFlags.String(cfgPassword, "", "admin API password")
	ConfigFlags.Bool(cfgTLS, false, "serve the admin/publish API over TLS")
	ConfigFlags.String(cfgTLSCertPath, "", "TLS certificate path")
	ConfigFlags.String(cfgTLSKeyPath, "", "TLS key path")
	ConfigFlags.String(cfgHostname, "", "externally reachable hostname")

	_ = viper.BindPFlags(ConfigFlags)
}

// loadConfig builds the effective Config from an optional config file
// followed by any CLI flag overrides that were explicitly set.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	if cfgFile := viper.GetString(cfgConfigFile); cfgFile != "" {
		if err := config.InitConfig(cfgFile); err != nil {
			return nil, err
		}
		cfg = config.GlobalConfig
	}

	if viper.IsSet(cfgPort) {
		cfg.Port = uint16(viper.GetUint32(cfgPort))
	}
	if viper.IsSet(cfgDBDir) {
		cfg.DBDir = viper.GetString(cfgDBDir)
	}
	if viper.IsSet(cfgMigrateFSDir) {
		cfg.MigrateFSDir = viper.GetString(cfgMigrateFSDir)
	}
	if viper.IsSet(cfgNotaryDir) {
		cfg.NotaryDir = viper.GetString(cfgNotaryDir)
	}
	if d := viper.GetDuration(cfgCacheTimeout); d > 0 {
		cfg.CacheTimeout = d
	}
	if d := viper.GetDuration(cfgParamUpdateWait); d > 0 {
		cfg.ParamUpdateDelay = d
	}
	if d := viper.GetDuration(cfgNetworkMapWait); d > 0 {
		cfg.NetworkMapDelay = d
	}
	if viper.IsSet(cfgUsername) {
		cfg.Username = viper.GetString(cfgUsername)
	}
	if viper.IsSet(cfgPassword) {
		cfg.Password = viper.GetString(cfgPassword)
	}
	if viper.IsSet(cfgTLS) {
		cfg.TLS = viper.GetBool(cfgTLS)
	}
	if viper.IsSet(cfgTLSCertPath) {
		cfg.CertPath = viper.GetString(cfgTLSCertPath)
	}
	if viper.IsSet(cfgTLSKeyPath) {
		cfg.KeyPath = viper.GetString(cfgTLSKeyPath)
	}
	if viper.IsSet(cfgHostname) {
		cfg.Hostname = viper.GetString(cfgHostname)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
