// Package config implements global configuration options for the network
// map service.
package config

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/a8m/envsubst"
	"gopkg.in/yaml.v3"
)

// GlobalConfig holds the global configuration options.
var GlobalConfig Config

// Config is the top-level configuration structure.
type Config struct {
	// Port is the HTTP listen port.
	Port uint16 `yaml:"port"`

	// DBDir is the database-backed state directory.
	DBDir string `yaml:"db.dir"`
	// MigrateFSDir is the legacy filesystem-backed state directory the
	// migration orchestrator reads from at boot, if set.
	MigrateFSDir string `yaml:"migrate.fs.dir,omitempty"`

	// NotaryDir is the watched notary certificate directory.
	NotaryDir string `yaml:"notary.dir"`

	// CacheTimeout is the HTTP Cache-Control max-age advertised on the
	// network map response.
	CacheTimeout time.Duration `yaml:"cache.timeout"`
	// ParamUpdateDelay is the default activation delay for parameter
	// updates that don't specify an explicit deadline.
	ParamUpdateDelay time.Duration `yaml:"paramUpdate.delay"`
	// NetworkMapDelay is the map-rebuild debounce delay.
	NetworkMapDelay time.Duration `yaml:"networkMap.delay"`

	// Username and Password gate the admin API surface, if both are set.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// TLS, if true, serves over HTTPS using CertPath/KeyPath.
	TLS      bool   `yaml:"tls,omitempty"`
	CertPath string `yaml:"tls.cert.path,omitempty"`
	KeyPath  string `yaml:"tls.key.path,omitempty"`
	Hostname string `yaml:"hostname,omitempty"`

	// Doorman, Certman, and PKIX are feature toggles for collaborators
	// that are out of scope for the core service and only consulted as
	// external gates, never implemented here.
	Doorman bool `yaml:"doorman,omitempty"`
	Certman bool `yaml:"certman,omitempty"`
	PKIX    bool `yaml:"pkix,omitempty"`

	// MongoConnectionString configures an external document-database
	// bootstrap collaborator; the literal "embed" selects an embedded
	// instance. Out of scope for core: only the wiring is validated.
	MongoConnectionString string `yaml:"mongodb.connectionString,omitempty"`
}

// Logging (log.level, log.format) is bound through pflag/viper flags in
// cmd/netmapd, not through this struct, matching how oasis-node/cmd/common
// wires its own logging flags.

// Validate validates the configuration settings.
func (c *Config) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("port must be non-zero")
	}
	if c.DBDir == "" {
		return fmt.Errorf("db.dir must be set")
	}
	if c.NotaryDir == "" {
		return fmt.Errorf("notary.dir must be set")
	}
	if c.CacheTimeout <= 0 {
		return fmt.Errorf("cache.timeout must be positive")
	}
	if c.ParamUpdateDelay <= 0 {
		return fmt.Errorf("paramUpdate.delay must be positive")
	}
	if c.NetworkMapDelay <= 0 {
		return fmt.Errorf("networkMap.delay must be positive")
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("username and password must both be set or both be empty")
	}
	if c.TLS && (c.CertPath == "" || c.KeyPath == "") {
		return fmt.Errorf("tls.cert.path and tls.key.path are required when tls is enabled")
	}
	return nil
}

// DefaultConfig returns the default configuration settings.
func DefaultConfig() Config {
	return Config{
		Port:             8080,
		DBDir:            ".db",
		NotaryDir:        "notary-certificates",
		CacheTimeout:     2 * time.Second,
		ParamUpdateDelay: 10 * time.Second,
		NetworkMapDelay:  1 * time.Second,
	}
}

// InitConfig initializes the global configuration from the given file.
func InitConfig(cfgFile string) error {
	// Read the specified config file and substitute environment variables.
	cfg, err := envsubst.ReadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("unable to read config file '%s': %w", cfgFile, err)
	}

	// Reset the global config and apply changes from the config file.
	// Report error if any of the fields from the input file are unknown.
	GlobalConfig = DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(cfg))
	dec.KnownFields(true)
	err = dec.Decode(&GlobalConfig)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to load config file '%s': %w", cfgFile, err)
	}

	// Validate config file.
	return GlobalConfig.Validate()
}

func init() {
	GlobalConfig = DefaultConfig()
}
