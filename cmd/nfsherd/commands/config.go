package commands

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"
	flag "github.com/spf13/pflag"
)

// Config is the daemon configuration, loaded from a YAML file with a few
// flag overrides on top.
type Config struct {
	// Listen is the signal API bind address.
	Listen string `yaml:"listen"`
	// Leader marks this process as the holder of write authority over the
	// shared relation state. Leadership is decided outside this daemon.
	Leader bool `yaml:"leader"`
	// RequeueSeconds is the redelivery interval for deferred signals.
	RequeueSeconds int `yaml:"requeue_seconds"`
	// ExecTimeoutSeconds bounds each external command invocation.
	ExecTimeoutSeconds int `yaml:"exec_timeout_seconds"`
	// CephConf is the path of the rendered ceph.conf.
	CephConf string `yaml:"ceph_conf"`
	// Roster optionally fixes the candidate host universe. When empty the
	// universe is derived from the service inventory locations.
	Roster []string `yaml:"roster"`

	Cluster ClusterConfig `yaml:"cluster"`
	Redis   RedisConfig   `yaml:"redis"`
}

// ClusterConfig points at the storage cluster management API.
type ClusterConfig struct {
	ApiUrl   string `yaml:"api_url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// RedisConfig points at the shared relation store.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

func DefaultConfig() Config {
	return Config{
		Listen:             ":8520",
		RequeueSeconds:     30,
		ExecTimeoutSeconds: 180,
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			KeyPrefix: "nfsherd",
		},
	}
}

// LoadConfig reads the YAML file over the defaults. An empty path returns
// the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) RequeueInterval() time.Duration {
	return time.Duration(c.RequeueSeconds) * time.Second
}

func (c Config) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSeconds) * time.Second
}

var (
	configPath string
	nodename   string
	ifname     string
)

func ApplyConfigPath(flagset *flag.FlagSet) {
	flagset.StringVar(&configPath, "config", "", "path of the yaml configuration file")
}

func ApplyNodeName(flagset *flag.FlagSet) {
	flagset.StringVar(&nodename, "node-name", "", "node name, defaults to the hostname")
}

func ApplyIfName(flagset *flag.FlagSet) {
	flagset.StringVar(&ifname, "public-if-name", "", "network interface carrying the public address")
}
