// Package config resolves netconfd settings from flags, NETCONF_* environment
// variables, an optional YAML file and built-in defaults, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/imdario/mergo"

	"github.com/justinpopa/netconf-web/internal/logging"
	"github.com/justinpopa/netconf-web/internal/script"
	nctls "github.com/justinpopa/netconf-web/internal/tls"
)

type Config struct {
	Version        bool
	ConfigFile     string
	DataDir        string
	HTTPAddr       string
	HTTPSAddr      string
	TLSCertFile    string
	TLSKeyFile     string
	ACMEDomain     string
	ACMEEmail      string
	ACMEStaging    bool
	HTTPSRedirect  bool
	Script         string
	ScriptArgs     []string
	ScriptTimeout  time.Duration
	SilentFailures bool
	Title          string
	LogLevel       string
	LogFormat      string

	ACMEResolvers          []string
	ACMEPropagationDelay   time.Duration
	ACMEPropagationTimeout time.Duration
}

// Defaults fill whatever flags, environment and file leave unset.
func Defaults() Config {
	return Config{
		DataDir:       "./data",
		HTTPAddr:      ":8080",
		Script:        "netconfig",
		ScriptTimeout: 30 * time.Second,
		Title:         "Network Configuration",
		LogLevel:      "info",
		LogFormat:     logging.FormatText,

		ACMEResolvers:          slices.Clone(nctls.DefaultACMEResolvers),
		ACMEPropagationDelay:   nctls.DefaultPropagationDelay,
		ACMEPropagationTimeout: nctls.DefaultPropagationTimeout,
	}
}

// Loader holds the flag and environment layer so the file layer can be
// re-read without parsing the command line again.
type Loader struct {
	over Config
	err  error
}

// Parse binds the process command line. It exits on bad flags.
func Parse() *Loader {
	l, _ := NewLoader(flag.CommandLine, os.Args[1:])
	return l
}

// NewLoader registers the settings on fs and parses args.
func NewLoader(fs *flag.FlagSet, args []string) (*Loader, error) {
	l := &Loader{}
	c := &l.over
	var scriptArgs, acmeResolvers string

	d := Defaults()
	fs.BoolVar(&c.Version, "version", false, "print version and exit")
	fs.StringVar(&c.ConfigFile, "config", envOr("NETCONF_CONFIG", ""), "YAML config file (optional, watched for script changes)")
	fs.StringVar(&c.DataDir, "data-dir", envOr("NETCONF_DATA_DIR", ""), "data directory for certificates (default "+d.DataDir+")")
	fs.StringVar(&c.HTTPAddr, "http-addr", envOr("NETCONF_HTTP_ADDR", ""), "HTTP listen address (default "+d.HTTPAddr+")")
	fs.StringVar(&c.HTTPSAddr, "https-addr", envOr("NETCONF_HTTPS_ADDR", ""), "HTTPS listen address (disabled if empty)")
	fs.StringVar(&c.TLSCertFile, "tls-cert", envOr("NETCONF_TLS_CERT", ""), "TLS certificate file (auto-generate if empty)")
	fs.StringVar(&c.TLSKeyFile, "tls-key", envOr("NETCONF_TLS_KEY", ""), "TLS key file (auto-generate if empty)")
	fs.StringVar(&c.ACMEDomain, "acme-domain", envOr("NETCONF_ACME_DOMAIN", ""), "domain for ACME/Let's Encrypt certificate")
	fs.StringVar(&c.ACMEEmail, "acme-email", envOr("NETCONF_ACME_EMAIL", ""), "email for ACME account registration")
	fs.BoolVar(&c.ACMEStaging, "acme-staging", envOr("NETCONF_ACME_STAGING", "") != "", "use Let's Encrypt staging CA")
	fs.StringVar(&acmeResolvers, "acme-resolvers", envOr("NETCONF_ACME_RESOLVERS", ""), "comma-separated host:port DNS resolvers for ACME zone lookup (default "+strings.Join(d.ACMEResolvers, ",")+")")
	fs.DurationVar(&c.ACMEPropagationDelay, "acme-propagation-delay", 0, "wait before checking DNS-01 record propagation (default "+d.ACMEPropagationDelay.String()+")")
	fs.DurationVar(&c.ACMEPropagationTimeout, "acme-propagation-timeout", 0, "give up waiting for DNS-01 record propagation after this long (default "+d.ACMEPropagationTimeout.String()+")")
	fs.BoolVar(&c.HTTPSRedirect, "https-redirect", envOr("NETCONF_HTTPS_REDIRECT", "") != "", "redirect HTTP to HTTPS (/healthz excluded)")
	fs.StringVar(&c.Script, "script", envOr("NETCONF_SCRIPT", ""), "network configuration executable (default "+d.Script+")")
	fs.StringVar(&scriptArgs, "script-args", envOr("NETCONF_SCRIPT_ARGS", ""), "comma-separated arguments placed before mac and version")
	fs.DurationVar(&c.ScriptTimeout, "script-timeout", 0, "kill the script after this long (default "+d.ScriptTimeout.String()+")")
	fs.BoolVar(&c.SilentFailures, "silent-failures", envOr("NETCONF_SILENT_FAILURES", "") != "", "answer 200 with the script output even when it fails")
	fs.StringVar(&c.Title, "title", envOr("NETCONF_TITLE", ""), "form page title")
	fs.StringVar(&c.LogLevel, "log-level", envOr("NETCONF_LOG_LEVEL", ""), "log level: "+strings.Join(logging.Levels, ", ")+" (default "+d.LogLevel+")")
	fs.StringVar(&c.LogFormat, "log-format", envOr("NETCONF_LOG_FORMAT", ""), "log format: text or json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if scriptArgs != "" {
		c.ScriptArgs = strings.Split(scriptArgs, ",")
	}
	if acmeResolvers != "" {
		c.ACMEResolvers = strings.Split(acmeResolvers, ",")
	}
	for _, e := range []struct {
		dst *time.Duration
		key string
	}{
		{&c.ScriptTimeout, "NETCONF_SCRIPT_TIMEOUT"},
		{&c.ACMEPropagationDelay, "NETCONF_ACME_PROPAGATION_DELAY"},
		{&c.ACMEPropagationTimeout, "NETCONF_ACME_PROPAGATION_TIMEOUT"},
	} {
		if *e.dst != 0 {
			continue
		}
		v, err := envDuration(e.key)
		if err != nil {
			l.err = errors.Join(l.err, err)
			continue
		}
		*e.dst = v
	}
	return l, nil
}

// Load merges the layers and validates the result. It re-reads the config
// file on every call.
func (l *Loader) Load() (*Config, error) {
	if l.err != nil {
		return nil, l.err
	}
	c := l.over
	c.ScriptArgs = slices.Clone(c.ScriptArgs)
	c.ACMEResolvers = slices.Clone(c.ACMEResolvers)

	if c.ConfigFile != "" {
		f, err := readFile(c.ConfigFile)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(&c, f); err != nil {
			return nil, fmt.Errorf("merge config file: %w", err)
		}
	}
	if err := mergo.Merge(&c, Defaults()); err != nil {
		return nil, fmt.Errorf("merge defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Script) == "" {
		errs = append(errs, errors.New("script must not be empty"))
	}
	if c.ScriptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("script timeout must be positive, got %s", c.ScriptTimeout))
	}
	if !slices.Contains(logging.Levels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.LogFormat != logging.FormatText && c.LogFormat != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	for _, r := range c.ACMEResolvers {
		if _, _, err := net.SplitHostPort(r); err != nil {
			errs = append(errs, fmt.Errorf("acme resolver %q: %w", r, err))
		}
	}
	if c.ACMEPropagationDelay < 0 || c.ACMEPropagationTimeout < 0 {
		errs = append(errs, errors.New("acme propagation delay and timeout must not be negative"))
	}
	if c.HTTPSRedirect && c.HTTPSAddr == "" {
		errs = append(errs, errors.New("https-redirect requires https-addr"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ScriptSettings is the runner configuration carried by c.
func (c *Config) ScriptSettings() script.Settings {
	return script.Settings{
		Path:    c.Script,
		Args:    slices.Clone(c.ScriptArgs),
		Timeout: c.ScriptTimeout,
	}
}

type fileConfig struct {
	DataDir        string `json:"dataDir"`
	HTTPAddr       string `json:"httpAddr"`
	HTTPSAddr      string `json:"httpsAddr"`
	HTTPSRedirect  bool   `json:"httpsRedirect"`
	SilentFailures bool   `json:"silentFailures"`
	Title          string `json:"title"`
	TLS            struct {
		Cert string `json:"cert"`
		Key  string `json:"key"`
	} `json:"tls"`
	ACME struct {
		Domain             string   `json:"domain"`
		Email              string   `json:"email"`
		Staging            bool     `json:"staging"`
		Resolvers          []string `json:"resolvers"`
		PropagationDelay   string   `json:"propagationDelay"`
		PropagationTimeout string   `json:"propagationTimeout"`
	} `json:"acme"`
	Script struct {
		Path    string   `json:"path"`
		Args    []string `json:"args"`
		Timeout string   `json:"timeout"`
	} `json:"script"`
	Log struct {
		Level  string `json:"level"`
		Format string `json:"format"`
	} `json:"log"`
}

func readFile(path string) (Config, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(d, &f); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	c := Config{
		DataDir:        f.DataDir,
		HTTPAddr:       f.HTTPAddr,
		HTTPSAddr:      f.HTTPSAddr,
		HTTPSRedirect:  f.HTTPSRedirect,
		SilentFailures: f.SilentFailures,
		Title:          f.Title,
		TLSCertFile:    f.TLS.Cert,
		TLSKeyFile:     f.TLS.Key,
		ACMEDomain:     f.ACME.Domain,
		ACMEEmail:      f.ACME.Email,
		ACMEStaging:    f.ACME.Staging,
		ACMEResolvers:  f.ACME.Resolvers,
		Script:         f.Script.Path,
		ScriptArgs:     f.Script.Args,
		LogLevel:       f.Log.Level,
		LogFormat:      f.Log.Format,
	}
	for _, e := range []struct {
		dst   *time.Duration
		value string
		name  string
	}{
		{&c.ScriptTimeout, f.Script.Timeout, "script timeout"},
		{&c.ACMEPropagationDelay, f.ACME.PropagationDelay, "acme propagation delay"},
		{&c.ACMEPropagationTimeout, f.ACME.PropagationTimeout, "acme propagation timeout"},
	} {
		if e.value == "" {
			continue
		}
		if *e.dst, err = time.ParseDuration(e.value); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %s: %w", path, e.name, err)
		}
	}
	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
