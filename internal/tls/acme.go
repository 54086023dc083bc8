package tls

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/go-logr/logr"
	"github.com/libdns/route53"
)

// Defaults for the Route53 DNS-01 challenge.
var DefaultACMEResolvers = []string{"8.8.8.8:53", "1.1.1.1:53"}

const (
	DefaultPropagationDelay   = 30 * time.Second
	DefaultPropagationTimeout = 2 * time.Minute
)

// ACMEConfig holds configuration for ACME certificate management. Zero
// Resolvers, PropagationDelay and PropagationTimeout take the defaults above.
type ACMEConfig struct {
	Log     logr.Logger
	Domain  string
	Email   string
	Staging bool
	DataDir string

	// Resolvers answer the SOA lookups that locate the hosted zone. Public
	// resolvers keep a split-horizon local DNS from pointing at the wrong zone.
	Resolvers []string
	// PropagationDelay is waited out after the TXT record is written, before
	// propagation is polled.
	PropagationDelay   time.Duration
	PropagationTimeout time.Duration
}

func (c ACMEConfig) withDefaults() ACMEConfig {
	if len(c.Resolvers) == 0 {
		c.Resolvers = DefaultACMEResolvers
	}
	c.Resolvers = slices.Clone(c.Resolvers)
	if c.PropagationDelay == 0 {
		c.PropagationDelay = DefaultPropagationDelay
	}
	if c.PropagationTimeout == 0 {
		c.PropagationTimeout = DefaultPropagationTimeout
	}
	return c
}

func (c ACMEConfig) caURL() string {
	if c.Staging {
		return certmagic.LetsEncryptStagingCA
	}
	return certmagic.LetsEncryptProductionCA
}

// newACMEMagic builds the CertMagic config: file storage under
// DataDir/certmagic and a single Let's Encrypt issuer solving DNS-01 through
// Route53. Nothing is contacted until certificates are managed.
func newACMEMagic(cfg ACMEConfig) (*certmagic.Config, error) {
	if cfg.Domain == "" {
		return nil, errors.New("acme: domain is required")
	}
	cfg = cfg.withDefaults()

	magic := certmagic.NewDefault()
	magic.Storage = &certmagic.FileStorage{
		Path: filepath.Join(cfg.DataDir, "certmagic"),
	}
	issuer := certmagic.NewACMEIssuer(magic, certmagic.ACMEIssuer{
		CA:     cfg.caURL(),
		Email:  cfg.Email,
		Agreed: true,
		DNS01Solver: &certmagic.DNS01Solver{
			DNSManager: certmagic.DNSManager{
				DNSProvider:        &route53.Provider{},
				Resolvers:          cfg.Resolvers,
				PropagationDelay:   cfg.PropagationDelay,
				PropagationTimeout: cfg.PropagationTimeout,
			},
		},
	})
	magic.Issuers = []certmagic.Issuer{issuer}
	return magic, nil
}

// NewACMETLS obtains a certificate for cfg.Domain and returns a config that
// serves and renews it. Route53 credentials come from the standard AWS
// environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY,
// AWS_REGION) or the instance role.
func NewACMETLS(ctx context.Context, cfg ACMEConfig) (*tls.Config, error) {
	magic, err := newACMEMagic(cfg)
	if err != nil {
		return nil, err
	}

	log := cfg.Log.WithValues("domain", cfg.Domain)
	log.Info("obtaining ACME certificate", "staging", cfg.Staging, "ca", cfg.caURL())
	if err := magic.ManageSync(ctx, []string{cfg.Domain}); err != nil {
		return nil, fmt.Errorf("certmagic manage %s: %w", cfg.Domain, err)
	}
	log.Info("ACME certificate ready")

	tlsCfg := magic.TLSConfig()
	tlsCfg.NextProtos = []string{"h2", "http/1.1"}
	tlsCfg.MinVersion = tls.VersionTLS12
	return tlsCfg, nil
}
