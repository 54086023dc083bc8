// Package tls provides the certificate for netconfd's HTTPS listener.
package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// Options holds all TLS-related configuration.
type Options struct {
	Log         logr.Logger
	DataDir     string
	CertFile    string
	KeyFile     string
	ACMEDomain  string
	ACMEEmail   string
	ACMEStaging bool

	ACMEResolvers          []string
	ACMEPropagationDelay   time.Duration
	ACMEPropagationTimeout time.Duration
}

// ProvideTLS returns a *tls.Config based on the following decision tree:
//  1. ACME domain set → obtain cert via CertMagic with Route53 DNS-01
//  2. Cert + key files provided → load user-supplied keypair
//  3. Otherwise → self-signed certificate under DataDir covering local names
func ProvideTLS(ctx context.Context, opts Options) (*tls.Config, error) {
	log := opts.Log
	if opts.ACMEDomain != "" {
		log.Info("using ACME provider", "domain", opts.ACMEDomain)
		return NewACMETLS(ctx, ACMEConfig{
			Log:     log,
			Domain:  opts.ACMEDomain,
			Email:   opts.ACMEEmail,
			Staging: opts.ACMEStaging,
			DataDir: opts.DataDir,

			Resolvers:          opts.ACMEResolvers,
			PropagationDelay:   opts.ACMEPropagationDelay,
			PropagationTimeout: opts.ACMEPropagationTimeout,
		})
	}

	if opts.CertFile != "" || opts.KeyFile != "" {
		if opts.CertFile == "" || opts.KeyFile == "" {
			return nil, fmt.Errorf("tls-cert and tls-key must be set together")
		}
		log.Info("using user-provided certificate", "cert", opts.CertFile)
		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS keypair: %w", err)
		}
		return serverConfig(cert), nil
	}

	log.Info("using self-signed certificate")
	return LoadOrGenerateSelfSigned(log, opts.DataDir, DiscoverSANs())
}

func serverConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}
