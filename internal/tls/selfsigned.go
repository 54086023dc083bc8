package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
)

const (
	selfSignedLifetime = 365 * 24 * time.Hour
	renewBefore        = 30 * 24 * time.Hour
)

// LoadOrGenerateSelfSigned serves dataDir/tls/{cert,key}.pem, replacing them
// when they are missing, unreadable, within 30 days of expiry, or issued
// for names other than sans.
func LoadOrGenerateSelfSigned(log logr.Logger, dataDir string, sans SANs) (*tls.Config, error) {
	certPath := filepath.Join(dataDir, "tls", "cert.pem")
	keyPath := filepath.Join(dataDir, "tls", "key.pem")

	log.V(1).Info("self-signed SANs", "dns", sans.DNS, "ips", fmt.Sprint(sans.IPs))

	cert, reason := loadSelfSigned(certPath, keyPath, sans)
	if reason == "" {
		log.Info("reusing self-signed certificate", "path", certPath)
		return serverConfig(cert), nil
	}

	log.Info("generating self-signed certificate", "reason", reason, "path", certPath)
	cert, err := generateSelfSigned(certPath, keyPath, sans)
	if err != nil {
		return nil, err
	}
	return serverConfig(cert), nil
}

// loadSelfSigned returns a non-empty reason when the stored pair must be
// replaced.
func loadSelfSigned(certPath, keyPath string, sans SANs) (tls.Certificate, string) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, "no usable certificate"
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return tls.Certificate{}, "no usable certificate"
	}
	if time.Until(leaf.NotAfter) < renewBefore {
		return tls.Certificate{}, "expiring soon"
	}
	if !sans.covers(leaf) {
		return tls.Certificate{}, "names changed"
	}
	return cert, ""
}

func generateSelfSigned(certPath, keyPath string, sans SANs) (tls.Certificate, error) {
	if err := os.MkdirAll(filepath.Dir(certPath), 0o755); err != nil {
		return tls.Certificate{}, fmt.Errorf("create TLS dir: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate serial: %w", err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "netconf"},
		NotBefore:    now.Add(-time.Minute),
		NotAfter:     now.Add(selfSignedLifetime),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     sans.DNS,
		IPAddresses:  sans.netIPs(),
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("marshal key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return tls.Certificate{}, fmt.Errorf("write cert: %w", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return tls.Certificate{}, fmt.Errorf("write key: %w", err)
	}

	return tls.X509KeyPair(certPEM, keyPEM)
}
