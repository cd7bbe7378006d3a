package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// MySQLTLS builds a *tls.Config from the MySQL TLS fields.
// Returns nil, nil if neither a client cert nor a CA is configured.
func (c *Config) MySQLTLS() (*tls.Config, error) {
	if c.MySQLTLSCert == "" && c.MySQLTLSKey == "" && c.MySQLTLSCACert == "" {
		return nil, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.MySQLTLSCert != "" || c.MySQLTLSKey != "" {
		cert, err := tls.LoadX509KeyPair(c.MySQLTLSCert, c.MySQLTLSKey)
		if err != nil {
			return nil, fmt.Errorf("load mysql client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if c.MySQLTLSCACert != "" {
		caPEM, err := os.ReadFile(c.MySQLTLSCACert)
		if err != nil {
			return nil, fmt.Errorf("read mysql CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse mysql CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	if c.MySQLTLSServerName != "" {
		tlsConfig.ServerName = c.MySQLTLSServerName
	}

	return tlsConfig, nil
}
