package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	ServiceName       string
	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string

	// StagingDir holds uploaded archives until they are extracted.
	StagingDir string
	// ExportRoot is where sites are extracted, one directory per tenant.
	ExportRoot string

	MySQLDSN      string
	MySQLHost     string
	MySQLPort     string
	MySQLUser     string
	MySQLPassword string

	MySQLTLSCert       string
	MySQLTLSKey        string
	MySQLTLSCACert     string
	MySQLTLSServerName string

	// HistoryDatabaseURL points at the Postgres database that records
	// provision attempts. History is disabled when empty.
	HistoryDatabaseURL string

	MaxUploadBytes int64
	// MaxExtractBytes caps the uncompressed size of an archive. Zero disables
	// the cap.
	MaxExtractBytes      int64
	MaxConcurrentBatches int64
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:        getEnv("SERVICE_NAME", "installer-api"),
		HTTPListenAddr:     getEnv("HTTP_LISTEN_ADDR", ":3333"),
		MetricsListenAddr:  getEnv("METRICS_LISTEN_ADDR", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		StagingDir:         getEnv("TEMP_PATHS", "temp"),
		ExportRoot:         getEnv("EXPORT_LOCATION", ""),
		MySQLDSN:           getEnv("MYSQL_DSN", ""),
		MySQLHost:          getEnv("DB_HOST", "localhost"),
		MySQLPort:          getEnv("DB_PORT", "3306"),
		MySQLUser:          getEnv("DB_USER", ""),
		MySQLPassword:      getEnv("DB_PASSWORD", ""),
		MySQLTLSCert:       getEnv("MYSQL_TLS_CERT", ""),
		MySQLTLSKey:        getEnv("MYSQL_TLS_KEY", ""),
		MySQLTLSCACert:     getEnv("MYSQL_TLS_CA_CERT", ""),
		MySQLTLSServerName: getEnv("MYSQL_TLS_SERVER_NAME", ""),
		HistoryDatabaseURL: getEnv("HISTORY_DATABASE_URL", ""),
	}

	var err error
	if cfg.MaxUploadBytes, err = getEnvInt("MAX_UPLOAD_BYTES", 512<<20); err != nil {
		return nil, err
	}
	if cfg.MaxExtractBytes, err = getEnvInt("MAX_EXTRACT_BYTES", 4<<30); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentBatches, err = getEnvInt("MAX_CONCURRENT_BATCHES", 4); err != nil {
		return nil, err
	}

	if cfg.StagingDir, err = filepath.Abs(cfg.StagingDir); err != nil {
		return nil, fmt.Errorf("resolve TEMP_PATHS: %w", err)
	}
	if cfg.ExportRoot != "" {
		if cfg.ExportRoot, err = filepath.Abs(cfg.ExportRoot); err != nil {
			return nil, fmt.Errorf("resolve EXPORT_LOCATION: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks the settings every installer binary needs.
func (c *Config) Validate() error {
	var missing []string
	if c.ExportRoot == "" {
		missing = append(missing, "EXPORT_LOCATION")
	}
	if c.MySQLDSN == "" && c.MySQLUser == "" {
		missing = append(missing, "MYSQL_DSN or DB_USER")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if (c.MySQLTLSCert == "") != (c.MySQLTLSKey == "") {
		return fmt.Errorf("MYSQL_TLS_CERT and MYSQL_TLS_KEY must both be set")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.MaxExtractBytes < 0 {
		return fmt.Errorf("MAX_EXTRACT_BYTES must not be negative")
	}
	if c.MaxConcurrentBatches <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_BATCHES must be positive")
	}
	return nil
}

// MySQLAddr returns host:port built from DB_HOST and DB_PORT.
func (c *Config) MySQLAddr() string {
	return net.JoinHostPort(c.MySQLHost, c.MySQLPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
