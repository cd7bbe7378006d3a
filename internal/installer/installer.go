// Package installer provisions self-hosted site instances from staged
// archives. A run extracts the archive, creates the tenant database, imports
// the seed SQL, issues database credentials and points the site
// configuration at the new database.
//
// Runs are not transactional. A failure leaves the effects of earlier steps
// in place, and re-running a tenant re-imports the seed SQL, which may fail
// or duplicate rows if the database was already seeded.
package installer

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/edvin/siteinstaller/internal/archive"
	"github.com/edvin/siteinstaller/internal/history"
	"github.com/edvin/siteinstaller/internal/wpconfig"
)

// SiteSubdir is the directory under each tenant that receives the site files.
const SiteSubdir = "public_html"

// DB is the connection a batch runs on. UseDatabase changes state for the
// whole connection, so one DB must never be shared by concurrent batches.
type DB interface {
	Connect(ctx context.Context) error
	Exec(ctx context.Context, sql string) error
	UseDatabase(ctx context.Context, name string) error
}

// Extractor unpacks an archive into a directory that does not exist yet.
type Extractor interface {
	Extract(ctx context.Context, archivePath, dest string) error
}

// ConfigRewriter substitutes database settings into site configuration.
type ConfigRewriter interface {
	Rewrite(src []byte, s wpconfig.Settings) []byte
}

// Config holds the filesystem roots a Pipeline works in.
type Config struct {
	// StagingDir holds uploaded archives.
	StagingDir string
	// ExportRoot receives one directory per tenant.
	ExportRoot string
	// MaxExtractBytes caps the uncompressed size of one archive. Zero means
	// no limit.
	MaxExtractBytes int64
}

// Pipeline runs provisioning for one tenant at a time. It keeps no state
// between runs and is safe to share between batches that use different DBs.
type Pipeline struct {
	cfg         Config
	logger      zerolog.Logger
	extractor   Extractor
	rewriter    ConfigRewriter
	recorder    history.Recorder
	credentials CredentialFunc
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func WithExtractor(e Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

func WithConfigRewriter(r ConfigRewriter) Option {
	return func(p *Pipeline) { p.rewriter = r }
}

func WithRecorder(r history.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithCredentials overrides how RunBatch derives database credentials from
// an identifier.
func WithCredentials(f CredentialFunc) Option {
	return func(p *Pipeline) { p.credentials = f }
}

// New creates a Pipeline with the real extractor and wp-config rewriter.
func New(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:         cfg,
		logger:      zerolog.Nop(),
		extractor:   archive.NewExtractor(archive.WithMaxBytes(cfg.MaxExtractBytes)),
		rewriter:    wpconfig.NewRewriter(),
		recorder:    history.NopRecorder{},
		credentials: SameAsIdentifier,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "installer").Logger()
	return p
}

// ArchivePath returns where an uploaded archive is staged.
func (p *Pipeline) ArchivePath(archiveFile string) string {
	return filepath.Join(p.cfg.StagingDir, archiveFile)
}

// SiteDir returns the extraction directory for a tenant.
func (p *Pipeline) SiteDir(identifier string) string {
	return filepath.Join(p.cfg.ExportRoot, identifier, SiteSubdir)
}
