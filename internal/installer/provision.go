package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/siteinstaller/internal/metrics"
	"github.com/edvin/siteinstaller/internal/model"
	"github.com/edvin/siteinstaller/internal/platform"
	"github.com/edvin/siteinstaller/internal/wpconfig"
)

var errNotFound = errors.New("not found")

// step is one stage of a run. A failing step ends the run with its code.
type step struct {
	name string
	code model.ResultCode
	run  func(ctx context.Context) error
}

// run carries the resolved paths and intermediate data of one Provision call.
type run struct {
	p      *Pipeline
	db     DB
	req    model.ProvisionRequest
	logger zerolog.Logger

	archivePath string
	siteDir     string
	seedPath    string
	configPath  string

	seed       []byte
	configMode os.FileMode
	configData []byte
}

// Provision runs every step for one tenant and returns the outcome. It never
// panics and never returns a Go error: all failures are folded into the code.
func (p *Pipeline) Provision(ctx context.Context, db DB, req model.ProvisionRequest) model.ResultCode {
	return p.provision(ctx, db, platform.NewID(), req)
}

func (p *Pipeline) provision(ctx context.Context, db DB, batchID string, req model.ProvisionRequest) (code model.ResultCode) {
	r := &run{
		p:      p,
		db:     db,
		req:    req,
		logger: p.logger.With().Str("batch_id", batchID).Str("identifier", req.Identifier).Logger(),
	}

	attempt := &model.ProvisionAttempt{
		ID:          platform.NewID(),
		BatchID:     batchID,
		Identifier:  req.Identifier,
		ArchiveFile: req.ArchiveFile,
		SeedFile:    req.SeedFile,
		Status:      model.StatusProvisioning,
		StartedAt:   time.Now().UTC(),
	}
	if err := p.recorder.Start(ctx, attempt); err != nil {
		r.logger.Warn().Err(err).Msg("failed to record provision start")
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Msg("provisioning panicked")
			code = model.CodeInternalError
		}
		metrics.ProvisionsTotal.WithLabelValues(code.String()).Inc()
		if err := p.recorder.Finish(ctx, attempt.ID, code, time.Now().UTC()); err != nil {
			r.logger.Warn().Err(err).Msg("failed to record provision result")
		}
	}()

	r.logger.Info().
		Str("archive", req.ArchiveFile).
		Str("seed", req.SeedFile).
		Str("database", req.DBName).
		Str("username", req.DBUser).
		Msg("provisioning tenant")

	for _, s := range r.steps() {
		start := time.Now()
		err := s.run(ctx)
		metrics.StepDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
		if err != nil {
			r.logger.Error().Err(err).Str("step", s.name).Str("code", s.code.String()).Msg("provisioning step failed")
			return s.code
		}
	}

	r.logger.Info().Str("site_dir", r.siteDir).Msg("tenant provisioned")
	return model.CodeSuccess
}

func (r *run) steps() []step {
	return []step{
		{"validate", model.CodeInvalidRequest, r.validate},
		{"locate_archive", model.CodeFileNotFound, r.locateArchive},
		{"extract", model.CodeExtractionError, r.extract},
		{"connect", model.CodeDBConnectError, r.connect},
		{"create_database", model.CodeDBCreationError, r.createDatabase},
		{"use_database", model.CodeDBChangeError, r.useDatabase},
		{"locate_seed", model.CodeSQLFileNotFound, r.locateSeed},
		{"read_seed", model.CodeSQLReadError, r.readSeed},
		{"import_seed", model.CodeSQLExecutionError, r.importSeed},
		{"create_user", model.CodeUserCreationError, r.createUser},
		{"read_config", model.CodeConfigReadError, r.readConfig},
		{"write_config", model.CodeConfigWriteError, r.writeConfig},
	}
}

func (r *run) validate(context.Context) error {
	return ValidateRequest(r.req)
}

func (r *run) locateArchive(context.Context) error {
	r.archivePath = r.p.ArchivePath(r.req.ArchiveFile)
	r.siteDir = r.p.SiteDir(r.req.Identifier)
	r.logger.Debug().Str("archive_path", r.archivePath).Str("site_dir", r.siteDir).Msg("resolved paths")

	if !exists(r.archivePath) {
		return fmt.Errorf("archive %s: %w", r.archivePath, errNotFound)
	}
	return nil
}

// extract unpacks the archive unless the site directory already exists. An
// existing directory is reused as-is, without checking whether it is stale.
func (r *run) extract(ctx context.Context) error {
	if exists(r.siteDir) {
		r.logger.Info().Str("site_dir", r.siteDir).Msg("site directory exists, skipping extraction")
		return nil
	}
	r.logger.Info().Str("site_dir", r.siteDir).Msg("extracting archive")
	if err := r.p.extractor.Extract(ctx, r.archivePath, r.siteDir); err != nil {
		return fmt.Errorf("extract %s: %w", r.archivePath, err)
	}
	return nil
}

func (r *run) connect(ctx context.Context) error {
	return r.db.Connect(ctx)
}

func (r *run) createDatabase(ctx context.Context) error {
	if err := r.db.Exec(ctx, createDatabaseSQL(r.req.DBName)); err != nil {
		return err
	}
	r.logger.Info().Str("database", r.req.DBName).Msg("database created")
	return nil
}

func (r *run) useDatabase(ctx context.Context) error {
	return r.db.UseDatabase(ctx, r.req.DBName)
}

func (r *run) locateSeed(context.Context) error {
	r.seedPath = filepath.Join(r.siteDir, r.req.SeedFile+".sql")
	r.logger.Debug().Str("seed_path", r.seedPath).Msg("resolved seed path")
	if !exists(r.seedPath) {
		return fmt.Errorf("seed %s: %w", r.seedPath, errNotFound)
	}
	return nil
}

func (r *run) readSeed(context.Context) error {
	data, err := os.ReadFile(r.seedPath)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	r.seed = data
	return nil
}

func (r *run) importSeed(ctx context.Context) error {
	if err := r.db.Exec(ctx, string(r.seed)); err != nil {
		return fmt.Errorf("import seed: %w", err)
	}
	r.logger.Info().Int("bytes", len(r.seed)).Msg("seed data imported")
	r.seed = nil
	return nil
}

// createUser issues the three credential statements. A failure part way
// leaves the earlier statements applied.
func (r *run) createUser(ctx context.Context) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"create user", createUserSQL(r.req.DBUser, r.req.DBPassword)},
		{"grant privileges", grantAllSQL(r.req.DBName, r.req.DBUser)},
		{"flush privileges", flushPrivilegesSQL},
	}
	for _, stmt := range stmts {
		if err := r.db.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("%s: %w", stmt.name, err)
		}
	}
	r.logger.Info().
		Str("username", r.req.DBUser).
		Str("database", r.req.DBName).
		Msg("database user created")
	return nil
}

func (r *run) readConfig(context.Context) error {
	r.configPath = filepath.Join(r.siteDir, wpconfig.FileName)
	info, err := os.Stat(r.configPath)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	data, err := os.ReadFile(r.configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	r.configMode = info.Mode().Perm()
	r.configData = data
	return nil
}

func (r *run) writeConfig(context.Context) error {
	out := r.p.rewriter.Rewrite(r.configData, wpconfig.Settings{
		DBName:     r.req.DBName,
		DBUser:     r.req.DBUser,
		DBPassword: r.req.DBPassword,
	})
	if err := os.WriteFile(r.configPath, out, r.configMode); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	r.logger.Info().Str("config_path", r.configPath).Msg("site configuration updated")
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
