package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/edvin/siteinstaller/internal/api/request"
	"github.com/edvin/siteinstaller/internal/api/response"
	"github.com/edvin/siteinstaller/internal/archive"
	"github.com/edvin/siteinstaller/internal/installer"
	"github.com/edvin/siteinstaller/internal/model"
	"github.com/edvin/siteinstaller/internal/platform"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// Batcher runs one provisioning batch on a database session.
type Batcher interface {
	RunBatch(ctx context.Context, db installer.DB, archiveFile, seedFile string, identifiers []string) model.BatchResult
}

// Session is a database session owned by a single batch.
type Session interface {
	installer.DB
	Close() error
}

// SessionFunc opens a fresh session for a batch.
type SessionFunc func() Session

// ProvisionConfig holds the limits of the provisioning endpoint.
type ProvisionConfig struct {
	StagingDir     string
	MaxUploadBytes int64
	MaxBatches     int64
}

type Provision struct {
	batcher  Batcher
	sessions SessionFunc
	cfg      ProvisionConfig
	sem      *semaphore.Weighted
}

func NewProvision(batcher Batcher, sessions SessionFunc, cfg ProvisionConfig) *Provision {
	if cfg.MaxBatches <= 0 {
		cfg.MaxBatches = 1
	}
	return &Provision{
		batcher:  batcher,
		sessions: sessions,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.MaxBatches),
	}
}

// Create godoc
//
//	@Summary		Provision sites from an uploaded archive
//	@Description	Stages the archive and provisions every listed account in order.
//	@Tags			Provisions
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			zipFile		formData	file	true	"Site archive"
//	@Param			accounts	formData	string	true	"Comma-separated account identifiers"
//	@Param			sqlFileName	formData	string	true	"Seed SQL base name inside the archive"
//	@Success		201	{object}	model.BatchResult
//	@Failure		400	{object}	response.ErrorCode
//	@Failure		500	{object}	response.ErrorCode
//	@Router			/provisions [post]
func (h *Provision) Create(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		logger.Warn().Err(err).Msg("rejecting upload: unreadable multipart form")
		response.WriteErrorCode(w, http.StatusBadRequest, model.CodeInvalidRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(request.FieldArchive)
	if err != nil {
		logger.Warn().Err(err).Msg("rejecting upload: no archive")
		response.WriteErrorCode(w, http.StatusBadRequest, model.CodeInvalidRequest)
		return
	}
	defer file.Close()

	archiveFile := filepath.Base(header.Filename)
	if err := installer.ValidateArchiveName(archiveFile); err != nil {
		logger.Warn().Err(err).Msg("rejecting upload")
		response.WriteErrorCode(w, http.StatusBadRequest, model.CodeInvalidRequest)
		return
	}
	if !archive.Supported(archiveFile) {
		logger.Warn().Str("archive", archiveFile).Msg("rejecting upload: unsupported archive format")
		response.WriteErrorCode(w, http.StatusBadRequest, model.CodeInvalidRequest)
		return
	}

	req := request.ParseProvision(r)
	if err := request.Validate(&req); err != nil {
		logger.Warn().Err(err).Str("archive", archiveFile).Msg("rejecting upload")
		response.WriteErrorCode(w, http.StatusBadRequest, model.CodeInvalidRequest)
		return
	}

	// Staged names are unique per request.
	stagedName := platform.NewID() + "-" + archiveFile
	if err := installer.ValidateArchiveName(stagedName); err != nil {
		logger.Warn().Err(err).Msg("rejecting upload")
		response.WriteErrorCode(w, http.StatusBadRequest, model.CodeInvalidRequest)
		return
	}
	stagedPath := filepath.Join(h.cfg.StagingDir, stagedName)
	if err := stageUpload(file, stagedPath); err != nil {
		logger.Error().Err(err).Str("path", stagedPath).Msg("failed to stage archive")
		response.WriteErrorCode(w, http.StatusInternalServerError, model.CodeInternalError)
		return
	}
	defer func() {
		if err := os.Remove(stagedPath); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", stagedPath).Msg("failed to remove staged archive")
		}
	}()

	if err := h.sem.Acquire(r.Context(), 1); err != nil {
		logger.Error().Err(err).Msg("gave up waiting for a batch slot")
		response.WriteErrorCode(w, http.StatusInternalServerError, model.CodeInternalError)
		return
	}
	defer h.sem.Release(1)

	session := h.sessions()
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to release database session")
		}
	}()

	// A batch is never interrupted half way through a tenant, even when the
	// client disconnects.
	ctx := context.WithoutCancel(r.Context())
	result := h.batcher.RunBatch(ctx, session, stagedName, req.SQLFileName, req.Accounts)

	response.WriteJSON(w, http.StatusCreated, result)
}

// stageUpload copies an uploaded archive to path, replacing any file of the
// same name.
func stageUpload(src io.Reader, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create staged archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close staged archive: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("write staged archive: %w", err)
	}
	return nil
}
