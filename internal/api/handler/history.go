package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/siteinstaller/internal/api/request"
	"github.com/edvin/siteinstaller/internal/api/response"
	"github.com/edvin/siteinstaller/internal/history"
	"github.com/edvin/siteinstaller/internal/model"
)

type History struct {
	lister history.Lister
}

func NewHistory(lister history.Lister) *History {
	return &History{lister: lister}
}

// List godoc
//
//	@Summary		List provisioning attempts
//	@Description	Returns recent provisioning attempts, newest first. Empty when history is disabled.
//	@Tags			Provisions
//	@Produce		json
//	@Param			limit	query	int	false	"Page size (max 500)"
//	@Success		200	{array}		model.ProvisionAttempt
//	@Failure		500	{object}	response.ErrorCode
//	@Router			/provisions [get]
func (h *History) List(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.lister.List(r.Context(), request.ParseLimit(r))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list provisioning history")
		response.WriteErrorCode(w, http.StatusInternalServerError, model.CodeInternalError)
		return
	}
	response.WriteJSON(w, http.StatusOK, attempts)
}
