package response

import (
	"encoding/json"
	"net/http"

	"github.com/edvin/siteinstaller/internal/model"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// ErrorCode is the error body clients of the provisioning endpoint parse.
type ErrorCode struct {
	ErrorCode int `json:"errorCode"`
}

// WriteErrorCode writes {"errorCode": code}.
func WriteErrorCode(w http.ResponseWriter, status int, code model.ResultCode) {
	WriteJSON(w, status, ErrorCode{ErrorCode: int(code)})
}
