package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// upload describes a multipart provisioning request.
type upload struct {
	filename string
	content  []byte
	fields   map[string]string
}

// newUploadRequest builds a multipart POST. An empty filename omits the file part.
func newUploadRequest(t *testing.T, target string, u upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if u.filename != "" {
		part, err := mw.CreateFormFile("zipFile", u.filename)
		require.NoError(t, err)
		_, err = part.Write(u.content)
		require.NoError(t, err)
	}
	for k, v := range u.fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, target, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

// decodeErrorCode parses an {"errorCode": N} body.
func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		ErrorCode int `json:"errorCode"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.ErrorCode
}
