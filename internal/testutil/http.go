package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/partscatalog/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/require"
)

// PerformRequest sends a request through handler. A non-nil body is JSON encoded.
func PerformRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// DecodeResponse unmarshals the standard envelope, decoding Data into data
// when data is non-nil.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder, data any) dto.Response {
	t.Helper()
	var envelope struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data), string(envelope.Data))
	}
	return envelope.Response
}
