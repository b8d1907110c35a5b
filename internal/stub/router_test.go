package stub

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	r := NewRouter(NewService())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestChat(t *testing.T) {
	svc := NewService()
	r := NewRouter(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"text":"hi","session_id":"s1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "You asked: hi", decode(t, rec)["response"])
	assert.Equal(t, 1, svc.AskCount("s1"))
}

func TestChat_RejectsBlankAndBadJSON(t *testing.T) {
	r := NewRouter(NewService())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"text":"  "}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadThenChatMentionsDocuments(t *testing.T) {
	svc := NewService()
	r := NewRouter(svc)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "paper.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, mw.WriteField("session_id", "s2"))
	require.NoError(t, mw.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload-pdf", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Processed paper.pdf (13 bytes)", decode(t, rec)["status"])
	assert.Equal(t, []string{"paper.pdf"}, svc.Documents("s2"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"text":"summary?","session_id":"s2"}`))
	r.ServeHTTP(rec, req)
	assert.Contains(t, decode(t, rec)["response"], "searched 1 document(s)")
}

func TestUpload_MissingFile(t *testing.T) {
	r := NewRouter(NewService())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload-pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
