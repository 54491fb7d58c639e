package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/username/spendfolio/backend/src/config"
	"github.com/username/spendfolio/backend/src/logger"
	"github.com/username/spendfolio/backend/src/models"
	"github.com/username/spendfolio/backend/src/services"
)

func TestMain(m *testing.M) {
	logger.L = slog.New(slog.NewTextHandler(io.Discard, nil))
	config.Cfg = &config.AppConfig{MaxUploadSizeBytes: 10 * 1024 * 1024}
	os.Exit(m.Run())
}

type fakeImportService struct {
	summary   *models.ImportSummary
	importErr error
	records   []models.AttributionRecord
	deleted   int64
	hasData   bool
}

func (f *fakeImportService) ProcessImport(fileReader io.Reader, userID int64, opts services.ImportOptions) (*models.ImportSummary, error) {
	if f.importErr != nil {
		return nil, f.importErr
	}
	return f.summary, nil
}

func (f *fakeImportService) GetAttributions(userID int64, start, end string) ([]models.AttributionRecord, error) {
	return f.records, nil
}

func (f *fakeImportService) DeleteAllAttributions(userID int64) (int64, error) {
	return f.deleted, nil
}

func (f *fakeImportService) HasData(userID int64) (bool, error) {
	return f.hasData, nil
}

func (f *fakeImportService) InvalidateUserCache(userID int64) {}

func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(req.Context(), userIDContextKey, int64(1))
	return req.WithContext(ctx)
}

func TestHandleGetAttributions_RequiresAuth(t *testing.T) {
	handler := NewAttributionHandler(&fakeImportService{})

	req := httptest.NewRequest("GET", "/api/attributions?start=2024-03-01&end=2024-03-31", nil)
	rec := httptest.NewRecorder()
	handler.HandleGetAttributions(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandleGetAttributions_RejectsBadRange(t *testing.T) {
	handler := NewAttributionHandler(&fakeImportService{})

	for _, target := range []string{
		"/api/attributions",
		"/api/attributions?start=2024-03-01",
		"/api/attributions?start=2024-03-31&end=2024-03-01",
		"/api/attributions?start=bogus&end=2024-03-31",
	} {
		req := authedRequest("GET", target, nil)
		rec := httptest.NewRecorder()
		handler.HandleGetAttributions(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestHandleGetAttributions_ReturnsRecordsWithETag(t *testing.T) {
	svc := &fakeImportService{records: []models.AttributionRecord{
		{Date: "2024-03-01", Product: "STUD", Country: "CM", SpendUSD: 25, SpendLocal: 250},
	}}
	handler := NewAttributionHandler(svc)

	req := authedRequest("GET", "/api/attributions?start=2024-03-01&end=2024-03-31", nil)
	rec := httptest.NewRecorder()
	handler.HandleGetAttributions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("response must carry an ETag")
	}

	var got []models.AttributionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(got) != 1 || got[0].SpendUSD != 25 {
		t.Errorf("unexpected body: %+v", got)
	}

	// Replaying the request with the returned ETag yields 304.
	req = authedRequest("GET", "/api/attributions?start=2024-03-01&end=2024-03-31", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	handler.HandleGetAttributions(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304 on ETag match", rec.Code)
	}
}

func TestHandleDeleteAllAttributions(t *testing.T) {
	handler := NewAttributionHandler(&fakeImportService{deleted: 4})

	req := authedRequest("DELETE", "/api/attributions/all", nil)
	rec := httptest.NewRecorder()
	handler.HandleDeleteAllAttributions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["records_deleted"].(float64) != 4 {
		t.Errorf("records_deleted = %v, want 4", body["records_deleted"])
	}
}

func TestHandleCheckUserData(t *testing.T) {
	handler := NewAttributionHandler(&fakeImportService{hasData: true})

	req := authedRequest("GET", "/api/user/has-data", nil)
	rec := httptest.NewRecorder()
	handler.HandleCheckUserData(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if !body["has_data"] {
		t.Error("has_data = false, want true")
	}
}

func multipartUpload(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "export.csv")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("Campaign name,Amount spent (USD),Date\ncm-STUD-a,5.00,2024-03-01\n"))
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestHandleImport_Success(t *testing.T) {
	svc := &fakeImportService{summary: &models.ImportSummary{BatchID: "batch-1", RowsParsed: 1, RecordsWritten: 1}}
	handler := NewImportHandler(svc)

	body, contentType := multipartUpload(t, nil)
	req := authedRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.HandleImport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	var summary models.ImportSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if summary.BatchID != "batch-1" {
		t.Errorf("BatchID = %q, want batch-1", summary.BatchID)
	}
}

func TestHandleImport_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrParsingFailed, http.StatusBadRequest},
		{services.ErrPersistenceFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		handler := NewImportHandler(&fakeImportService{importErr: tc.err})

		body, contentType := multipartUpload(t, nil)
		req := authedRequest("POST", "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		handler.HandleImport(rec, req)

		if rec.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestHandleImport_RejectsBadFormValues(t *testing.T) {
	handler := NewImportHandler(&fakeImportService{summary: &models.ImportSummary{}})

	for _, fields := range []map[string]string{
		{"exchange_rate": "0"},
		{"exchange_rate": "abc"},
		{"expected_total": "-5"},
	} {
		body, contentType := multipartUpload(t, fields)
		req := authedRequest("POST", "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		handler.HandleImport(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%v: status = %d, want 400", fields, rec.Code)
		}
	}
}
