package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fieldops/gearscan/internal/utils"
	"github.com/fieldops/gearscan/pkg/inference"
)

type stubEngine struct {
	detections []inference.RawDetection
	err        error
}

func (s stubEngine) Infer(ctx context.Context, frame string) ([]inference.RawDetection, error) {
	return s.detections, s.err
}

func testFrame(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}
	return utils.EncodeDataURL("image/jpeg", buf.Bytes())
}

func postScan(t *testing.T, handler http.Handler, image string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"image": image})
	req := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleScanRanksDetections(t *testing.T) {
	engine := stubEngine{detections: []inference.RawDetection{
		{Label: "wrench", Confidence: 0.62},
		{Label: "drill", Confidence: 0.91},
	}}
	srv := New(engine, nil, "", "")

	rec := postScan(t, srv.Handler(), testFrame(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Found      bool `json:"found"`
		Count      int  `json:"count"`
		Detections []struct {
			Label      string  `json:"label"`
			Confidence float64 `json:"confidence"`
		} `json:"detections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if !resp.Found || resp.Count != 2 {
		t.Fatalf("unexpected found/count: %+v", resp)
	}
	if resp.Detections[0].Label != "drill" || resp.Detections[1].Label != "wrench" {
		t.Fatalf("detections not ranked by confidence: %+v", resp.Detections)
	}
}

func TestHandleScanEmptyResult(t *testing.T) {
	srv := New(stubEngine{}, nil, "", "")

	rec := postScan(t, srv.Handler(), testFrame(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Found bool `json:"found"`
		Count int  `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Found || resp.Count != 0 {
		t.Fatalf("expected empty success response, got %s", rec.Body.String())
	}
}

func TestHandleScanRejectsBadBase64(t *testing.T) {
	srv := New(stubEngine{}, nil, "", "")

	rec := postScan(t, srv.Handler(), "data:image/jpeg;base64,!!!not-base64!!!")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "detail") {
		t.Fatalf("expected a detail field, got %s", rec.Body.String())
	}
}

func TestHandleScanRejectsNonImagePayload(t *testing.T) {
	srv := New(stubEngine{}, nil, "", "")

	rec := postScan(t, srv.Handler(), utils.EncodeDataURL("text/plain", []byte("hello, not an image")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleScanUpstreamFailure(t *testing.T) {
	srv := New(stubEngine{err: errors.New("engine down")}, nil, "", "")

	rec := postScan(t, srv.Handler(), testFrame(t))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	srv := New(stubEngine{}, nil, "operator", "secret")
	handler := srv.Handler()

	rec := postScan(t, handler, testFrame(t))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}

	body, _ := json.Marshal(map[string]string{"image": testFrame(t)})
	req := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader(body))
	req.SetBasicAuth("operator", "secret")
	authed := httptest.NewRecorder()
	handler.ServeHTTP(authed, req)
	if authed.Code != http.StatusOK {
		t.Fatalf("expected 200 with credentials, got %d", authed.Code)
	}

	// Health stays open for probes.
	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("expected open healthz, got %d", health.Code)
	}
}

func TestHandleEquipmentWithoutDB(t *testing.T) {
	srv := New(stubEngine{}, nil, "", "")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/equipment", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a catalog db, got %d", rec.Code)
	}
}
