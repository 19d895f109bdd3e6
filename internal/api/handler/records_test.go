package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timmy/finanalyzer/internal/domain"
)

func TestListAnalyses(t *testing.T) {
	svc := &fakeService{records: []domain.AnalysisRecord{
		{ID: 2, JobID: "job-2", Result: "b"},
		{ID: 1, JobID: "job-1", Result: "a"},
	}}
	r := newTestEngine(svc)

	tests := []struct {
		name      string
		url       string
		wantLimit int
	}{
		{"default", "/analyses", defaultPageSize},
		{"explicit", "/analyses?limit=5&offset=1", 5},
		{"capped", "/analyses?limit=1000", maxPageSize},
		{"garbage", "/analyses?limit=abc", defaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var resp ListAnalysesResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if svc.listLimit != tt.wantLimit || resp.Limit != tt.wantLimit {
				t.Errorf("limit = %d/%d, want %d", svc.listLimit, resp.Limit, tt.wantLimit)
			}
			if resp.Total != 2 || len(resp.Items) != 2 || resp.Items[0].JobID != "job-2" {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}

func TestListAnalysesEmpty(t *testing.T) {
	r := newTestEngine(&fakeService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analyses", nil))

	body := decode(t, w)
	items, ok := body["items"].([]interface{})
	if !ok || len(items) != 0 {
		t.Errorf("items = %v, want empty array", body["items"])
	}
}

func TestListAnalysesError(t *testing.T) {
	r := newTestEngine(&fakeService{listErr: errors.New("db down")})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analyses", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestGetAnalysis(t *testing.T) {
	r := newTestEngine(&fakeService{records: []domain.AnalysisRecord{{ID: 7, JobID: "job-7", Result: "ok"}}})

	tests := []struct {
		url  string
		want int
	}{
		{"/analyses/7", http.StatusOK},
		{"/analyses/8", http.StatusNotFound},
		{"/analyses/abc", http.StatusBadRequest},
		{"/analyses/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK {
				var rec domain.AnalysisRecord
				if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
					t.Fatal(err)
				}
				if rec.JobID != "job-7" {
					t.Errorf("rec = %+v", rec)
				}
			}
		})
	}
}
