package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/dbfill"
	"github.com/ayumi-support/kiroku-engine/internal/limiter"
)

type fakeFiller struct {
	report     *dbfill.Report
	err        error
	gotText    string
	gotUser    dbfill.UserInfo
	gotTargets []string
}

func (f *fakeFiller) Process(ctx context.Context, transcript string, user dbfill.UserInfo, targetTables []string) (*dbfill.Report, error) {
	f.gotText = transcript
	f.gotUser = user
	f.gotTargets = targetTables
	return f.report, f.err
}

func (f *fakeFiller) MergeUserMaster(user dbfill.UserInfo, extracted map[string]any) map[string]any {
	merged := map[string]any{"user_name": user.UserName}
	for k, v := range extracted {
		merged[k] = v
	}
	return merged
}

func newDatabaseRouter(filler AutoFiller) http.Handler {
	h := NewDatabaseHandler(filler, limiter.NewSlots(1), zerolog.Nop())
	r := chi.NewRouter()
	r.Route("/", h.Routes)
	return r
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProcessText(t *testing.T) {
	t.Run("forwards_request_to_filler", func(t *testing.T) {
		filler := &fakeFiller{report: &dbfill.Report{Success: true}}
		h := newDatabaseRouter(filler)

		rec := postJSON(t, h, "/process-text", `{
			"text": "本日の支援記録です",
			"userInfo": {"userName": "田中太郎", "staffName": "佐藤"},
			"targetTables": ["service_records"]
		}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
		}
		if filler.gotText != "本日の支援記録です" {
			t.Errorf("text = %q", filler.gotText)
		}
		if filler.gotUser.UserName != "田中太郎" {
			t.Errorf("user = %+v", filler.gotUser)
		}
		if len(filler.gotTargets) != 1 || filler.gotTargets[0] != "service_records" {
			t.Errorf("targets = %v", filler.gotTargets)
		}
	})

	t.Run("missing_text_is_400", func(t *testing.T) {
		h := newDatabaseRouter(&fakeFiller{})
		rec := postJSON(t, h, "/process-text", `{"userInfo": {"userName": "田中"}}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d", rec.Code)
		}
	})

	t.Run("missing_user_name_is_400", func(t *testing.T) {
		h := newDatabaseRouter(&fakeFiller{})
		rec := postJSON(t, h, "/process-text", `{"text": "記録"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d", rec.Code)
		}
	})

	t.Run("filler_error_is_502", func(t *testing.T) {
		h := newDatabaseRouter(&fakeFiller{err: errors.New("backend down")})
		rec := postJSON(t, h, "/process-text", `{"text": "記録", "userInfo": {"userName": "田中"}}`)
		if rec.Code != http.StatusBadGateway {
			t.Errorf("status %d", rec.Code)
		}
	})

	t.Run("malformed_json_is_400", func(t *testing.T) {
		h := newDatabaseRouter(&fakeFiller{})
		rec := postJSON(t, h, "/process-text", `{"text": `)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status %d", rec.Code)
		}
	})
}

func TestUpdateUserMaster(t *testing.T) {
	h := newDatabaseRouter(&fakeFiller{})
	rec := postJSON(t, h, "/update-user-master", `{
		"text": "田中さんは34歳です",
		"userInfo": {"userName": "田中太郎"}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ExtractedData map[string]any `json:"extractedData"`
		MergedData    map[string]any `json:"mergedData"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ExtractedData["age"] != float64(34) {
		t.Errorf("extracted = %v", resp.ExtractedData)
	}
	if resp.MergedData["user_name"] != "田中太郎" {
		t.Errorf("merged = %v", resp.MergedData)
	}
}

func TestEvaluateGoals(t *testing.T) {
	h := newDatabaseRouter(&fakeFiller{})
	rec := postJSON(t, h, "/evaluate-goals", `{
		"text": "ADLの目標はほぼ達成です",
		"userInfo": {"userName": "田中太郎"}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		EvaluationCount int `json:"evaluationCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.EvaluationCount < 1 {
		t.Error("expected at least one evaluation")
	}
}

func TestSupportedTables(t *testing.T) {
	h := newDatabaseRouter(&fakeFiller{})
	req := httptest.NewRequest(http.MethodGet, "/supported-tables", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Tables []dbfill.TableInfo `json:"tables"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Tables) != 6 {
		t.Errorf("tables = %d, want 6", len(resp.Tables))
	}
}

func TestSuggestTables(t *testing.T) {
	h := newDatabaseRouter(&fakeFiller{})
	rec := postJSON(t, h, "/suggest-tables", `{"text": "通院の記録と服薬について"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		SuggestedTables []string `json:"suggestedTables"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, tbl := range resp.SuggestedTables {
		if tbl == "medical_records" {
			found = true
		}
	}
	if !found {
		t.Errorf("suggested = %v, want medical_records", resp.SuggestedTables)
	}
}
