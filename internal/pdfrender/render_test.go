package pdfrender

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestBuildHTML(t *testing.T) {
	t.Run("known_type_renders_title_and_fields", func(t *testing.T) {
		html, err := BuildHTML("individual-support-plan", map[string]any{
			"long_term_goals": "利用者の自立",
			"support_content": "作業訓練の提供",
		})
		if err != nil {
			t.Fatal(err)
		}
		page := string(html)
		if !strings.Contains(page, "個別支援計画書") {
			t.Error("missing document title")
		}
		if !strings.Contains(page, "<th>長期目標</th>") || !strings.Contains(page, "<th>支援内容</th>") {
			t.Error("field labels not translated")
		}
		if !strings.Contains(page, "作業訓練の提供") {
			t.Error("field value missing")
		}
	})

	t.Run("unknown_type_is_an_error", func(t *testing.T) {
		if _, err := BuildHTML("tax-return", nil); err == nil {
			t.Fatal("expected error for unknown document type")
		}
	})

	t.Run("values_are_html_escaped", func(t *testing.T) {
		html, err := BuildHTML("service-record", map[string]any{
			"special_events": `<script>alert("x")</script>`,
		})
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(html), "<script>") {
			t.Error("value was not escaped")
		}
	})

	t.Run("empty_data_gets_placeholder_row", func(t *testing.T) {
		html, err := BuildHTML("family-report", map[string]any{})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(html), "記載なし") {
			t.Error("placeholder row missing")
		}
	})

	t.Run("unknown_field_keeps_raw_key", func(t *testing.T) {
		html, err := BuildHTML("assessment-sheet", map[string]any{"custom_field": "v"})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(html), "<th>custom_field</th>") {
			t.Error("raw key fallback missing")
		}
	})
}

func TestRenderValue(t *testing.T) {
	t.Run("list_becomes_bullets", func(t *testing.T) {
		got := string(renderValue([]any{"歩行訓練", "調理実習"}))
		want := "<ul><li>歩行訓練</li><li>調理実習</li></ul>"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("map_becomes_labelled_lines", func(t *testing.T) {
		got := string(renderValue(map[string]any{
			"goals":      "自立",
			"evaluation": "良好",
		}))
		// keys render in sorted order
		want := "評価: 良好<br>目標: 自立"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("nil_is_empty", func(t *testing.T) {
		if got := renderValue(nil); got != "" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("number_is_stringified", func(t *testing.T) {
		if got := renderValue(float64(3)); got != "3" {
			t.Errorf("got %q", got)
		}
	})
}

func TestDocFieldName(t *testing.T) {
	if got := docFieldName("individual-support-plan"); got != "individual_support_plan" {
		t.Errorf("got %q", got)
	}
}

func TestRendererGenerate(t *testing.T) {
	t.Run("writes_pdf_from_converter_response", func(t *testing.T) {
		var gotPage string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("multipart parse: %v", err)
			}
			f, _, err := r.FormFile("files")
			if err != nil {
				t.Errorf("missing files part: %v", err)
			} else {
				buf := make([]byte, 1<<16)
				n, _ := f.Read(buf)
				gotPage = string(buf[:n])
				f.Close()
			}
			w.Write([]byte("%PDF-1.4 fake"))
		}))
		defer srv.Close()

		dir := t.TempDir()
		r := New(srv.URL, dir, 5*time.Second, zerolog.Nop())
		out, err := r.Generate(context.Background(), "monitoring-record", map[string]any{
			"progress_summary": "順調",
		})
		if err != nil {
			t.Fatal(err)
		}
		if out.Document != "monitoring-record" {
			t.Errorf("document = %q", out.Document)
		}
		if !strings.HasPrefix(out.Filename, "monitoring-record_") || !strings.HasSuffix(out.Filename, ".pdf") {
			t.Errorf("filename = %q", out.Filename)
		}
		data, err := os.ReadFile(out.Path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "%PDF-1.4 fake" {
			t.Errorf("file contents = %q", data)
		}
		if !strings.Contains(gotPage, "モニタリング記録表") {
			t.Error("converter did not receive the assembled page")
		}
	})

	t.Run("converter_error_becomes_render_error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		r := New(srv.URL, t.TempDir(), 5*time.Second, zerolog.Nop())
		_, err := r.Generate(context.Background(), "service-record", nil)
		if err == nil {
			t.Fatal("expected error")
		}
		var re *RenderError
		if !errors.As(err, &re) || re.Document != "service-record" {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("generate_all_picks_per_type_data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pdf"))
		}))
		defer srv.Close()

		r := New(srv.URL, t.TempDir(), 5*time.Second, zerolog.Nop())
		outs, err := r.GenerateAll(context.Background(), []string{"family-report", "assessment-sheet"}, map[string]any{
			"family_report":    map[string]any{"family_message": "こんにちは"},
			"assessment_sheet": map[string]any{"adl_assessment": "自立"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(outs) != 2 {
			t.Fatalf("outputs = %d", len(outs))
		}
		if outs[0].Document != "family-report" || outs[1].Document != "assessment-sheet" {
			t.Errorf("documents = %v", outs)
		}
	})
}
