package pdfrender

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"
)

var documentTitles = map[string]string{
	"individual-support-plan": "個別支援計画書",
	"monitoring-record":       "モニタリング記録表",
	"family-report":           "家族向け報告書",
	"service-record":          "サービス提供実績記録表",
	"assessment-sheet":        "アセスメント表",
}

// docFieldName maps a document type id to its key in analysis output.
func docFieldName(docType string) string {
	return strings.ReplaceAll(docType, "-", "_")
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: 'Noto Sans CJK JP', 'Yu Gothic', sans-serif; font-size: 11pt; line-height: 1.4; color: #333; margin: 0; padding: 20px; }
.header { text-align: center; margin-bottom: 20px; border-bottom: 2px solid #333; padding-bottom: 10px; }
.header h1 { font-size: 16pt; margin: 0; }
.header .date { font-size: 9pt; color: #666; margin-top: 4px; }
table { width: 100%; border-collapse: collapse; margin-bottom: 16px; }
th, td { border: 1px solid #999; padding: 6px 8px; text-align: left; vertical-align: top; }
th { background: #f0f0f0; width: 28%; white-space: nowrap; }
ul { margin: 0; padding-left: 18px; }
</style>
</head>
<body>
<div class="header">
<h1>{{.Title}}</h1>
<div class="date">作成日: {{.Date}}</div>
</div>
<table>
{{range .Rows}}<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</table>
</body>
</html>
`))

type pageData struct {
	Title string
	Date  string
	Rows  []row
}

type row struct {
	Label string
	Value template.HTML
}

// fieldLabels gives Japanese headings for the analysis field names the
// extraction backend produces. Unknown fields fall back to the raw key.
var fieldLabels = map[string]string{
	"current_situation":   "現在の状況",
	"long_term_goals":     "長期目標",
	"short_term_goals":    "短期目標",
	"support_methods":     "支援方法",
	"support_content":     "支援内容",
	"evaluation_criteria": "評価基準",
	"review_schedule":     "見直し時期",
	"monitoring_period":   "モニタリング期間",
	"goal_achievement":    "目標達成状況",
	"progress_summary":    "進捗概要",
	"challenges":          "課題",
	"next_actions":        "今後の対応",
	"service_date":        "提供日",
	"service_type":        "サービス種別",
	"staff_name":          "担当職員",
	"user_condition":      "利用者の状態",
	"special_events":      "特記事項",
	"participants":        "参加者",
	"interview_type":      "面談種別",
	"user_wishes":         "本人の希望",
	"goals":               "目標",
	"evaluation":          "評価",
	"future_plans":        "今後の計画",
	"coordination":        "関係機関連携",
	"special_notes":       "特記事項",
	"family_message":      "ご家族へのメッセージ",
	"daily_activities":    "日中活動の様子",
	"health_status":       "健康状態",
	"adl_assessment":      "ADL評価",
	"iadl_assessment":     "IADL評価",
	"communication":       "コミュニケーション",
	"social_skills":       "社会性",
	"work_skills":         "作業能力",
}

// BuildHTML assembles the printable page for one document type.
func BuildHTML(docType string, data map[string]any) ([]byte, error) {
	title, ok := documentTitles[docType]
	if !ok {
		return nil, fmt.Errorf("unknown document type %q", docType)
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	page := pageData{
		Title: title,
		Date:  time.Now().Format("2006年01月02日"),
	}
	for _, k := range keys {
		label, ok := fieldLabels[k]
		if !ok {
			label = k
		}
		page.Rows = append(page.Rows, row{Label: label, Value: renderValue(data[k])})
	}
	if len(page.Rows) == 0 {
		page.Rows = append(page.Rows, row{Label: "内容", Value: template.HTML(template.HTMLEscapeString("記載なし"))})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderValue formats a JSON-decoded value as a table cell. Lists become
// bullet points, nested objects become label: value lines.
func renderValue(v any) template.HTML {
	esc := template.HTMLEscapeString
	switch val := v.(type) {
	case string:
		return template.HTML(esc(val))
	case []any:
		var b strings.Builder
		b.WriteString("<ul>")
		for _, item := range val {
			b.WriteString("<li>")
			b.WriteString(string(renderValue(item)))
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
		return template.HTML(b.String())
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			label, ok := fieldLabels[k]
			if !ok {
				label = k
			}
			parts = append(parts, esc(label)+": "+string(renderValue(val[k])))
		}
		return template.HTML(strings.Join(parts, "<br>"))
	case nil:
		return ""
	default:
		return template.HTML(esc(fmt.Sprint(val)))
	}
}
