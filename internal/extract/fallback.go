package extract

import "time"

// Fallback structures keep the response shape stable when the backend
// returns prose instead of JSON. Callers can always rely on the keys.

func analysisFallback(responseText string) map[string]any {
	excerpt := responseText
	if len(excerpt) > 200 {
		excerpt = excerpt[:200] + "..."
	}
	return map[string]any{
		"participants": map[string]any{
			"user":   "音声から抽出",
			"staff":  "音声から抽出",
			"others": []string{},
		},
		"interview_type":    "面談",
		"current_situation": excerpt,
		"user_wishes":       "音声から特定中",
		"goals": map[string]any{
			"long_term":  []string{"音声から抽出予定"},
			"short_term": []string{"音声から抽出予定"},
		},
		"support_content": []string{"音声内容に基づく支援"},
		"evaluation":      "評価中",
		"future_plans":    []string{"今後の計画検討中"},
		"special_notes":   "音声解析結果を確認中",
		"coordination":    "関係機関連携を検討",
	}
}

func documentsFallback() map[string]any {
	return map[string]any{
		"individual_support_plan": map[string]any{
			"current_situation":   "音声から抽出中",
			"long_term_goals":     []string{"音声解析中"},
			"short_term_goals":    []string{"音声解析中"},
			"support_methods":     []string{"音声から特定"},
			"evaluation_criteria": "評価基準検討中",
			"review_schedule":     "見直し予定",
		},
		"monitoring_record": map[string]any{
			"monitoring_period": "今期",
			"goal_achievement":  "評価中",
			"progress_summary":  "進捗確認中",
			"challenges":        []string{"課題抽出中"},
			"next_actions":      []string{"アクション検討中"},
		},
	}
}

func tablesFallback() map[string]any {
	today := time.Now().Format("2006-01-02")
	return map[string]any{
		"user_master": map[string]any{
			"user_name":       "音声から抽出",
			"disability_type": "確認中",
		},
		"service_records": map[string]any{
			"service_date":    today,
			"service_type":    "面談",
			"staff_name":      "音声から抽出",
			"service_content": "面談実施",
			"user_condition":  "安定",
			"special_events":  "音声記録あり",
		},
		"goal_evaluations": map[string]any{
			"goal_category":    "総合",
			"goal_description": "音声から抽出",
			"evaluation_date":  today,
			"evaluator":        "音声から抽出",
			"next_target":      "検討中",
		},
	}
}
