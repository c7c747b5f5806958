package extract

import (
	"fmt"
	"strings"
)

// Human-readable descriptions for the five supported document types, used
// to steer document-oriented extraction.
var documentDescriptions = map[string]string{
	"individual-support-plan": "個別支援計画書用の目標、支援内容、評価基準",
	"monitoring-record":       "モニタリング記録用の進捗、達成状況、課題",
	"family-report":           "家族報告書用の活動概要、成果、メッセージ",
	"service-record":          "サービス記録用の提供内容、参加状況、特記事項",
	"assessment-sheet":        "アセスメント表用の能力評価、機能評価",
}

// DocumentTypes lists the supported document type identifiers.
func DocumentTypes() []string {
	return []string{
		"individual-support-plan",
		"monitoring-record",
		"family-report",
		"service-record",
		"assessment-sheet",
	}
}

func buildAnalysisPrompt(transcript string) string {
	return fmt.Sprintf(`以下は障害福祉事業所での面談記録の音声認識結果です。
この内容を分析して、構造化されたデータとして抽出してください。

【音声認識テキスト】
%s

【抽出項目】
参加者情報、面談の目的・種類、現在の状況・課題、利用者の意向、
支援目標（長期・短期）、具体的な支援内容、評価・進捗、今後の計画、
特記事項、関係機関との連携事項

【出力形式】
以下のJSON形式で出力してください：

{
  "participants": {"user": "利用者名", "staff": "支援員名", "others": []},
  "interview_type": "面談種別",
  "current_situation": "現在の状況",
  "user_wishes": "利用者の意向",
  "goals": {"long_term": [], "short_term": []},
  "support_content": [],
  "evaluation": "評価・進捗",
  "future_plans": [],
  "special_notes": "特記事項",
  "coordination": "関係機関連携"
}

情報が不明確な項目は「音声から特定できず」と記載してください。`, transcript)
}

func buildDocumentsPrompt(transcript string, documentTypes []string) string {
	descs := make([]string, 0, len(documentTypes))
	for _, t := range documentTypes {
		if d, ok := documentDescriptions[t]; ok {
			descs = append(descs, d)
		} else {
			descs = append(descs, t)
		}
	}

	return fmt.Sprintf(`以下は障害福祉面談の音声認識結果です。
この内容から%sに必要な情報を抽出してください。

【音声認識テキスト】
%s

【出力する帳票】
%s

帳票ごとに必要な情報を分けてJSON形式で出力し、
不明な項目は「音声から抽出できず」と記載してください。
キーは帳票名のスネークケース（例: individual_support_plan）としてください。`,
		strings.Join(descs, "、"), transcript, strings.Join(documentTypes, "、"))
}

func buildTablesPrompt(transcript string, tables []string) string {
	return fmt.Sprintf(`以下は障害福祉面談の音声認識結果です。
この内容からデータベース入力用の構造化データを抽出してください。

【音声認識テキスト】
%s

【対象テーブル】
%s

テーブルごとにJSON形式で出力してください。
不明項目は空文字または適切なデフォルト値を設定してください。`,
		transcript, strings.Join(tables, "、"))
}
