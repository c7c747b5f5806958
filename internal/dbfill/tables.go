package dbfill

import "strings"

// Table names for the facility database. The database itself is not
// wired here, writes are simulated so the extraction path stays testable.
const (
	TableUserMaster        = "user_master"
	TableServiceRecords    = "service_records"
	TableGoalEvaluations   = "goal_evaluations"
	TableAttendanceRecords = "attendance_records"
	TableCommunicationLogs = "communication_logs"
	TableMedicalRecords    = "medical_records"
)

// TableInfo describes one auto-fill target for API consumers.
type TableInfo struct {
	Table       string   `json:"table"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Extractable []string `json:"extractable"`
}

var supportedTables = []TableInfo{
	{
		Table:       TableUserMaster,
		Name:        "利用者マスタ",
		Description: "利用者の基本情報（年齢、障害種別、連絡先等）",
		Extractable: []string{"年齢", "障害種別", "支援区分", "連絡先", "医療情報"},
	},
	{
		Table:       TableServiceRecords,
		Name:        "サービス提供実績",
		Description: "日々のサービス提供内容と利用者状況",
		Extractable: []string{"サービス種別", "提供時間", "利用者状態", "活動内容", "特記事項"},
	},
	{
		Table:       TableGoalEvaluations,
		Name:        "目標達成度評価",
		Description: "個別目標の進捗状況と達成度評価",
		Extractable: []string{"目標カテゴリ", "達成度", "評価内容", "次の目標", "支援調整"},
	},
	{
		Table:       TableAttendanceRecords,
		Name:        "出席記録",
		Description: "利用者の出席状況と参加度",
		Extractable: []string{"出席状況", "参加度", "欠席理由", "早退・遅刻"},
	},
	{
		Table:       TableCommunicationLogs,
		Name:        "コミュニケーション記録",
		Description: "利用者・家族・関係機関との連絡記録",
		Extractable: []string{"連絡先", "連絡内容", "連絡日時", "対応者"},
	},
	{
		Table:       TableMedicalRecords,
		Name:        "医療・健康記録",
		Description: "服薬状況、通院記録、健康状態",
		Extractable: []string{"服薬情報", "通院状況", "健康状態", "医療機関"},
	},
}

// SupportedTables returns the auto-fill targets this service knows about.
func SupportedTables() []TableInfo {
	out := make([]TableInfo, len(supportedTables))
	copy(out, supportedTables)
	return out
}

// TableNames returns every supported table name.
func TableNames() []string {
	names := make([]string, 0, len(supportedTables))
	for _, t := range supportedTables {
		names = append(names, t.Table)
	}
	return names
}

// validTable reports whether name is a known auto-fill target.
func validTable(name string) bool {
	for _, t := range supportedTables {
		if t.Table == name {
			return true
		}
	}
	return false
}

var tableKeywords = []struct {
	table    string
	keywords []string
}{
	{TableUserMaster, []string{"年齢", "歳", "障害", "連絡"}},
	{TableServiceRecords, []string{"サービス", "活動", "作業", "時間"}},
	{TableGoalEvaluations, []string{"目標", "達成", "評価", "進捗"}},
	{TableAttendanceRecords, []string{"出席", "参加", "欠席"}},
	{TableCommunicationLogs, []string{"家族", "連絡", "報告"}},
	{TableMedicalRecords, []string{"服薬", "通院", "病院", "薬"}},
}

// SuggestTables picks the tables whose keywords appear in the transcript.
func SuggestTables(transcript string) []string {
	var suggestions []string
	for _, tk := range tableKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(transcript, kw) {
				suggestions = append(suggestions, tk.table)
				break
			}
		}
	}
	return suggestions
}
