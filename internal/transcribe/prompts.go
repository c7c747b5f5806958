package transcribe

// Domain prompts bias the transcription backend toward vocabulary common
// in welfare-facility interviews. Selected by profile name; unknown
// profiles fall back to the welfare profile.
var domainPrompts = map[string]string{
	"WELFARE": "障害福祉サービス事業所での面談記録。個別支援計画、モニタリング、アセスメント、就労移行支援、生活介護、相談支援専門員、サービス管理責任者などの用語が含まれます。",
	"MEDICAL": "医療機関での面談記録。診断名、服薬状況、通院、リハビリテーションなどの用語が含まれます。",
	"GENERAL": "日本語の面談記録です。",
}

// DefaultPromptProfile is used when the caller names no profile.
const DefaultPromptProfile = "WELFARE"

// DomainPrompt resolves a profile name to its canned prompt text.
func DomainPrompt(profile string) string {
	if p, ok := domainPrompts[profile]; ok {
		return p
	}
	return domainPrompts[DefaultPromptProfile]
}
