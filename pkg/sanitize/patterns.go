package sanitize

import "regexp"

// dangerousPattern names one instruction-override heuristic. Matches are
// recorded but never stripped: presence only raises a warning, leaving the
// policy decision to the caller.
type dangerousPattern struct {
	name string
	expr *regexp.Regexp
}

// Instruction-override and role-manipulation heuristics. English plus the
// Japanese localizations the research agent actually receives.
var dangerousPatterns = []dangerousPattern{
	{
		name: "ignore_instructions",
		expr: regexp.MustCompile(`(?i)(ignore|disregard|forget|skip|bypass|override)\s+(all\s+)?(previous|above|prior|earlier|system)\s+(instructions?|rules?|context|prompts?)`),
	},
	{
		name: "new_instructions",
		expr: regexp.MustCompile(`(?i)(new|updated|real)\s+instructions?\s*:`),
	},
	{
		name: "system_prompt_probe",
		expr: regexp.MustCompile(`(?i)(system\s+prompt|initial\s+prompt|your\s+(instructions?|prompt|rules))`),
	},
	{
		name: "role_manipulation",
		expr: regexp.MustCompile(`(?i)(pretend\s+(to\s+be|you\s*('re|\s+are))|act\s+as\s+(if|a|an|the)|you\s+are\s+now\s+)`),
	},
	{
		name: "context_escape",
		expr: regexp.MustCompile(`(?i)</?(system|assistant|user|human|instructions?)>`),
	},
	{
		name: "reveal_secrets",
		expr: regexp.MustCompile(`(?i)(show|reveal|repeat|print|output)\s+(me\s+)?(all\s+)?(your\s+)?(system\s+)?(prompt|instructions?|rules?|configuration)`),
	},
	{
		name: "ignore_instructions_ja",
		expr: regexp.MustCompile(`(これまで|以前|上記|前述)の(指示|命令|ルール|プロンプト)を(無視|忘れて|破棄)`),
	},
	{
		name: "new_instructions_ja",
		expr: regexp.MustCompile(`(新しい|本当の|真の)(指示|命令|システムプロンプト)`),
	},
	{
		name: "role_manipulation_ja",
		expr: regexp.MustCompile(`(あなたは今から|〜のふりをして|になりきって)`),
	},
}

// Zero-width code points stripped from input. U+FEFF doubles as a BOM but is
// treated uniformly here. Escapes, not literals: the Go scanner rejects a
// BOM anywhere but the start of a file.
var zeroWidthRunes = map[rune]struct{}{
	'\u200B': {}, // zero width space
	'\u200C': {}, // zero width non-joiner
	'\u200D': {}, // zero width joiner
	'\u2060': {}, // word joiner
	'\uFEFF': {}, // zero width no-break space
}

var (
	// urlPattern matches http(s) literals; anchors on the scheme so bare
	// hostnames in prose do not trip it.
	urlPattern = regexp.MustCompile(`(?i)https?://[^\s<>"'` + "`" + `]+`)

	// ipv4Pattern is deliberately loose on octet range: a false positive on
	// "999.1.1.1" is acceptable, a backtracking pattern is not.
	ipv4Pattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

	// ipv6Pattern matches the common colon-grouped forms, including
	// compressed ones with a trailing group.
	ipv6Pattern = regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){2,7}(?::|[0-9a-fA-F]{1,4})\b`)
)
