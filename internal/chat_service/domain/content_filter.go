package domain

import (
	"regexp"
	"strings"
)

// BlockReason classifies what the content filter found in a message.
type BlockReason string

const (
	ReasonPhone          BlockReason = "phone"
	ReasonEmail          BlockReason = "email"
	ReasonLink           BlockReason = "link"
	ReasonContactAttempt BlockReason = "contact_attempt"
)

// Redaction placeholders. They contain no digits, no "@" and no TLD, so a
// later category can never re-match text an earlier category already replaced.
const (
	PhonePlaceholder = "[number hidden]"
	EmailPlaceholder = "[email hidden]"
	LinkPlaceholder  = "[link removed]"
)

// ContentFilterResult is the outcome of one filter pass.
// OriginalContent is retained for the audit/moderation trail only and must
// never be shown to the other chat participant.
type ContentFilterResult struct {
	IsBlocked        bool          `json:"is_blocked"`
	SanitizedContent string        `json:"sanitized_content"`
	OriginalContent  string        `json:"original_content"`
	BlockedReasons   []BlockReason `json:"blocked_reasons"`
}

// filterStep is one category of the pipeline: a set of patterns sharing a
// placeholder and a reason tag. Categories run in a fixed order, each over
// the output of the previous one, so a digit run swallowed by a phone
// pattern can never be re-detected as part of a link.
type filterStep struct {
	reason      BlockReason
	placeholder string
	patterns    []*regexp.Regexp
}

var (
	// Phone shapes: international prefix, 3-3-4 grouping, 2-4-4 grouping
	// (Italian landlines), bare 10-12 digit runs.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+\d{1,3}[\s.\-]?\d{2,4}[\s.\-]?\d{3,4}[\s.\-]?\d{3,4}`),
		regexp.MustCompile(`\b\d{3}[\s.\-]?\d{3}[\s.\-]?\d{4}\b`),
		regexp.MustCompile(`\b\d{2}[\s.\-]?\d{4}[\s.\-]?\d{4}\b`),
		regexp.MustCompile(`\b\d{10,12}\b`),
	}

	emailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	}

	// Link shapes: explicit URLs, www-prefixed hosts, bare domains on a known
	// TLD list.
	linkPatterns = []*regexp.Regexp{
		regexp.MustCompile(`https?://[^\s]+`),
		regexp.MustCompile(`\bwww\.[^\s]+`),
		regexp.MustCompile(`\b[a-zA-Z0-9][a-zA-Z0-9\-]*\.(?:com|it|org|net|io|app|co|info|biz|eu)\b`),
	}

	filterPipeline = []filterStep{
		{reason: ReasonPhone, placeholder: PhonePlaceholder, patterns: phonePatterns},
		{reason: ReasonEmail, placeholder: EmailPlaceholder, patterns: emailPatterns},
		{reason: ReasonLink, placeholder: LinkPlaceholder, patterns: linkPatterns},
	}

	// Circumvention vocabulary: wording that tries to move the conversation
	// off-platform. Matching is advisory only: tagged for moderation, never
	// redacted, never blocks the message.
	contactAttemptPhrases = []string{
		"chiamami",
		"telefonami",
		"scrivimi su",
		"contattami su",
		"cercami su",
		"il mio numero",
		"whatsapp",
		"telegram",
		"instagram",
		"facebook",
		"messenger",
		"call me",
		"text me",
		"message me",
		"find me on",
		"reach me on",
		"my number",
	}
)

// FilterMessageContent classifies and redacts contact information from a chat
// message before it is persisted. It is a total, pure function: any string in,
// a result out, no error path.
//
// Categories run in the fixed order phone -> email -> link -> contact_attempt.
// Within a category every pattern does a stateless match-all/replace-all
// against the current working string.
func FilterMessageContent(content string) ContentFilterResult {
	result := ContentFilterResult{
		SanitizedContent: content,
		OriginalContent:  content,
	}

	working := content
	for _, step := range filterPipeline {
		matched := false
		for _, pattern := range step.patterns {
			if pattern.MatchString(working) {
				matched = true
				working = pattern.ReplaceAllString(working, step.placeholder)
			}
		}
		if matched {
			result.IsBlocked = true
			result.BlockedReasons = append(result.BlockedReasons, step.reason)
		}
	}

	lowered := strings.ToLower(working)
	for _, phrase := range contactAttemptPhrases {
		if strings.Contains(lowered, phrase) {
			result.BlockedReasons = append(result.BlockedReasons, ReasonContactAttempt)
			break
		}
	}

	result.SanitizedContent = working
	return result
}

var reasonLabelsIT = map[BlockReason]string{
	ReasonPhone: "numeri di telefono",
	ReasonEmail: "indirizzi email",
	ReasonLink:  "link esterni",
}

// DescribeBlockedReasons maps the reason tags to the user-facing notice shown
// under the sent message. contact_attempt is omitted: the user is not told the
// message was flagged for review. Returns "" when there is nothing to report.
func DescribeBlockedReasons(reasons []BlockReason) string {
	var labels []string
	for _, r := range reasons {
		if label, ok := reasonLabelsIT[r]; ok {
			labels = append(labels, label)
		}
	}
	if len(labels) == 0 {
		return ""
	}
	return "Per la tua sicurezza sono stati nascosti: " + strings.Join(labels, ", ") + ". Continua a comunicare tramite la chat."
}
