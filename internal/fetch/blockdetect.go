package fetch

import (
	"strings"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockDenied     BlockType = "access_denied"
	BlockEmpty      BlockType = "empty"
)

// minUsableRunes is the shortest content treated as a real page.
const minUsableRunes = 100

// challengeMaxLen bounds the length of pages checked for challenge
// phrases; long pages that merely mention them are real content.
const challengeMaxLen = 2000

var challengePhrases = []struct {
	phrase string
	typ    BlockType
}{
	{"checking your browser", BlockCloudflare},
	{"cf-browser-verification", BlockCloudflare},
	{"just a moment", BlockCloudflare},
	{"attention required", BlockCloudflare},
	{"recaptcha", BlockCaptcha},
	{"hcaptcha", BlockCaptcha},
	{"captcha", BlockCaptcha},
	{"докажите, что вы не робот", BlockCaptcha},
	{"подтвердите, что вы не робот", BlockCaptcha},
	{"access denied", BlockDenied},
	{"403 forbidden", BlockDenied},
	{"доступ запрещен", BlockDenied},
	{"enable javascript", BlockJSShell},
	{"please enable cookies", BlockJSShell},
	{"включите javascript", BlockJSShell},
}

// DetectBlock checks a fetched page for signs of anti-bot protection.
// statusCode may be zero when the provider does not report one.
func DetectBlock(statusCode int, content string) (bool, BlockType) {
	lower := strings.ToLower(strings.TrimSpace(content))

	if (statusCode == 403 || statusCode == 503) && strings.Contains(lower, "cloudflare") {
		return true, BlockCloudflare
	}
	if len([]rune(lower)) < minUsableRunes {
		return true, BlockEmpty
	}
	if len(lower) > challengeMaxLen {
		return false, BlockNone
	}
	for _, c := range challengePhrases {
		if strings.Contains(lower, c.phrase) {
			return true, c.typ
		}
	}
	if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
		return true, BlockJSShell
	}
	if strings.Contains(lower, `meta http-equiv="refresh"`) {
		return true, BlockJSShell
	}
	return false, BlockNone
}

// markBlocked runs DetectBlock on p and records the verdict.
func markBlocked(p *Page, statusCode int) {
	content := p.Text
	if content == "" {
		content = p.HTML
	}
	p.Blocked, p.BlockType = DetectBlock(statusCode, content)
}
