// Package nlsearch rewrites common natural-language search phrasings
// ("unread emails", "emails from alice and bob") into Gmail operator syntax.
package nlsearch

import (
	"regexp"
	"strings"
)

const noun = `(?:emails?|messages?|mail)`

// rule rewrites text that matches re in full.
type rule struct {
	name  string
	re    *regexp.Regexp
	build func(m []string) string
}

func mustRule(name, pattern string, build func(m []string) string) rule {
	return rule{name: name, re: regexp.MustCompile(`(?i)^\s*` + pattern + `\s*$`), build: build}
}

func constant(q string) func([]string) string {
	return func([]string) string { return q }
}

var rules = []rule{
	mustRule("unread", `(?:show\s+(?:me\s+)?)?(?:all\s+)?(?:my\s+)?unread(?:\s+`+noun+`)?`, constant("is:unread")),
	mustRule("starred", `(?:show\s+(?:me\s+)?)?(?:all\s+)?(?:my\s+)?starred(?:\s+`+noun+`)?`, constant("is:starred")),
	mustRule("important", `(?:show\s+(?:me\s+)?)?(?:all\s+)?(?:my\s+)?important(?:\s+`+noun+`)?`, constant("is:important")),
	mustRule("attachments", noun+`\s+(?:with|that\s+have)\s+(?:an\s+)?attachments?`, constant("has:attachment")),
	mustRule("typed_attachments", noun+`\s+with\s+(\w+)\s+attachments?`, func(m []string) string {
		return "has:attachment filename:" + strings.ToLower(m[1])
	}),
	mustRule("links", noun+`\s+with\s+links?`, constant("(http OR https OR www)")),
	mustRule("delivered_to_me", noun+`\s+delivered\s+to\s+me`, constant("deliveredto:me")),
	mustRule("from_pair", noun+`\s+from\s+(\S+)\s+and\s+(\S+)`, func(m []string) string {
		return "from:(" + m[1] + " OR " + m[2] + ")"
	}),
	mustRule("from", noun+`\s+from\s+(.+)`, func(m []string) string { return operator("from", m[1]) }),
	mustRule("to", noun+`\s+(?:sent\s+)?to\s+(.+)`, func(m []string) string { return operator("to", m[1]) }),
	mustRule("folder", noun+`\s+in\s+(?:my\s+|the\s+)?(\w+)`, func(m []string) string {
		return "in:" + strings.ToLower(m[1])
	}),
	mustRule("sent_folder", `(?:my\s+)?(sent|drafts?|spam|trash)(?:\s+`+noun+`)?`, func(m []string) string {
		folder := strings.ToLower(m[1])
		if folder == "draft" {
			folder = "drafts"
		}
		return "in:" + folder
	}),
	mustRule("about", noun+`\s+(?:about|regarding)\s+(.+)`, func(m []string) string { return operator("subject", m[1]) }),
}

// operator renders key:value, grouping multi-word values in parentheses.
func operator(key, value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if strings.Contains(value, " ") {
		return key + ":(" + value + ")"
	}
	return key + ":" + value
}

// Translate rewrites text into operator syntax when one of the known
// phrasings matches. Text that matches no phrasing is returned unchanged.
func Translate(text string) string {
	for _, r := range rules {
		if m := r.re.FindStringSubmatch(text); m != nil {
			return r.build(m)
		}
	}
	return text
}

// Parser adapts Translate to the collaborator interface used by the
// query assembler.
type Parser struct{}

// Translate implements the natural-language rewrite.
func (Parser) Translate(text string) (string, error) {
	return Translate(text), nil
}

var suggestions = []string{
	"Emails from last week...",
	"Emails with attachments...",
	"Unread emails...",
	"Emails from Caroline and Josh...",
	"Starred emails...",
	"Emails with links...",
	"Emails from last month...",
	"Emails in Inbox...",
	"Emails with PDF attachments...",
	"Emails delivered to me...",
}

// Suggestions returns example phrasings for search box placeholders.
func Suggestions() []string {
	out := make([]string, len(suggestions))
	copy(out, suggestions)
	return out
}
