package responder

import (
	"regexp"
	"strings"
)

// CallToAction is appended to replies that never mention a consultation.
const CallToAction = "\n\n📅 **Ready to start?**\nBook a free consultation to create your personalized plan!"

type emojiTerm struct {
	term  string
	emoji string
	re    *regexp.Regexp
}

// emojiTerms is applied in order. Two terms share 💪 and 🏋️, so only the
// first of each pair ever fires.
var emojiTerms = buildEmojiTerms([][2]string{
	{"workout", "💪"},
	{"exercise", "🏋️"},
	{"nutrition", "🥗"},
	{"diet", "🍎"},
	{"weight loss", "🔥"},
	{"muscle", "💪"},
	{"strength", "🏋️"},
	{"beginner", "🎯"},
	{"consultation", "📅"},
	{"session", "⏱️"},
	{"price", "💰"},
	{"goal", "🎯"},
	{"help", "⚡"},
	{"plan", "📊"},
})

func buildEmojiTerms(pairs [][2]string) []emojiTerm {
	out := make([]emojiTerm, len(pairs))
	for i, p := range pairs {
		out[i] = emojiTerm{
			term:  p[0],
			emoji: p[1],
			re:    regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p[0]) + `\b`),
		}
	}
	return out
}

// Format cleans model output for the widget: code fences are dropped,
// fitness terms get an emoji and a booking call to action is added when
// missing.
func Format(text string) string {
	out := strings.TrimSpace(strings.ReplaceAll(text, "```", ""))

	for _, et := range emojiTerms {
		if strings.Contains(strings.ToLower(out), et.term) && !strings.Contains(out, et.emoji) {
			out = et.re.ReplaceAllLiteralString(out, et.emoji+" "+et.term)
		}
	}

	if !strings.Contains(out, "consultation") && !strings.Contains(out, "📅") {
		out += CallToAction
	}
	return out
}
