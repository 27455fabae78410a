package conversation

import (
	"strings"
	"testing"

	"github.com/jkindrix/fitai/internal/domain"
)

func TestIsPositiveResponse(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Yes!", true},
		{"sure thing", true},
		{"OK", true},
		{"Let's go", true},
		{"lets go", true},
		{"I'd like to book", true},
		{"Definitely", true},
		{"yep", true},
		{"no thanks", false},
		{"maybe later", false},
		{"", false},
		{"what does it cost?", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := IsPositiveResponse(tt.text); got != tt.want {
				t.Errorf("IsPositiveResponse(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestBookingMessage(t *testing.T) {
	link := "https://calendly.com/coach/intro"
	msg := BookingMessage(link)

	if !strings.Contains(msg, "📅 **Book Your Session:** "+link) {
		t.Errorf("booking message missing link:\n%s", msg)
	}
	if !strings.HasPrefix(msg, "✅ **Perfect! Let's get you scheduled!**") {
		t.Errorf("unexpected opening:\n%s", msg)
	}
}

func TestButtonBookingMessage(t *testing.T) {
	r := domain.LeadRecord{
		domain.FieldGoal:       "🔥 Weight Loss",
		domain.FieldExperience: "🚀 Beginner (0-6 months)",
		domain.FieldFrequency:  "2-3 days per week",
	}
	msg := ButtonBookingMessage("https://x.test/book", r)

	for _, want := range []string{
		"https://x.test/book",
		"• 🔥 Weight Loss\n",
		"• 🚀 Beginner (0-6 months) level training\n",
		"• 2-3 days per week\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("button booking message missing %q", want)
		}
	}
}

func TestNudge_Deterministic(t *testing.T) {
	pool := Nudges()
	if len(pool) == 0 {
		t.Fatal("nudge pool is empty")
	}

	for seed := int64(-20); seed < 20; seed++ {
		a, b := Nudge(seed), Nudge(seed)
		if a != b {
			t.Fatalf("Nudge(%d) not deterministic", seed)
		}
		if !contains(pool, a) {
			t.Fatalf("Nudge(%d) = %q, not in pool", seed, a)
		}
	}

	seen := map[string]bool{}
	for seed := int64(0); seed < int64(len(pool)); seed++ {
		seen[Nudge(seed)] = true
	}
	if len(seen) != len(pool) {
		t.Errorf("consecutive seeds covered %d of %d nudges", len(seen), len(pool))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
