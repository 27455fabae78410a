package responder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one keyword and its canned reply.
type Entry struct {
	Keyword  string `yaml:"keyword"`
	Response string `yaml:"response"`
}

// Table answers messages when no model reply is available. Entries are
// checked in order and the first keyword contained in the message wins.
type Table struct {
	entries []Entry
	deflt   string
}

// DefaultResponse answers messages that match no keyword.
const DefaultResponse = "💭 **Great Question!** \n\nOur certified trainer would love to provide personalized advice!\n\n🎯 **Free consultation includes:**\n• Goal assessment\n• Custom plan outline\n• Pricing options\n\n📅 Would you like to book a session?"

var defaultEntries = []Entry{
	{"workout", "💪 **Workout Plan Ready!** \n\nI recommend starting with 3-4 weekly sessions combining strength + cardio.\n\n🏋️ **Sample Routine:**\n• Full body workouts\n• Progressive overload\n• Proper form focus\n\n📅 Want to book a free consultation for your personalized plan?"},
	{"exercise", "⚡ **Exercise Guidance!** \n\nPerfect! For effective training:\n\n🎯 **Key Principles:**\n• Compound movements\n• Proper technique\n• Consistency over intensity\n\n🏋️ Our trainer can design a personalized program - interested in a free session?"},
	{"lose weight", "🔥 **Weight Loss Strategy!** \n\nExcellent goal! Sustainable weight loss combines:\n\n🥗 Smart nutrition\n💪 Regular exercise\n📊 Consistent habits\n\n🎯 Most clients see results in 4-6 weeks! Want to schedule a free strategy session?"},
	{"fat", "⚡ **Fat Loss Formula!** \n\nEffective fat reduction requires:\n\n💪 Strength training (metabolism boost)\n🏃 Cardio sessions\n🥗 Calorie management\n\n📅 Our trainer creates customized programs - interested in a consultation?"},
	{"muscle", "💪 **Muscle Building Blueprint!** \n\nBuilding muscle requires:\n\n🏋️ Progressive overload\n🥗 Protein focus\n😴 Proper recovery\n\n🎯 Want to try a free introductory session with our strength specialists?"},
	{"strength", "🏋️ **Strength Training Program!** \n\nStrength training builds:\n\n💪 Muscle mass\n⚡ Metabolism\n🛡️ Joint protection\n\n🔥 Interested in learning about our strength packages during a free consultation?"},
	{"beginner", "🎯 **Welcome to Fitness!** \n\nStarting safely is crucial! Our beginner program includes:\n\n✅ Form instruction\n✅ Gradual progression\n✅ Confidence building\n\n😊 Want to schedule a free introductory session?"},
	{"start", "🚀 **Perfect Time to Begin!** \n\nWe start with a comprehensive assessment:\n\n📊 Fitness evaluation\n🎯 Goal setting\n💪 Custom program design\n\n📅 Want to experience the difference with a free trial session?"},
	{"price", "💰 **Investment in Your Health!** \n\nWe offer competitive pricing:\n\n💎 1-on-1: $75/session\n👥 Groups: $35/session\n📦 Packages: Save 15-20%\n\n🎯 Want to book a free consultation to discuss options?"},
	{"cost", "📊 **Budget-Friendly Options!** \n\nOur packages fit various budgets:\n\n💎 Personal training\n👥 Small groups\n🌐 Online coaching\n\n🔥 Package deals offer the best value. Free consultation available!"},
	{"nutrition", "🥗 **Nutrition Accelerator!** \n\nNutrition enhances results by:\n\n⚡ Boosting energy\n💪 Supporting recovery\n🔥 Enhancing fat loss\n\n🍎 Want to discuss nutrition in a free consultation?"},
	{"diet", "🍎 **Fuel for Results!** \n\nProper nutrition accelerates fitness results!\n\n🥗 Meal timing\n💪 Protein optimization\n🎯 Nutrient density\n\n📊 Free consultation includes nutrition guidance!"},
}

// DefaultTable returns the built-in table.
func DefaultTable() *Table {
	entries := make([]Entry, len(defaultEntries))
	copy(entries, defaultEntries)
	return &Table{entries: entries, deflt: DefaultResponse}
}

// NewTable builds a table from entries in match order. An empty deflt keeps
// DefaultResponse.
func NewTable(entries []Entry, deflt string) (*Table, error) {
	t := &Table{entries: make([]Entry, 0, len(entries)), deflt: deflt}
	for i, e := range entries {
		kw := strings.ToLower(strings.TrimSpace(e.Keyword))
		if kw == "" {
			return nil, fmt.Errorf("entry %d: keyword is required", i)
		}
		if strings.TrimSpace(e.Response) == "" {
			return nil, fmt.Errorf("entry %d (%s): response is required", i, kw)
		}
		t.entries = append(t.entries, Entry{Keyword: kw, Response: e.Response})
	}
	if strings.TrimSpace(t.deflt) == "" {
		t.deflt = DefaultResponse
	}
	return t, nil
}

type tableFile struct {
	Entries []Entry `yaml:"entries"`
	Default string  `yaml:"default"`
}

// LoadTable reads a YAML table:
//
//	entries:
//	  - keyword: workout
//	    response: "..."
//	default: "..."
func LoadTable(r io.Reader) (*Table, error) {
	var f tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("fallback table is empty")
		}
		return nil, fmt.Errorf("failed to parse fallback table: %w", err)
	}
	if len(f.Entries) == 0 {
		return nil, errors.New("fallback table has no entries")
	}
	return NewTable(f.Entries, f.Default)
}

// LoadTableFile reads a YAML table from path.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fallback table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// Match returns the reply for message and whether a keyword matched.
func (t *Table) Match(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, e := range t.entries {
		if strings.Contains(lower, e.Keyword) {
			return e.Response, true
		}
	}
	return t.deflt, false
}

// Entries returns a copy of the table in match order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Default returns the reply used when nothing matches.
func (t *Table) Default() string {
	return t.deflt
}
