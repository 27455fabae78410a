package conversation

import (
	"fmt"
	"strings"

	"github.com/jkindrix/fitai/internal/domain"
)

// Greeting opens every widget conversation.
const Greeting = "👋 **Welcome to FitAI!** \n\nI'm here to help you achieve your fitness goals!\n\nWhat would you like to accomplish with your fitness journey?"

// ConnectionIssue is shown when a turn fails for reasons the visitor cannot fix.
const ConnectionIssue = "❌ **Connection Issue** \n\nPlease try again."

var positiveTokens = []string{
	"yes", "sure", "ready", "book", "schedule", "consult", "lets go", "let's go",
	"ok", "okay", "yeah", "yep", "yup", "absolutely", "definitely",
}

// IsPositiveResponse reports whether text contains an affirmative token,
// ignoring case. Matching is by substring, so "booking" and "okay!" count.
func IsPositiveResponse(text string) bool {
	lower := strings.ToLower(text)
	for _, tok := range positiveTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// BookingMessage is sent when the visitor agrees to book.
func BookingMessage(link string) string {
	return fmt.Sprintf("✅ **Perfect! Let's get you scheduled!**\n\n"+
		"Here's my Calendly link to book your free consultation:\n\n"+
		"📅 **Book Your Session:** %s\n\n"+
		"I recommend booking soon as spots fill up quickly! Once you've picked a time, you'll get a confirmation email with all the details.\n\n"+
		"**Pro tip:** Book now while you're motivated! I'm excited to help you achieve your fitness goals! 🏋️‍♂️", link)
}

// ButtonBookingMessage is sent when the visitor presses the book button. It
// echoes the goal, experience and availability they gave.
func ButtonBookingMessage(link string, r domain.LeadRecord) string {
	return fmt.Sprintf("✅ **Let's get you scheduled!**\n\n"+
		"Here's my Calendly link to book your free consultation:\n\n"+
		"📅 **Book Your Session:** %s\n\n"+
		"I recommend booking soon as spots fill up quickly! I'm excited to help you achieve:\n"+
		"• %s\n"+
		"• %s level training\n"+
		"• %s\n\n"+
		"**Don't wait** - the best time to start is now! 🏋️‍♂️",
		link, r[domain.FieldGoal], r[domain.FieldExperience], r[domain.FieldFrequency])
}

var nudges = []string{
	"I'm really excited to work with you! Have you had a chance to check the booking link? Spots are filling up fast this week! 🚀",
	"Just a friendly reminder - the consultation is completely free and we can get started right away. Did the booking link work for you?",
	"I noticed you're still here! If you're having any trouble with the booking link or have questions, let me know. Otherwise, I'd grab a spot soon! ⏰",
	"The best time to start your fitness journey is now! Have you picked a consultation time yet? I'm excited to help you achieve your goals! 💪",
	"Don't wait too long to book - motivation is highest right after making the decision! Need help with the booking process?",
	"I'm here if you have any questions about the consultation! Otherwise, I'd recommend booking soon to secure your preferred time. 📅",
}

// Nudges returns the encouragement pool used after the booking link is sent.
func Nudges() []string {
	return append([]string(nil), nudges...)
}

// Nudge picks an encouragement message from seed. The same seed always
// yields the same message, and seeds are spread uniformly over the pool.
func Nudge(seed int64) string {
	i := seed % int64(len(nudges))
	if i < 0 {
		i = -i
	}
	return nudges[i]
}
