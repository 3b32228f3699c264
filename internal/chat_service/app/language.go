package app

import (
	"regexp"
	"strings"
)

var (
	devanagariPattern = regexp.MustCompile(`[\x{0900}-\x{097F}]`)
	tamilPattern      = regexp.MustCompile(`[\x{0B80}-\x{0BFF}]`)
	teluguPattern     = regexp.MustCompile(`[\x{0C00}-\x{0C7F}]`)

	hinglishPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(hai|hain|kar|kya|aap|main|hum)\b`),
		regexp.MustCompile(`(?i)\b(paisa|rupee)\b`),
	}

	marathiMarkers = []string{"आहे", "होते", "करतो", "मराठी"}
	hindiMarkers   = []string{"है", "था", "करता", "हिंदी"}
)

// DetectLanguage guesses the language of a message from its script, with a
// keyword tiebreak between Hindi and Marathi (both Devanagari) and a word-list
// check for romanized Hindi ("en-IN"). Defaults to "en".
func DetectLanguage(text string) string {
	if devanagariPattern.MatchString(text) {
		marathi, hindi := 0, 0
		for _, w := range marathiMarkers {
			if strings.Contains(text, w) {
				marathi++
			}
		}
		for _, w := range hindiMarkers {
			if strings.Contains(text, w) {
				hindi++
			}
		}
		if marathi > hindi {
			return "mr"
		}
		return "hi"
	}
	if tamilPattern.MatchString(text) {
		return "ta"
	}
	if teluguPattern.MatchString(text) {
		return "te"
	}
	for _, p := range hinglishPatterns {
		if p.MatchString(text) {
			return "en-IN"
		}
	}
	return "en"
}
