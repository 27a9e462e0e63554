package tts

import "strings"

// BuildPrompt prefixes text with a spoken-style instruction derived from
// tone, rate and pitch. Without any qualifier the text is returned as is.
func BuildPrompt(text string, rate, pitch float64, tone string) string {
	var parts []string

	if t := strings.TrimSpace(tone); t != "" {
		parts = append(parts, t)
	}
	if q := rateQualifier(rate); q != "" {
		parts = append(parts, q)
	}
	if q := pitchQualifier(pitch); q != "" {
		parts = append(parts, q)
	}

	if len(parts) == 0 {
		return text
	}
	return "Read the following text in a " + strings.Join(parts, ", ") + " voice: " + text
}

func rateQualifier(rate float64) string {
	switch {
	case rate <= 0.5:
		return "very slow"
	case rate < 0.9:
		return "slow"
	case rate >= 1.75:
		return "very fast"
	case rate > 1.2:
		return "fast"
	}
	return ""
}

func pitchQualifier(pitch float64) string {
	switch {
	case pitch <= -5:
		return "very low pitch"
	case pitch < -1:
		return "low pitch"
	case pitch >= 5:
		return "very high pitch"
	case pitch > 1:
		return "high pitch"
	}
	return ""
}
