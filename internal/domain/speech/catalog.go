package speech

import "strings"

type VoiceOption struct {
	Value string
	Label string
}

type VoiceCategory struct {
	Label   string
	Options []VoiceOption
}

// ToneOption is a named style preset. DefaultRate is zero when the preset
// does not suggest a speaking rate.
type ToneOption struct {
	Key         string
	Value       string
	Label       string
	DefaultRate float64
}

var Voices = []VoiceCategory{
	{
		Label: "Female voices",
		Options: []VoiceOption{
			{Value: "Kore", Label: "Kore: clear female voice, storytelling"},
			{Value: "Zephyr", Label: "Zephyr: gentle female voice, relaxing"},
			{Value: "Aoede", Label: "Aoede: elegant female voice, composed"},
		},
	},
	{
		Label: "Male voices",
		Options: []VoiceOption{
			{Value: "Puck", Label: "Puck: playful male voice, lively"},
			{Value: "Charon", Label: "Charon: deep male voice, mysterious"},
			{Value: "Fenrir", Label: "Fenrir: strong male voice, gruff"},
		},
	},
}

var Tones = []ToneOption{
	{Key: "default", Value: "", Label: "Default"},
	{Key: "storytelling", Value: "storytelling, expressive", Label: "Storytelling", DefaultRate: 0.9},
	{Key: "bedtime", Value: "soothing bedtime storyteller, extremely slow, gentle and soft", Label: "Bedtime story", DefaultRate: 0.7},
	{Key: "advertising", Value: "energetic, persuasive", Label: "Advertising", DefaultRate: 1.15},
	{Key: "news", Value: "formal, clear", Label: "News", DefaultRate: 1.1},
	{Key: "audiobook", Value: "gentle, unhurried", Label: "Audiobook"},
	{Key: "children", Value: "cheerful, friendly", Label: "Children"},
	{Key: "callcentre", Value: "professional, polite", Label: "Call centre"},
}

// DefaultVoice is the first voice of the catalog.
func DefaultVoice() string {
	return Voices[0].Options[0].Value
}

// FindVoice looks a voice up by value, case-insensitively.
func FindVoice(value string) (VoiceOption, bool) {
	for _, c := range Voices {
		for _, o := range c.Options {
			if strings.EqualFold(o.Value, value) {
				return o, true
			}
		}
	}
	return VoiceOption{}, false
}

// ResolveTone turns a preset key into its style text. Anything that is not a
// preset key is a custom tone and is returned verbatim.
func ResolveTone(s string) ToneOption {
	if strings.TrimSpace(s) == "" {
		return Tones[0]
	}
	for _, t := range Tones {
		if strings.EqualFold(t.Key, s) {
			return t
		}
	}
	return ToneOption{Key: "custom", Value: strings.TrimSpace(s), Label: "Custom"}
}
