package tts

import (
	"strings"
	"unicode"
)

// Contractions the character voice tends to mangle; expanding them keeps the
// spoken audio consistent with the displayed reply text.
var contractionReplacer = strings.NewReplacer(
	"won't", "will not",
	"Won't", "Will not",
	"can't", "cannot",
	"Can't", "Cannot",
	"n't", " not",
	"'ll", " will",
	"'re", " are",
	"'ve", " have",
	"I'm", "I am",
	"i'm", "i am",
	"it's", "it is",
	"It's", "It is",
	"that's", "that is",
	"That's", "That is",
	"there's", "there is",
	"There's", "There is",
	"let's", "let us",
	"Let's", "Let us",
)

// Mis-encoded punctuation seen in backend replies (UTF-8 double-decoded as
// Windows-1252). The match strings look like a bare "â" but carry the
// invisible C1 continuation characters.
var mojibakeReplacer = strings.NewReplacer(
	"â", "'", // right single quote
	"â", "'", // left single quote
	"â", "\"", // left double quote
	"â", "\"", // right double quote
	"â", " - ", // en dash
	"â", " - ", // em dash
	"â¦", "...", // ellipsis
)

// Typographic characters the engines pronounce oddly.
var typographicReplacer = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"“", "\"",
	"”", "\"",
	"—", " - ",
	"–", " - ",
	"…", "...",
)

// Normalize applies deterministic speech-consistency cleanup before
// synthesis: fix mis-encoded punctuation, expand contractions the character
// voice stumbles over, and strip characters the engines cannot encode.
// The same normalization is applied to displayed text so what is heard
// matches what is shown.
func Normalize(text string) string {
	text = mojibakeReplacer.Replace(text)
	text = typographicReplacer.Replace(text)
	text = contractionReplacer.Replace(text)

	var b strings.Builder
	b.Grow(len(text))
	prevSpace := true
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		case r > unicode.MaxASCII || unicode.IsControl(r):
			// Emoji and other non-encodable glyphs sound wrong when spoken.
			continue
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
