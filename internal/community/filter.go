package community

import (
	"strings"
	"unicode"
)

// EllipsisMarker is appended to truncated replies
const EllipsisMarker = "…"

// overusedGlyphs are stripped from every generated reply
var overusedGlyphs = []string{"👀"}

// emojiComponents covers code points that only ever decorate an emoji:
// joiners, variation selectors, keycaps, skin tones and tag sequences.
var emojiComponents = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200d, Hi: 0x200d, Stride: 1},
		{Lo: 0x20e3, Hi: 0x20e3, Stride: 1},
		{Lo: 0xfe0e, Hi: 0xfe0f, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f1e6, Hi: 0x1f1ff, Stride: 1},
		{Lo: 0x1f3fb, Hi: 0x1f3ff, Stride: 1},
		{Lo: 0xe0020, Hi: 0xe007f, Stride: 1},
	},
}

// pictographs are the emoji and symbol blocks counted as decoration
var pictographs = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2190, Hi: 0x21ff, Stride: 1},
		{Lo: 0x2300, Hi: 0x23ff, Stride: 1},
		{Lo: 0x25a0, Hi: 0x27bf, Stride: 1},
		{Lo: 0x2900, Hi: 0x297f, Stride: 1},
		{Lo: 0x2b00, Hi: 0x2bff, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303d, Hi: 0x303d, Stride: 1},
		{Lo: 0x3297, Hi: 0x3299, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
	},
}

// isGlyph reports whether r is decoration rather than word content
func isGlyph(r rune) bool {
	return unicode.In(r, pictographs, emojiComponents, unicode.So, unicode.Sk)
}

// IsGlyphOnly reports whether text, ignoring whitespace, consists only of
// pictographic or symbol characters. Blank text is not glyph-only.
func IsGlyphOnly(text string) bool {
	seen := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		if !isGlyph(r) {
			return false
		}
		seen = true
	}
	return seen
}

// Filter sanitizes generator output before it may be appended
type Filter struct {
	// Cap is the maximum reply length in runes; zero disables truncation
	Cap int
}

// Apply strips overused glyphs, trims, rejects blank or glyph-only text and
// truncates to Cap runes plus EllipsisMarker. ok is false on rejection.
func (f Filter) Apply(text string) (string, bool) {
	for _, g := range overusedGlyphs {
		text = strings.ReplaceAll(text, g, "")
	}
	text = strings.TrimSpace(text)
	if text == "" || IsGlyphOnly(text) {
		return "", false
	}
	if f.Cap > 0 {
		runes := []rune(text)
		if len(runes) > f.Cap {
			text = string(runes[:f.Cap]) + EllipsisMarker
		}
	}
	return text, true
}
