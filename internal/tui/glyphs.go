package tui

import "sync"

// Some fonts render box and arrow glyphs badly; tui.glyphs=ascii swaps in
// plain characters.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

func applyGlyphPreference(name string) {
	switch name {
	case "ascii":
		setGlyphs(glyphSetASCII)
	default:
		setGlyphs(glyphSetUnicode)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	defer glyphsMu.RUnlock()
	return currentGlyphs
}

func pick(unicode, ascii string) string {
	if glyphs() == glyphSetASCII {
		return ascii
	}
	return unicode
}

func glyphBullet() string  { return pick("•", "*") }
func glyphArrow() string   { return pick("→", "->") }
func glyphHRule() string   { return pick("─", "-") }
func glyphUnread() string  { return pick("●", "o") }
func glyphCursor() string  { return pick("▸", ">") }
func glyphRunning() string { return pick("▶", ">") }
func glyphPaused() string  { return pick("⏸", "=") }
