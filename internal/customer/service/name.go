package service

import "strings"

const honorific = "様"

// NormalizeName formats a customer name for the order slip: hiragana is
// folded to katakana and the honorific appended. Names that already carry
// the honorific are returned trimmed but otherwise unchanged.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasSuffix(name, honorific) {
		return name
	}
	return strings.Map(toKatakana, name) + " " + honorific
}

func toKatakana(r rune) rune {
	if r >= 0x3041 && r <= 0x3096 {
		return r + 0x60
	}
	return r
}
