package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// apostrophes are removed outright so that elided forms stay one word.
const apostrophes = "'’ʼ‘`´"

// letterFolds maps letters that carry no combining mark under NFD.
var letterFolds = strings.NewReplacer(
	"ł", "l", "Ł", "L",
	"ø", "o", "Ø", "O",
	"đ", "d", "Đ", "D",
	"ß", "ss", "ẞ", "SS",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ı", "i",
)

// Key returns the canonical reconciliation key of a partner name: Unicode
// NFC, case folded, punctuation treated as word separators and whitespace
// collapsed. Diacritics are preserved.
func Key(name string) string {
	s := norm.NFC.String(name)

	s = strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(apostrophes, r):
			return -1
		case unicode.IsPunct(r), unicode.IsSymbol(r), unicode.IsSpace(r):
			return ' '
		}
		return r
	}, s)

	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}

// FoldedKey is Key with diacritics stripped, so that Göttingen and
// Gottingen share a key.
func FoldedKey(name string) string {
	return Key(foldDiacritics(name))
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return letterFolds.Replace(folded)
}
