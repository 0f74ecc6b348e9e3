package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	"duochat/errors"
)

// Moderator masks forbidden words in message content before persistence.
// Matching is resilient to casing, Leet speak substitutions and interleaved
// punctuation, while the rewritten content keeps the original length and
// spacing.
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
	log          *slog.Logger
}

// mapping links the normalized search text back to rune positions in the
// original content.
type mapping struct {
	runes   []rune
	origIdx []int
}

// NewModerator builds the Aho-Corasick automaton from the dictionary.
// Entries that normalize to nothing (punctuation only, empty strings) are
// dropped; a dictionary with no usable entry is rejected with ErrEmptyWords.
func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (Moderator, error) {
	patterns := make([][]rune, 0, len(censoredWords))
	for _, word := range censoredWords {
		if normalized := normalizeWord([]rune(word)); len(normalized) > 0 {
			patterns = append(patterns, normalized)
		}
	}
	if len(patterns) == 0 {
		return Moderator{}, errors.ErrEmptyWords
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	log.Debug("Moderation dictionary loaded", "patterns", len(patterns))
	return Moderator{matcher: m, censoredChar: censoredChar, log: log}, nil
}

// Censor replaces every matched span with the replacement rune and returns
// the rewritten content together with the normalized words that were found,
// in match order.
func (m *Moderator) Censor(original string) (string, []string) {
	text := m.normalize(original)
	if len(text.runes) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(text.runes, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var found []string
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(text.origIdx) {
			continue
		}
		found = append(found, string(span.Word))

		// Mask the full original span, interleaved noise included.
		for i := text.origIdx[start]; i <= text.origIdx[end-1]; i++ {
			origRunes[i] = m.censoredChar
		}
	}
	return string(origRunes), found
}

func (m *Moderator) normalize(input string) mapping {
	origRunes := []rune(input)
	text := mapping{
		runes:   make([]rune, 0, len(origRunes)),
		origIdx: make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		folded := foldRune(r)
		if isNoise(folded) {
			continue
		}
		text.runes = append(text.runes, unicode.ToLower(folded))
		text.origIdx = append(text.origIdx, i)
	}
	return text
}

func normalizeWord(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		folded := foldRune(r)
		if isNoise(folded) {
			continue
		}
		out = append(out, unicode.ToLower(folded))
	}
	return out
}

// foldRune maps common Leet speak characters back to their alphabet
// counterparts.
func foldRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise reports characters ignored during matching.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
