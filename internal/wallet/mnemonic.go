// Package wallet turns recovery phrases into Bitcoin key material. It
// generates and validates BIP-39 mnemonics, derives the BIP-84 account and
// first receive key, and defines the persisted WalletRecord.
package wallet

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"
)

// DefaultWordCount is the phrase length used when none is requested.
const DefaultWordCount = 12

// MaxTypoDistance is the largest Levenshtein distance still offered as a
// correction.
const MaxTypoDistance = 2

var (
	// ErrInvalidWordCount indicates an unsupported phrase length.
	ErrInvalidWordCount = errors.New("word count must be 12, 15, 18, 21 or 24")

	// ErrInvalidMnemonic indicates the phrase fails wordlist or checksum rules.
	ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")

	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
	bulletListRegex   = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// entropyBits maps phrase length to BIP-39 entropy size.
//
//nolint:gochecknoglobals // lookup table
var entropyBits = map[int]int{
	12: 128,
	15: 160,
	18: 192,
	21: 224,
	24: 256,
}

// GenerateMnemonic returns a new phrase of wordCount words drawn from
// crypto/rand. Zero selects DefaultWordCount.
func GenerateMnemonic(wordCount int) (string, error) {
	if wordCount == 0 {
		wordCount = DefaultWordCount
	}
	bits, ok := entropyBits[wordCount]
	if !ok {
		return "", ErrInvalidWordCount
	}

	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("generating entropy: %w", err)
	}
	defer clear(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("encoding mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic reports whether phrase is a well-formed BIP-39 mnemonic.
// It never panics on malformed input.
func ValidateMnemonic(phrase string) bool {
	return CheckMnemonic(phrase) == nil
}

// CheckMnemonic is ValidateMnemonic with an error describing the failure.
func CheckMnemonic(phrase string) error {
	normalized := NormalizeMnemonicInput(phrase)
	if normalized == "" {
		return ErrInvalidMnemonic
	}

	count := len(strings.Fields(normalized))
	if _, ok := entropyBits[count]; !ok {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidMnemonic, ErrInvalidWordCount, count)
	}

	// MnemonicToByteArray checks word membership and the checksum.
	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return ErrInvalidMnemonic
	}
	return nil
}

// NormalizeMnemonicInput lowercases a pasted phrase, strips list numbering,
// bullets and commas, and collapses whitespace to single spaces.
func NormalizeMnemonicInput(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// MnemonicToSeed returns the 64-byte BIP-39 seed. Callers zero it after use.
func MnemonicToSeed(phrase, passphrase string) ([]byte, error) {
	normalized := NormalizeMnemonicInput(phrase)
	if err := CheckMnemonic(normalized); err != nil {
		return nil, err
	}
	return bip39.NewSeed(normalized, passphrase), nil
}

// IsValidWord reports whether word is in the English BIP-39 list.
func IsValidWord(word string) bool {
	_, ok := bip39.GetWordIndex(strings.ToLower(word))
	return ok
}

// TypoInfo describes a word that is not in the wordlist.
type TypoInfo struct {
	Index      int    // 0-based position in the phrase
	Word       string // word as typed
	Suggestion string // closest list word, empty if none within MaxTypoDistance
	Distance   int
}

// SuggestWord returns the closest wordlist entry to input, or "" when
// nothing is within MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)
	if IsValidWord(input) {
		return input
	}

	best, bestDist := "", math.MaxInt
	for _, word := range bip39.GetWordList() {
		if d := levenshtein.ComputeDistance(input, word); d < bestDist {
			best, bestDist = word, d
		}
	}
	if bestDist <= MaxTypoDistance {
		return best
	}
	return ""
}

// DetectTypos lists every word of phrase that is not in the wordlist.
func DetectTypos(phrase string) []TypoInfo {
	var typos []TypoInfo
	for i, word := range strings.Fields(NormalizeMnemonicInput(phrase)) {
		if IsValidWord(word) {
			continue
		}
		info := TypoInfo{Index: i, Word: word, Suggestion: SuggestWord(word)}
		if info.Suggestion != "" {
			info.Distance = levenshtein.ComputeDistance(word, info.Suggestion)
		}
		typos = append(typos, info)
	}
	return typos
}

// FormatTypoSuggestions renders typos as one human-readable line each.
func FormatTypoSuggestions(typos []TypoInfo) string {
	lines := make([]string, 0, len(typos))
	for _, typo := range typos {
		line := "Word " + strconv.Itoa(typo.Index+1) + ": '" + typo.Word + "'"
		if typo.Suggestion != "" {
			line += " - did you mean '" + typo.Suggestion + "'?"
		} else {
			line += " is not a valid BIP39 word"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
