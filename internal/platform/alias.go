package platform

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// aliasAttempts bounds the uniqueness counter loop before falling back to a
// random alias.
const aliasAttempts = 128

// randomAliasLength is the length of fallback aliases.
const randomAliasLength = 6

// defaultLegalSuffixes are company-name tokens dropped before deriving an
// alias, matched case-insensitively.
var defaultLegalSuffixes = []string{
	"inc", "llc", "ltd", "corp", "gmbh", "plc", "co", "company",
	"corporation", "incorporated", "limited", "ag", "sa", "bv", "oy",
	"ab", "as", "kk", "pty", "llp", "lp",
}

// AliasGenerator derives short, URL-safe organization aliases from company
// names.
type AliasGenerator struct {
	suffixes map[string]struct{}
}

// NewAliasGenerator creates a generator with the default legal-entity suffix
// set plus any extra suffixes from configuration.
func NewAliasGenerator(extraSuffixes []string) *AliasGenerator {
	suffixes := make(map[string]struct{}, len(defaultLegalSuffixes)+len(extraSuffixes))
	for _, s := range defaultLegalSuffixes {
		suffixes[s] = struct{}{}
	}
	for _, s := range extraSuffixes {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			suffixes[s] = struct{}{}
		}
	}
	return &AliasGenerator{suffixes: suffixes}
}

// Generate derives an alias for companyName that is not a member of existing.
// The result is never empty. Uniqueness is not guaranteed on the two fallback
// paths (no usable tokens, or the counter loop exhausting its attempts), both
// of which return a random alias; callers that require strict uniqueness must
// re-check after those.
func (g *AliasGenerator) Generate(companyName string, existing map[string]struct{}) (string, error) {
	if strings.TrimSpace(companyName) == "" {
		return "", fmt.Errorf("company name is empty")
	}

	tokens := g.tokenize(companyName)
	if len(tokens) == 0 {
		return randomAlias(), nil
	}

	candidate := aliasCandidate(tokens)

	base := candidate
	for i := 1; ; i++ {
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
		if i > aliasAttempts {
			return randomAlias(), nil
		}
		candidate = base + strconv.Itoa(i)
	}
}

// aliasCandidate applies the length rules to the cleaned token list.
func aliasCandidate(tokens []string) string {
	total := 0
	for _, t := range tokens {
		total += len([]rune(t))
	}
	if total < 21 {
		return strings.ToLower(strings.Join(tokens, ""))
	}

	if len(tokens) < 3 {
		candidate := truncate(tokens[0], 5)
		if len(tokens) > 1 {
			candidate += truncate(tokens[1], 5)
		}
		return strings.ToLower(candidate)
	}

	var initials strings.Builder
	for _, t := range tokens {
		initials.WriteRune([]rune(t)[0])
	}
	return strings.ToLower(initials.String())
}

// tokenize splits a company name on separators and camel-case boundaries,
// strips non-alphanumeric runes, and drops legal-entity suffixes.
func (g *AliasGenerator) tokenize(companyName string) []string {
	raw := strings.FieldsFunc(companyName, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '.'
	})

	var tokens []string
	for _, t := range raw {
		for _, part := range splitCamel(t) {
			part = stripNonAlnum(part)
			if part == "" {
				continue
			}
			if _, drop := g.suffixes[strings.ToLower(part)]; drop {
				continue
			}
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// splitCamel splits a token at lower-to-upper case transitions.
func splitCamel(s string) []string {
	runes := []rune(s)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func randomAlias() string {
	return NewName("")[:randomAliasLength]
}
