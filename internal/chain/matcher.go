package chain

import (
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rmazzini/erp-approvals/internal/domain"
)

// Upstream rosters store approver identity inconsistently: full display
// names, short logins, accented or truncated forms. The matcher is an
// explicit ordered rule list so ambiguous cases stay enumerable and
// individual rules can be tightened without touching the state machine.

type callerIdentity struct {
	login   string // normalized full login
	local   string // local part of the login
	compact string // local part with punctuation removed
	surname string // final token of the local part
}

func newCallerIdentity(login string) callerIdentity {
	n := normalize(login)
	local, _, _ := strings.Cut(n, "@")
	tokens := splitTokens(local)
	surname := ""
	if len(tokens) > 0 {
		surname = tokens[len(tokens)-1]
	}
	return callerIdentity{
		login:   n,
		local:   local,
		compact: stripPunct(local),
		surname: surname,
	}
}

func (c callerIdentity) exact(candidate string) bool {
	return candidate != "" && (candidate == c.login || candidate == c.local)
}

type matchRule struct {
	name  string
	fuzzy bool
	match func(c callerIdentity, e domain.RosterEntry) bool
}

// identifiers returns every stored form of the entry's approver, normalized.
func identifiers(e domain.RosterEntry) []string {
	return []string{normalize(e.ApproverID), normalize(e.Identifier), normalize(e.DisplayName)}
}

// Rules in priority order; earlier rules are more trustworthy.
var matchRules = []matchRule{
	{
		name: "exact-identifier",
		match: func(c callerIdentity, e domain.RosterEntry) bool {
			return c.exact(normalize(e.ApproverID)) || c.exact(normalize(e.Identifier))
		},
	},
	{
		name: "exact-name",
		match: func(c callerIdentity, e domain.RosterEntry) bool {
			return c.exact(normalize(e.DisplayName))
		},
	},
	{
		name:  "stripped-local",
		fuzzy: true,
		match: func(c callerIdentity, e domain.RosterEntry) bool {
			if c.compact == "" {
				return false
			}
			for _, id := range identifiers(e) {
				if id != "" && stripPunct(id) == c.compact {
					return true
				}
			}
			return false
		},
	},
	{
		name:  "surname",
		fuzzy: true,
		match: func(c callerIdentity, e domain.RosterEntry) bool {
			if c.surname == "" {
				return false
			}
			for _, id := range identifiers(e) {
				tokens := splitTokens(id)
				if len(tokens) > 0 && tokens[len(tokens)-1] == c.surname {
					return true
				}
			}
			return false
		},
	},
	{
		name:  "initial-surname",
		fuzzy: true,
		match: func(c callerIdentity, e domain.RosterEntry) bool {
			if c.compact == "" {
				return false
			}
			callerIS := initialSurname(splitTokens(c.local))
			for _, id := range identifiers(e) {
				if id == "" {
					continue
				}
				// Caller "loliveira" against a stored "lais.oliveira", and
				// the converse, stored "loliveira" vs caller "lais.oliveira".
				if is := initialSurname(splitTokens(id)); is != "" && is == c.compact {
					return true
				}
				if callerIS != "" && callerIS == stripPunct(id) {
					return true
				}
			}
			return false
		},
	},
}

// Matcher locates a caller's position in a roster.
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher creates a matcher. A nil logger disables fuzzy-match events.
func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Matcher{logger: logger}
}

// Match returns the index of the first roster entry (in chain order)
// matching the caller's login via any rule, plus the rule that matched.
func (m *Matcher) Match(roster []domain.RosterEntry, login string) (int, string, bool) {
	caller := newCallerIdentity(login)
	if caller.local == "" {
		return -1, "", false
	}

	for i, entry := range roster {
		for _, rule := range matchRules {
			if rule.match(caller, entry) {
				if rule.fuzzy {
					m.logger.Info("fuzzy identity match",
						slog.String("rule", rule.name),
						slog.String("caller", login),
						slog.String("matched", entry.ApproverID),
						slog.Int("index", i),
					)
				}
				return i, rule.name, true
			}
		}
	}
	return -1, "", false
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	out, _, err := transform.String(deaccent, s)
	if err != nil {
		return s
	}
	return out
}

func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == ' '
	})
}

func stripPunct(s string) string {
	return strings.Join(splitTokens(s), "")
}

// initialSurname derives "first-initial + surname" from name tokens,
// e.g. ["lais","oliveira"] -> "loliveira". Empty when fewer than two tokens.
func initialSurname(tokens []string) string {
	if len(tokens) < 2 {
		return ""
	}
	first := tokens[0]
	last := tokens[len(tokens)-1]
	if first == "" || last == "" {
		return ""
	}
	return first[:1] + last
}
