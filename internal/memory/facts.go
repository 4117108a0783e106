package memory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jwhitt/kindred/internal/store"
)

// Fact categories used by the extraction rules.
const (
	CategoryIdentity      = "identity"
	CategoryRelationships = "relationships"
	CategoryPreferences   = "preferences"
	CategoryStatus        = "status"
)

var (
	namePatterns = []string{
		"my name is ", "i'm called ", "call me ", "i am ", "name's ", "i'm ",
	}
	nicknamePatterns = []string{
		"my nickname is ", "but call me ", "nickname is ", "people call me ",
		"but my nickname is ",
	}
	locationPatterns = []string{
		"i live in ", "i'm from ", "i'm in ", "living in ", "based in ", "i'm based in ",
	}
	occupationPatterns = []string{
		"i'm a ", "i am a ", "i work as ", "i work as a ", "my job is ",
		"i'm an ", "i am an ", "working as ",
	}

	petTypes = []struct {
		kind     string
		patterns []string
	}{
		{"dog", []string{"my dog", "i have a dog", "got a dog", "and a dog",
			"a dog called", "a dog named", "dog called", "dog named"}},
		{"cat", []string{"my cat", "i have a cat", "got a cat", "and a cat",
			"a cat called", "a cat named", "cat called", "cat named"}},
		{"pet", []string{"my pet", "i have a pet", "got a pet"}},
	}

	spouseTypes = []struct {
		key      string
		patterns []string
	}{
		{"wife", []string{"my wife"}},
		{"husband", []string{"my husband"}},
		{"partner", []string{"my partner"}},
		{"spouse", []string{"my spouse"}},
	}

	colorKeywords = []string{
		"red", "blue", "green", "yellow", "purple", "orange",
		"pink", "black", "white", "brown", "gray", "grey", "silver", "gold",
	}

	starSigns = []string{
		"aries", "taurus", "gemini", "cancer", "leo", "virgo",
		"libra", "scorpio", "sagittarius", "capricorn", "aquarius", "pisces",
	}

	monthNames = []string{
		"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december",
	}

	marriedRe = regexp.MustCompile(`married.*?(\d+|one|two|three|four|five|six|seven|eight|nine|ten)\s*(year|month)`)
	ageRe     = regexp.MustCompile(`i'?m?\s+(\d{1,3})(\s+years?\s+old)?`)
)

// SetFact stores a durable fact. Last write wins.
func (m *Manager) SetFact(category, key, value, source string) error {
	return m.db.UpsertFact(m.userID, category, key, value, source)
}

// GetFact returns a fact value, or "" when absent.
func (m *Manager) GetFact(category, key string) (string, error) {
	f, err := m.db.GetFact(m.userID, category, key)
	if err != nil {
		return "", err
	}
	if f == nil {
		return "", nil
	}
	return f.Value, nil
}

// DeleteFact removes a fact.
func (m *Manager) DeleteFact(category, key string) (bool, error) {
	return m.db.DeleteFact(m.userID, category, key)
}

// AllFacts returns every stored fact for the user.
func (m *Manager) AllFacts() ([]store.Fact, error) {
	return m.db.AllFacts(m.userID)
}

// ExtractFacts scans one user message for durable profile facts and
// stores whatever it finds. Returns the number of facts written.
//
// Rules fire in a fixed order (name, nickname, pets, color, location,
// spouse, marriage duration, occupation, retirement, star sign, birth
// month, age) so repeated extraction is deterministic.
func (m *Manager) ExtractFacts(message string) (int, error) {
	lower := strings.ToLower(message)
	count := 0

	// Name. Patterns are tried in order; the first hit wins.
	for _, p := range namePatterns {
		if name, ok := firstWordAfter(message, lower, p); ok {
			if err := m.SetFact(CategoryIdentity, "name", name, "conversation"); err != nil {
				return count, err
			}
			count++
			break
		}
	}

	for _, p := range nicknamePatterns {
		if nick, ok := firstWordAfter(message, lower, p); ok {
			if err := m.SetFact(CategoryIdentity, "nickname", nick, "conversation"); err != nil {
				return count, err
			}
			count++
			break
		}
	}

	// Pets. A named pet gets its own key; otherwise just ownership.
	for _, pet := range petTypes {
		for _, p := range pet.patterns {
			if !strings.Contains(lower, p) {
				continue
			}
			petName := ""
			for _, kw := range []string{"named ", "called "} {
				if idx := strings.Index(lower, kw); idx >= 0 {
					rest := strings.TrimSpace(message[idx+len(kw):])
					petName = cleanWord(strings.SplitN(rest, ",", 2)[0])
					break
				}
			}
			if petName != "" {
				key := fmt.Sprintf("pet_%s_%s", pet.kind, strings.ToLower(petName))
				value := fmt.Sprintf("%s named %s", pet.kind, petName)
				if err := m.SetFact(CategoryRelationships, key, value, "conversation"); err != nil {
					return count, err
				}
			} else {
				if err := m.SetFact(CategoryRelationships, "has_"+pet.kind, "true", "conversation"); err != nil {
					return count, err
				}
			}
			count++
			break
		}
	}

	// Favorite color, UK and US spelling.
	if strings.Contains(lower, "favorite color") || strings.Contains(lower, "favourite colour") ||
		strings.Contains(lower, "favourite color") {
		for _, c := range colorKeywords {
			if strings.Contains(lower, c) {
				if err := m.SetFact(CategoryPreferences, "favorite_color", c, "conversation"); err != nil {
					return count, err
				}
				count++
				break
			}
		}
	}

	// Location: up to the first comma or period, title-cased.
	for _, p := range locationPatterns {
		if idx := strings.Index(lower, p); idx >= 0 {
			rest := strings.TrimSpace(message[idx+len(p):])
			loc := strings.TrimSpace(strings.SplitN(strings.SplitN(rest, ",", 2)[0], ".", 2)[0])
			if len(loc) > 2 {
				if err := m.SetFact(CategoryIdentity, "location", titleCase(loc), "conversation"); err != nil {
					return count, err
				}
				count++
				break
			}
		}
	}

	// Spouse or partner, name after "called" or "is".
	for _, sp := range spouseTypes {
		matched := false
		for _, p := range sp.patterns {
			if strings.Contains(lower, p) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		name := ""
		for _, kw := range []string{"called ", "is "} {
			if idx := strings.Index(lower, kw); idx >= 0 {
				rest := strings.TrimSpace(message[idx+len(kw):])
				name = cleanWord(strings.SplitN(rest, ",", 2)[0])
				break
			}
		}
		if name != "" {
			if err := m.SetFact(CategoryRelationships, sp.key, name, "conversation"); err != nil {
				return count, err
			}
			count++
		}
	}

	// Marriage duration.
	if strings.Contains(lower, "married") &&
		(strings.Contains(lower, "year") || strings.Contains(lower, "month")) {
		if match := marriedRe.FindStringSubmatch(lower); match != nil {
			value := match[1] + " " + match[2] + "s"
			if err := m.SetFact(CategoryRelationships, "married_duration", value, "conversation"); err != nil {
				return count, err
			}
			count++
		}
	}

	// Occupation: up to the first comma, period, or exclamation.
	for _, p := range occupationPatterns {
		if idx := strings.Index(lower, p); idx >= 0 {
			rest := strings.TrimSpace(message[idx+len(p):])
			occ := rest
			for _, sep := range []string{",", ".", "!"} {
				occ = strings.SplitN(occ, sep, 2)[0]
			}
			occ = strings.TrimSpace(occ)
			if len(occ) > 2 {
				if err := m.SetFact(CategoryStatus, "occupation", occ, "conversation"); err != nil {
					return count, err
				}
				count++
				break
			}
		}
	}

	if strings.Contains(lower, "retired") {
		if err := m.SetFact(CategoryStatus, "retired", "true", "conversation"); err != nil {
			return count, err
		}
		count++
	}

	if strings.Contains(lower, "star sign") || strings.Contains(lower, "zodiac") {
		for _, sign := range starSigns {
			if strings.Contains(lower, sign) {
				if err := m.SetFact(CategoryIdentity, "star_sign", titleCase(sign), "conversation"); err != nil {
					return count, err
				}
				count++
				break
			}
		}
	}

	if strings.Contains(lower, "born in ") || strings.Contains(lower, "birthday") {
		for _, month := range monthNames {
			if strings.Contains(lower, month) {
				if err := m.SetFact(CategoryIdentity, "birth_month", titleCase(month), "conversation"); err != nil {
					return count, err
				}
				count++
				break
			}
		}
	}

	if strings.Contains(lower, "i'm ") || strings.Contains(lower, "i am ") {
		if match := ageRe.FindStringSubmatch(lower); match != nil {
			if age, err := strconv.Atoi(match[1]); err == nil && age >= 1 && age <= 120 {
				if err := m.SetFact(CategoryIdentity, "age", match[1], "conversation"); err != nil {
					return count, err
				}
				count++
			}
		}
	}

	return count, nil
}

// FactsPromptBlock formats all facts for inclusion in a system prompt.
func (m *Manager) FactsPromptBlock() (string, error) {
	facts, err := m.AllFacts()
	if err != nil {
		return "", err
	}
	if len(facts) == 0 {
		return "No persistent facts stored yet.", nil
	}

	var b strings.Builder
	b.WriteString("=== PERSISTENT FACTS (Never Forget) ===")
	current := ""
	for _, f := range facts {
		if f.Category != current {
			current = f.Category
			b.WriteString("\n\n" + strings.ToUpper(current) + ":")
		}
		b.WriteString(fmt.Sprintf("\n  - %s: %s", f.Key, f.Value))
	}
	return b.String(), nil
}

// firstWordAfter extracts the first word following a pattern, cleaned
// of trailing punctuation and capitalized. ok is false if the word is
// too short or not alphabetic.
func firstWordAfter(original, lower, pattern string) (string, bool) {
	idx := strings.Index(lower, pattern)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimSpace(original[idx+len(pattern):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", false
	}
	word := cleanWord(fields[0])
	if word == "" {
		return "", false
	}
	return word, true
}

// cleanWord strips punctuation, validates the token is alphabetic and
// longer than one rune, and capitalizes it.
func cleanWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	w := strings.Trim(fields[0], ".,!?")
	if len(w) < 2 {
		return ""
	}
	for _, r := range w {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return ""
		}
	}
	return titleCase(w)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
