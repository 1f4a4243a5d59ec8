package assistant

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// MaxResults is the number of notes Rank returns at most.
	MaxResults = 3

	// phraseBonus is added when the whole query occurs verbatim in a note.
	phraseBonus = 5

	// tokens of this length or shorter carry no signal ("is", "of", "a").
	shortTokenLen = 2
)

// Tokenize lower-cases the query, splits it on whitespace and drops short tokens.
func Tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > shortTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Surface is the lower-cased text a note is matched against: title, subject,
// content (body or description) and description.
func Surface(d Document) string {
	return strings.ToLower(d.Title + " " + d.Subject + " " + d.Content() + " " + d.Description)
}

// Score rates a single note against the query.
// Every distinct query token found in the surface is worth one point; the whole
// query found verbatim is worth phraseBonus more.
func Score(query string, d Document) int {
	return score(normalizeQuery(query), distinct(Tokenize(query)), Surface(d))
}

// Rank returns up to MaxResults notes ordered by descending score.
// Notes scoring zero are dropped; equal scores keep corpus order.
//
// The phrase bonus compares the query as given, only lower-cased, so surrounding
// whitespace must be trimmed by the caller. A query that is blank after trimming
// counts as the empty phrase and matches every note through the bonus, because
// the empty string occurs in any text. Callers that want to reject blank input
// must do so before calling Rank.
func Rank(query string, docs []Document) []Document {
	phrase := normalizeQuery(query)
	tokens := distinct(Tokenize(query))

	type scored struct {
		doc   Document
		score int
	}

	hits := make([]scored, 0, len(docs))
	for _, d := range docs {
		if s := score(phrase, tokens, Surface(d)); s > 0 {
			hits = append(hits, scored{doc: d, score: s})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if len(hits) > MaxResults {
		hits = hits[:MaxResults]
	}

	out := make([]Document, len(hits))
	for i, h := range hits {
		out[i] = h.doc
	}
	return out
}

func score(phrase string, tokens []string, surface string) int {
	s := 0
	for _, t := range tokens {
		if strings.Contains(surface, t) {
			s++
		}
	}
	if strings.Contains(surface, phrase) {
		s += phraseBonus
	}
	return s
}

func normalizeQuery(query string) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}
	return strings.ToLower(query)
}

func distinct(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
