package tool

import (
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"
)

//go:embed cities.json
var citiesRaw []byte

// City is one entry of the embedded city database. Slug is the form the
// cost-of-living comparison URL expects.
type City struct {
	Name    string   `json:"name"`
	City    string   `json:"city"`
	State   string   `json:"state"`
	Slug    string   `json:"slug"`
	Aliases []string `json:"aliases"`
}

// CityDB resolves free-form city names to comparison URL slugs. Resolution
// tries exact names, then aliases, then fuzzy matching, then falls back to
// mechanical slugging so an unlisted city still produces a usable URL.
type CityDB struct {
	cities  []City
	byExact map[string]*City
	cutoff  float64
}

const fuzzyCutoff = 0.6

// NewCityDB loads the embedded database.
func NewCityDB() (*CityDB, error) {
	var cities []City
	if err := json.Unmarshal(citiesRaw, &cities); err != nil {
		return nil, err
	}
	db := &CityDB{cities: cities, byExact: make(map[string]*City), cutoff: fuzzyCutoff}
	for i := range cities {
		c := &cities[i]
		db.byExact[strings.ToLower(c.Name)] = c
		db.byExact[strings.ToLower(c.City)] = c
		for _, a := range c.Aliases {
			db.byExact[strings.ToLower(a)] = c
		}
	}
	return db, nil
}

// Match returns the best database entry for the given name, or nil when
// nothing clears the fuzzy cutoff.
func (db *CityDB) Match(name string) *City {
	norm := strings.ToLower(strings.TrimSpace(name))
	if norm == "" {
		return nil
	}
	if c, ok := db.byExact[norm]; ok {
		return c
	}

	var best *City
	bestScore := db.cutoff
	for i := range db.cities {
		c := &db.cities[i]
		score := similarity(norm, strings.ToLower(c.Name))
		if s := similarity(norm, strings.ToLower(c.City)); s > score {
			score = s
		}
		if score >= bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

var (
	stateSuffix   = regexp.MustCompile(`(?i),?\s*(AL|AK|AZ|AR|CA|CO|CT|DE|FL|GA|HI|ID|IL|IN|IA|KS|KY|LA|ME|MD|MA|MI|MN|MS|MO|MT|NE|NV|NH|NJ|NM|NY|NC|ND|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VT|VA|WA|WV|WI|WY)\s*$`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9-]`)
	dashCollapser = regexp.MustCompile(`-+`)
)

// Slug returns the comparison URL slug for a city name: the matched
// database slug when available, otherwise a mechanical lowercase-dashed
// form with any trailing state abbreviation stripped.
func (db *CityDB) Slug(name string) string {
	if c := db.Match(name); c != nil {
		return c.Slug
	}
	s := stateSuffix.ReplaceAllString(strings.TrimSpace(name), "")
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	s = nonSlugChars.ReplaceAllString(s, "")
	return dashCollapser.ReplaceAllString(s, "-")
}

// similarity is a difflib-style ratio over edit distance: 1 is identical,
// 0 shares nothing.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	d := editDistance(a, b)
	return 1 - float64(2*d)/float64(len(a)+len(b)+d)
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
