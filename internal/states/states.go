// Package states holds the fixed table of U.S. states the atlas is partitioned by.
package states

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// State is one of the 50 U.S. states.
type State struct {
	Name string // Title Case, also the directory name under states/
	Abbr string // USPS abbreviation
	FIPS string // 2-digit state FIPS code
}

// All lists the 50 states in alphabetical order.
var All = []State{
	{"Alabama", "AL", "01"}, {"Alaska", "AK", "02"}, {"Arizona", "AZ", "04"},
	{"Arkansas", "AR", "05"}, {"California", "CA", "06"}, {"Colorado", "CO", "08"},
	{"Connecticut", "CT", "09"}, {"Delaware", "DE", "10"}, {"Florida", "FL", "12"},
	{"Georgia", "GA", "13"}, {"Hawaii", "HI", "15"}, {"Idaho", "ID", "16"},
	{"Illinois", "IL", "17"}, {"Indiana", "IN", "18"}, {"Iowa", "IA", "19"},
	{"Kansas", "KS", "20"}, {"Kentucky", "KY", "21"}, {"Louisiana", "LA", "22"},
	{"Maine", "ME", "23"}, {"Maryland", "MD", "24"}, {"Massachusetts", "MA", "25"},
	{"Michigan", "MI", "26"}, {"Minnesota", "MN", "27"}, {"Mississippi", "MS", "28"},
	{"Missouri", "MO", "29"}, {"Montana", "MT", "30"}, {"Nebraska", "NE", "31"},
	{"Nevada", "NV", "32"}, {"New Hampshire", "NH", "33"}, {"New Jersey", "NJ", "34"},
	{"New Mexico", "NM", "35"}, {"New York", "NY", "36"}, {"North Carolina", "NC", "37"},
	{"North Dakota", "ND", "38"}, {"Ohio", "OH", "39"}, {"Oklahoma", "OK", "40"},
	{"Oregon", "OR", "41"}, {"Pennsylvania", "PA", "42"}, {"Rhode Island", "RI", "44"},
	{"South Carolina", "SC", "45"}, {"South Dakota", "SD", "46"}, {"Tennessee", "TN", "47"},
	{"Texas", "TX", "48"}, {"Utah", "UT", "49"}, {"Vermont", "VT", "50"},
	{"Virginia", "VA", "51"}, {"Washington", "WA", "53"}, {"West Virginia", "WV", "54"},
	{"Wisconsin", "WI", "55"}, {"Wyoming", "WY", "56"},
}

var (
	byName map[string]State
	byAbbr map[string]State
	byFIPS map[string]State
)

func init() {
	byName = make(map[string]State, len(All))
	byAbbr = make(map[string]State, len(All))
	byFIPS = make(map[string]State, len(All))
	for _, s := range All {
		byName[s.Name] = s
		byAbbr[s.Abbr] = s
		byFIPS[s.FIPS] = s
	}
}

// Names returns the 50 state names in alphabetical order.
func Names() []string {
	names := make([]string, len(All))
	for i, s := range All {
		names[i] = s.Name
	}
	return names
}

// Normalize turns user input such as "new york", "NY" or "36" into a canonical state name.
func Normalize(input string) (string, bool) {
	in := strings.Join(strings.Fields(input), " ")
	if in == "" {
		return "", false
	}
	if s, ok := byAbbr[strings.ToUpper(in)]; ok {
		return s.Name, true
	}
	if s, ok := byFIPS[in]; ok {
		return s.Name, true
	}
	title := cases.Title(language.English).String(strings.ToLower(in))
	if s, ok := byName[title]; ok {
		return s.Name, true
	}
	return "", false
}

// Resolve normalizes a list of state inputs. An empty list means all 50 states.
// The result is deduplicated and sorted.
func Resolve(inputs []string) ([]string, error) {
	if len(inputs) == 0 {
		return Names(), nil
	}
	seen := make(map[string]bool, len(inputs))
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		name, ok := Normalize(in)
		if !ok {
			return nil, eris.Errorf("states: unknown state %q", in)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
