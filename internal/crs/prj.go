package crs

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// PRJ is the part of an ESRI .prj (WKT1) definition needed to choose an
// EPSG code. Nested GEOGCS details such as the spheroid are not kept.
type PRJ struct {
	Kind      string // GEOGCS, PROJCS, ...
	Name      string
	Method    string             // lower-case PROJECTION name
	Params    map[string]float64 // lower-case PARAMETER names
	Unit      float64            // metres per linear unit, 1 when absent
	Authority string             // e.g. "EPSG:5070", from the root element only
}

var (
	rootRe      = regexp.MustCompile(`^\s*([A-Za-z_]+)\s*\[\s*"((?:[^"]|"")*)"`)
	projRe      = regexp.MustCompile(`(?i)PROJECTION\s*\[\s*"([^"]*)"`)
	paramRe     = regexp.MustCompile(`(?i)PARAMETER\s*\[\s*"([^"]*)"\s*,\s*([^,\]\s]+)`)
	unitRe      = regexp.MustCompile(`(?i)UNIT\s*\[\s*"[^"]*"\s*,\s*([^,\]\s]+)`)
	authorityRe = regexp.MustCompile(`(?i)AUTHORITY\s*\[\s*"([^"]*)"\s*,\s*"?([^"\]]*)"?\s*\]`)
)

// ParsePRJ reads a WKT1 definition. It checks quoting and bracket nesting,
// then picks out the root name, PROJECTION, PARAMETERs, linear UNIT and
// AUTHORITY that belong directly to the root element.
func ParsePRJ(wkt string) (PRJ, error) {
	depth, err := nesting(wkt)
	if err != nil {
		return PRJ{}, err
	}
	m := rootRe.FindStringSubmatch(wkt)
	if m == nil {
		return PRJ{}, eris.New("crs: wkt: expected KEYWORD[\"name\", ...]")
	}

	p := PRJ{
		Kind:   strings.ToUpper(m[1]),
		Name:   strings.ReplaceAll(m[2], `""`, `"`),
		Params: make(map[string]float64),
		Unit:   1,
	}
	top := func(loc []int) bool { return depth[loc[0]] == 1 }

	for _, loc := range projRe.FindAllStringSubmatchIndex(wkt, -1) {
		if top(loc) {
			p.Method = strings.ToLower(wkt[loc[2]:loc[3]])
			break
		}
	}
	for _, loc := range paramRe.FindAllStringSubmatchIndex(wkt, -1) {
		if !top(loc) {
			continue
		}
		name := wkt[loc[2]:loc[3]]
		v, err := strconv.ParseFloat(wkt[loc[4]:loc[5]], 64)
		if err != nil {
			return PRJ{}, eris.Wrapf(err, "crs: parameter %s", name)
		}
		p.Params[strings.ToLower(name)] = v
	}
	if p.Kind == "PROJCS" {
		for _, loc := range unitRe.FindAllStringSubmatchIndex(wkt, -1) {
			if !top(loc) {
				continue
			}
			v, err := strconv.ParseFloat(wkt[loc[2]:loc[3]], 64)
			if err != nil || v <= 0 {
				return PRJ{}, eris.Errorf("crs: %s has a bad linear unit", p.Name)
			}
			p.Unit = v
		}
	}
	for _, loc := range authorityRe.FindAllStringSubmatchIndex(wkt, -1) {
		if top(loc) {
			p.Authority = strings.ToUpper(wkt[loc[2]:loc[3]]) + ":" + strings.TrimSpace(wkt[loc[4]:loc[5]])
		}
	}
	return p, nil
}

// Param returns the first of names present, or 0.
func (p PRJ) Param(names ...string) float64 {
	for _, n := range names {
		if v, ok := p.Params[n]; ok {
			return v
		}
	}
	return 0
}

// nesting returns the bracket depth before each byte of s. Brackets inside
// quoted strings ("" escapes a quote) do not count, and nothing may follow
// the closing bracket of the root element.
func nesting(s string) ([]int, error) {
	depth := make([]int, len(s))
	d, closed, quoted := 0, false, false
	for i := 0; i < len(s); i++ {
		depth[i] = d
		c := s[i]
		if quoted {
			if c == '"' {
				if i+1 < len(s) && s[i+1] == '"' {
					i++
					depth[i] = d
					continue
				}
				quoted = false
			}
			continue
		}
		if closed {
			if c != ' ' && c != '\t' && c != '\r' && c != '\n' {
				return nil, eris.Errorf("crs: wkt: trailing data at offset %d", i)
			}
			continue
		}
		switch c {
		case '"':
			quoted = true
		case '[', '(':
			d++
		case ']', ')':
			d--
			if d < 0 {
				return nil, eris.Errorf("crs: wkt: unbalanced %q at offset %d", c, i)
			}
			if d == 0 {
				closed = true
			}
		}
	}
	switch {
	case quoted:
		return nil, eris.New("crs: wkt: unterminated string")
	case !closed:
		return nil, eris.New("crs: wkt: unclosed element")
	}
	return depth, nil
}
