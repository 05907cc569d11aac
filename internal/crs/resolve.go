package crs

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultCode is assumed when a shapefile has no .prj. TIGER/Line ships NAD83.
const DefaultCode = "EPSG:4269"

// projected lists the projected CRSs that can be resolved, keyed by the
// codes accepted for each.
var projected = map[string]int{
	"EPSG:3857":   3857,
	"EPSG:900913": 3857,
	"EPSG:102100": 3857,
	"ESRI:102100": 3857,
	"EPSG:3395":   3395,
	"EPSG:5070":   5070,
}

// FromCode returns the definition for an authority code.
func FromCode(code string) (Projection, error) {
	key := strings.ToUpper(strings.TrimSpace(code))
	switch key {
	case "EPSG:4326", "WGS84":
		return Geographic{Label: "EPSG:4326"}, nil
	case "EPSG:4269", "NAD83":
		return Geographic{Label: "EPSG:4269"}, nil
	}
	n, ok := projected[key]
	if !ok {
		return nil, eris.Errorf("crs: unsupported CRS code %q", code)
	}
	return NewEPSG(n, "EPSG:"+strconv.Itoa(n))
}

// FromWKT builds a projection from a WKT1 CRS definition. Projected
// definitions are matched to an EPSG code by their parameters.
func FromWKT(wkt string) (Projection, error) {
	prj, err := ParsePRJ(wkt)
	if err != nil {
		return nil, err
	}
	if prj.Authority != "" {
		if p, err := FromCode(prj.Authority); err == nil {
			return relabel(p, prj.Name), nil
		}
	}

	switch prj.Kind {
	case "GEOGCS":
		return Geographic{Label: prj.Name}, nil
	case "PROJCS":
		code, err := prj.epsg()
		if err != nil {
			return nil, err
		}
		p, err := FromCode(code)
		if err != nil {
			return nil, err
		}
		return relabel(p, prj.Name), nil
	default:
		return nil, eris.Errorf("crs: unsupported WKT root %s", prj.Kind)
	}
}

func relabel(p Projection, name string) Projection {
	switch v := p.(type) {
	case *EPSG:
		c := *v
		c.Label = name
		return &c
	case Geographic:
		return Geographic{Label: name}
	}
	return p
}

// epsg maps a PROJCS onto one of the supported codes.
func (p PRJ) epsg() (string, error) {
	if p.Method == "" {
		return "", eris.Errorf("crs: %s has no PROJECTION", p.Name)
	}
	if p.Unit != 1 {
		return "", eris.Errorf("crs: %s uses a linear unit of %g m; only metres are supported", p.Name, p.Unit)
	}
	fe, fn := p.Param("false_easting"), p.Param("false_northing")

	switch {
	case strings.Contains(p.Method, "albers"):
		if near(p.Param("latitude_of_center", "latitude_of_origin"), 23) &&
			near(p.Param("standard_parallel_1"), 29.5) &&
			near(p.Param("standard_parallel_2"), 45.5) &&
			near(p.Param("longitude_of_center", "central_meridian"), -96) &&
			fe == 0 && fn == 0 {
			return "EPSG:5070", nil
		}
		return "", eris.Errorf("crs: %s: only the CONUS Albers parameters (EPSG:5070) are supported", p.Name)

	case strings.Contains(p.Method, "mercator") && !strings.Contains(p.Method, "transverse"):
		if p.Param("central_meridian", "longitude_of_center") != 0 || fe != 0 || fn != 0 {
			return "", eris.Errorf("crs: %s: Mercator with a shifted origin is not supported", p.Name)
		}
		name := strings.ToLower(p.Name)
		if strings.Contains(p.Method, "auxiliary_sphere") || strings.Contains(p.Method, "pseudo") ||
			strings.Contains(name, "pseudo") || strings.Contains(name, "web_mercator") {
			return "EPSG:3857", nil
		}
		if k0 := p.Param("scale_factor"); p.Param("standard_parallel_1") == 0 && (k0 == 0 || k0 == 1) {
			return "EPSG:3395", nil
		}
		return "", eris.Errorf("crs: %s: only World Mercator (EPSG:3395) and Web Mercator (EPSG:3857) are supported", p.Name)

	default:
		return "", eris.Errorf("crs: unsupported projection %q in %s", p.Method, p.Name)
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ForShapefile picks the projection for a shapefile. A non-empty override
// (authority code or path to a .prj) wins; otherwise the sibling .prj is
// used; otherwise DefaultCode.
func ForShapefile(shpPath, override string) (Projection, error) {
	if override != "" {
		p, err := FromCode(override)
		if err == nil {
			return p, nil
		}
		if !strings.ContainsAny(override, `/\`) && !strings.HasSuffix(strings.ToLower(override), ".prj") {
			return nil, err
		}
		return fromPRJ(override)
	}

	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range []string{".prj", ".PRJ"} {
		if _, err := os.Stat(base + ext); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fromPRJ(base + ext)
	}
	return FromCode(DefaultCode)
}

func fromPRJ(path string) (Projection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "crs: read %s", path)
	}
	p, err := FromWKT(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, eris.Wrapf(err, "crs: %s", filepath.Base(path))
	}
	return p, nil
}
