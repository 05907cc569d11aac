// Package crs identifies shapefile coordinate reference systems and converts
// projected coordinates back to WGS84 longitude/latitude.
//
// Geographic NAD83 and WGS84 are treated as identical; the datum shift is
// under a meter for the conterminous U.S.
package crs

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/wroge/wgs84"
)

// Projection converts between source coordinates and WGS84 lon/lat degrees.
type Projection interface {
	Name() string
	// ToLonLat converts a source coordinate to longitude and latitude in degrees.
	ToLonLat(x, y float64) (lon, lat float64, err error)
	// FromLonLat converts longitude and latitude in degrees to a source coordinate.
	FromLonLat(lon, lat float64) (x, y float64, err error)
}

// Geographic is a lon/lat source; conversion is the identity.
type Geographic struct {
	Label string
}

// Name implements Projection.
func (g Geographic) Name() string { return g.Label }

// ToLonLat implements Projection. Values outside the lon/lat range mean the
// data is actually projected and the CRS was misidentified.
func (g Geographic) ToLonLat(x, y float64) (float64, float64, error) {
	if err := checkLonLat(x, y); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// FromLonLat implements Projection.
func (g Geographic) FromLonLat(lon, lat float64) (float64, float64, error) {
	return lon, lat, nil
}

// lonLatCode is the geographic side of every EPSG transform.
const lonLatCode = 4326

type transformFunc func(a, b, c float64) (float64, float64, float64)

// EPSG is a projected CRS from the wgs84 EPSG repository.
type EPSG struct {
	Label string
	Code  int

	forward transformFunc
	inverse transformFunc
}

// NewEPSG looks up a projected CRS by its numeric EPSG code. It fails when
// the repository cannot project a point inside the U.S.
func NewEPSG(code int, label string) (*EPSG, error) {
	repo := wgs84.EPSG()
	p := &EPSG{Label: label, Code: code}
	p.forward = transformFunc(repo.Transform(lonLatCode, code))
	p.inverse = transformFunc(repo.Transform(code, lonLatCode))

	x, y, err := p.FromLonLat(-96, 40)
	if err == nil {
		_, _, err = p.ToLonLat(x, y)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "crs: EPSG:%d is not available", code)
	}
	return p, nil
}

// Name implements Projection.
func (p *EPSG) Name() string { return p.Label }

// FromLonLat implements Projection.
func (p *EPSG) FromLonLat(lon, lat float64) (float64, float64, error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	x, y, _ := p.forward(lon, lat, 0)
	if err := finite(x, y); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// ToLonLat implements Projection. Points a hair past the antimeridian or the
// poles are snapped back into range.
func (p *EPSG) ToLonLat(x, y float64) (float64, float64, error) {
	if err := finite(x, y); err != nil {
		return 0, 0, err
	}
	lon, lat, _ := p.inverse(x, y, 0)
	if err := finite(lon, lat); err != nil {
		return 0, 0, err
	}
	lon = normalizeLon(lon)
	if math.Abs(lat) > 90+1e-9 {
		return 0, 0, eris.Errorf("crs: %s coordinate (%g, %g) has no latitude", p.Label, x, y)
	}
	return lon, clamp(lat, -90, 90), nil
}

func normalizeLon(lon float64) float64 {
	const eps = 1e-9
	for lon > 180+eps {
		lon -= 360
	}
	for lon < -180-eps {
		lon += 360
	}
	return clamp(lon, -180, 180)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(a, b float64) error {
	if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
		return eris.Errorf("crs: non-finite coordinate (%g, %g)", a, b)
	}
	return nil
}

func checkLonLat(lon, lat float64) error {
	if err := finite(lon, lat); err != nil {
		return err
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return eris.Errorf("crs: coordinate (%g, %g) is outside the geographic range", lon, lat)
	}
	return nil
}
