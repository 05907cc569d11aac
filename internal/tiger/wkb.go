package tiger

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// EncodeWKB converts a polygonal geometry to little-endian EWKB MultiPolygon
// with SRID 4326. Returns nil, nil for a nil or empty geometry.
func EncodeWKB(g geom.T) ([]byte, error) {
	mp, err := asMultiPolygon(g)
	if err != nil {
		return nil, err
	}
	if mp == nil || mp.Empty() {
		return nil, nil
	}

	data, err := ewkb.Marshal(mp.SetSRID(SRID), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "tiger: encode WKB")
	}

	return data, nil
}

// asMultiPolygon promotes a Polygon to the MultiPolygon column type.
// A nil geometry yields nil.
func asMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	switch t := g.(type) {
	case nil:
		return nil, nil
	case *geom.MultiPolygon:
		return t, nil
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(t.Layout())
		if err := mp.Push(t); err != nil {
			return nil, eris.Wrap(err, "tiger: promote polygon")
		}
		return mp, nil
	default:
		return nil, eris.Errorf("tiger: unsupported geometry %T", g)
	}
}
