package tiger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeoJSONFile is the per-state partition output inside a state directory.
const GeoJSONFile = "counties.geojson"

// WriteGeoJSON writes counties as a FeatureCollection whose properties are
// STATEFP, GEOID and NAME. The file must not exist yet.
func WriteGeoJSON(path string, counties []County) error {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(counties))}
	for _, c := range counties {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   c.Geometry,
			Properties: c.Properties(),
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrapf(err, "tiger: encode %s", path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return eris.Wrapf(err, "tiger: create %s", path)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return eris.Wrapf(err, "tiger: write %s", path)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return eris.Wrapf(err, "tiger: close %s", path)
	}
	return nil
}

// ReadGeoJSON decodes a FeatureCollection written by WriteGeoJSON.
func ReadGeoJSON(path string) ([]County, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "tiger: decode %s", path)
	}

	counties := make([]County, 0, len(fc.Features))
	for i, f := range fc.Features {
		c := County{
			StateFP: prop(f.Properties, FieldStateFP),
			GEOID:   prop(f.Properties, FieldGEOID),
			Name:    prop(f.Properties, FieldName),
		}
		mp, err := asMultiPolygon(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "tiger: feature %d of %s", i, path)
		}
		c.Geometry = mp
		counties = append(counties, c)
	}
	return counties, nil
}

func prop(props map[string]interface{}, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
