// Package tiger reads the Census TIGER/Line nationwide county shapefile,
// downloads it when missing, and bulk-loads partitioned counties into PostGIS.
package tiger

import (
	"fmt"
	"path/filepath"

	"github.com/twpayne/go-geom"
)

// SRID of every geometry this package produces.
const SRID = 4326

// DefaultYear is the TIGER/Line vintage used when none is configured.
const DefaultYear = 2023

// Required DBF fields of the county product.
const (
	FieldStateFP = "STATEFP"
	FieldGEOID   = "GEOID"
	FieldName    = "NAME"
)

const baseURL = "https://www2.census.gov/geo/tiger"

// County is one county feature re-projected to WGS84.
type County struct {
	StateFP  string
	GEOID    string
	Name     string
	Geometry *geom.MultiPolygon
}

// Properties returns the GeoJSON properties written for the county.
func (c County) Properties() map[string]interface{} {
	return map[string]interface{}{
		FieldStateFP: c.StateFP,
		FieldGEOID:   c.GEOID,
		FieldName:    c.Name,
	}
}

// BaseName is the product file name without extension, e.g. tl_2023_us_county.
func BaseName(year int) string {
	return fmt.Sprintf("tl_%d_us_county", year)
}

// DownloadURL returns the Census URL of the nationwide county ZIP.
func DownloadURL(year int) string {
	return fmt.Sprintf("%s/TIGER%d/COUNTY/%s.zip", baseURL, year, BaseName(year))
}

// ShapefilePath is where Download leaves the extracted .shp under dataDir.
func ShapefilePath(dataDir string, year int) string {
	return filepath.Join(dataDir, BaseName(year), BaseName(year)+".shp")
}
