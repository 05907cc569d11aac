package tiger

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/state-atlas/internal/crs"
)

// ReadCounties loads every county from a TIGER/Line county shapefile and
// re-projects its geometry to WGS84 with proj. Null and empty shapes are
// dropped. A missing required field or a failed transform is fatal.
func ReadCounties(shpPath string, proj crs.Projection) ([]County, error) {
	log := zap.L().With(
		zap.String("component", "tiger.shapefile"),
		zap.String("path", shpPath),
		zap.String("crs", proj.Name()),
	)

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	idx := make(map[string]int, 3)
	for _, name := range []string{FieldStateFP, FieldGEOID, FieldName} {
		i, ok := fieldIdx[name]
		if !ok {
			return nil, eris.Errorf("tiger: %s has no %s field", shpPath, name)
		}
		idx[name] = i
	}

	attr := func(name string) string {
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx[name]), "\x00"))
	}

	var counties []County
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		mp, err := toMultiPolygon(shape, proj)
		if err != nil {
			return nil, eris.Wrapf(err, "tiger: record %d", n)
		}
		if mp == nil {
			skipped++
			continue
		}

		counties = append(counties, County{
			StateFP:  attr(FieldStateFP),
			GEOID:    attr(FieldGEOID),
			Name:     attr(FieldName),
			Geometry: mp,
		})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "tiger: read shapefile %s", shpPath)
	}

	if skipped > 0 {
		log.Debug("tiger: skipped null or empty shapes", zap.Int("skipped", skipped))
	}
	log.Info("shapefile loaded", zap.Int("counties", len(counties)))

	return counties, nil
}

// rings splits a shape into its parts. Only polygon shapes carry county
// geometry; anything else yields nil.
func rings(shape shp.Shape) [][]shp.Point {
	var parts []int32
	var points []shp.Point
	switch s := shape.(type) {
	case *shp.Polygon:
		parts, points = s.Parts, s.Points
	case *shp.PolygonZ:
		parts, points = s.Parts, s.Points
	case *shp.PolygonM:
		parts, points = s.Parts, s.Points
	default:
		return nil
	}

	out := make([][]shp.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || end > int32(len(points)) {
			continue
		}
		out = append(out, points[start:end])
	}
	return out
}

// toMultiPolygon re-projects the rings of a shapefile polygon and groups
// them. Shapefiles store outer rings clockwise and holes counter-clockwise,
// each hole following its outer ring.
func toMultiPolygon(shape shp.Shape, proj crs.Projection) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(SRID)
	var current *geom.Polygon

	flush := func() error {
		if current == nil {
			return nil
		}
		err := mp.Push(current)
		current = nil
		return err
	}

	for i, part := range rings(shape) {
		// Fewer than three distinct points plus the closing point has no area.
		if len(part) < 4 {
			continue
		}
		flat := make([]float64, 0, len(part)*2)
		for _, pt := range part {
			lon, lat, err := proj.ToLonLat(pt.X, pt.Y)
			if err != nil {
				return nil, eris.Wrapf(err, "ring %d", i)
			}
			flat = append(flat, lon, lat)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if xy.IsRingCounterClockwise(geom.XY, flat) && current != nil {
			if err := current.Push(ring); err != nil {
				return nil, eris.Wrapf(err, "ring %d", i)
			}
			continue
		}
		// A clockwise ring, or a stray hole with no outer ring yet, starts a polygon.
		if err := flush(); err != nil {
			return nil, eris.Wrapf(err, "ring %d", i)
		}
		current = geom.NewPolygon(geom.XY)
		if err := current.Push(ring); err != nil {
			return nil, eris.Wrapf(err, "ring %d", i)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if mp.NumPolygons() == 0 {
		return nil, nil
	}
	return mp, nil
}
