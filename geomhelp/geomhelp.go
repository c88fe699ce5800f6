package geomhelp

import (
	"errors"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/muesli/reflow/truncate"
)

var ErrEmptyGeometry = errors.New("geometry has no coordinates")

// BBoxCenter is the center of the bounding box of a geometry.
// Not a centroid: for concave or multi geometries it may lie outside the geometry.
func BBoxCenter(g geom.Geometry) (geom.Point, error) {
	if g == nil {
		return geom.Point{}, ErrEmptyGeometry
	}
	ext, err := geom.NewExtentFromGeometry(g)
	if err != nil {
		return geom.Point{}, err
	}
	if ext == nil {
		return geom.Point{}, ErrEmptyGeometry
	}
	return ExtentCenter(*ext), nil
}

func ExtentCenter(e geom.Extent) geom.Point {
	return geom.Point{(e.MinX() + e.MaxX()) / 2, (e.MinY() + e.MaxY()) / 2}
}

// UnionExtents merges extents. ok is false when there is nothing to merge.
func UnionExtents(extents ...geom.Extent) (union geom.Extent, ok bool) {
	for i, e := range extents {
		if i == 0 {
			union = e
			continue
		}
		union = geom.Extent{
			min(union.MinX(), e.MinX()),
			min(union.MinY(), e.MinY()),
			max(union.MaxX(), e.MaxX()),
			max(union.MaxY(), e.MaxY()),
		}
	}
	return union, len(extents) > 0
}

// WktTruncated encodes a geometry as WKT for log lines, cut off at maxLen (0 is no limit).
func WktTruncated(g geom.Geometry, maxLen uint) string {
	s, err := wkt.EncodeString(g)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	if maxLen == 0 {
		return s
	}
	return truncate.StringWithTail(s, maxLen, "...")
}
