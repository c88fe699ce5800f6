package gpkg

import (
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/exp/maps"
)

const (
	fidColumn      = "fid"
	geometryColumn = "geom"
)

// Point is a point feature to be written.
type Point struct {
	Location   geom.Point
	Attributes map[string]interface{}
}

type Target struct {
	pagesize int
	handle   *gpkg.Handle
}

// CreateTarget opens (and creates if needed) a GeoPackage for writing.
// With overwrite an existing file is removed first.
func CreateTarget(file string, overwrite bool, pagesize int) (*Target, error) {
	if pagesize < 1 {
		return nil, errors.Errorf("pagesize must be at least 1, got %d", pagesize)
	}
	if overwrite {
		err := os.Remove(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, "could not remove target file")
		}
	}
	handle, err := gpkg.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening GeoPackage %s", file)
	}
	return &Target{pagesize: pagesize, handle: handle}, nil
}

func (target *Target) Close() error {
	return target.handle.Close()
}

// WritePoints creates a point table and writes the points to it, pagesize per transaction.
// The attribute columns are the union of the attribute keys, in the order they are first seen.
// It returns the extent of the written points, nil when there are none.
func (target *Target) WritePoints(name string, srid int, points []Point) (*geom.Extent, error) {
	schema, err := pointSchema(points)
	if err != nil {
		return nil, err
	}
	srs, err := target.spatialReferenceSystem(srid)
	if err != nil {
		return nil, err
	}
	t := pointTable{name: name, srs: srs, columns: schema}

	if err = buildTable(target.handle, t); err != nil {
		return nil, err
	}

	var ext *geom.Extent
	for start := 0; start < len(points); start += target.pagesize {
		end := min(start+target.pagesize, len(points))
		if err = target.writePage(t, points[start:end]); err != nil {
			return nil, err
		}
		log.Debug().Str("table", name).Int("written", end).Msg("wrote page")
	}
	if len(points) > 0 {
		locations := make([][2]float64, len(points))
		for i := range points {
			locations[i] = points[i].Location
		}
		ext = geom.NewExtent(locations...)
		if err = target.handle.UpdateGeometryExtent(name, ext); err != nil {
			return nil, errors.Wrap(err, "failed to update new extent")
		}
	}
	return ext, nil
}

// spatialReferenceSystem returns the registered srs with this id,
// or registers one with an undefined definition.
func (target *Target) spatialReferenceSystem(srid int) (gpkg.SpatialReferenceSystem, error) {
	srs, err := getSpatialReferenceSystem(target.handle, srid)
	if err == nil {
		return srs, nil
	}
	srs = gpkg.SpatialReferenceSystem{
		Name:                   fmt.Sprintf("EPSG:%d", srid),
		ID:                     srid,
		Organization:           "EPSG",
		OrganizationCoordsysID: srid,
		Definition:             "undefined",
	}
	if err = target.handle.UpdateSRS(srs); err != nil {
		return srs, errors.Wrapf(err, "error registering srs %d", srid)
	}
	return srs, nil
}

func (target *Target) writePage(t pointTable, points []Point) error {
	tx, err := target.handle.Begin()
	if err != nil {
		return errors.Wrap(err, "could not start a transaction")
	}
	stmt, err := tx.Prepare(t.insertSQL())
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "could not prepare a statement")
	}
	defer stmt.Close()

	keys := orderedKeys(t.columns)
	for i, p := range points {
		sb, err := gpkg.NewBinary(int32(t.srs.ID), p.Location)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "could not create a binary geometry")
		}
		data := make([]interface{}, 0, len(keys)+1)
		for _, key := range keys {
			data = append(data, p.Attributes[key])
		}
		data = append(data, sb)
		if _, err = stmt.Exec(data...); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "could not insert point %d into %s", i, t.name)
		}
	}
	return tx.Commit()
}

type pointTable struct {
	name    string
	srs     gpkg.SpatialReferenceSystem
	columns *orderedmap.OrderedMap[string, string]
}

// pointSchema maps attribute names to SQLite column types. Columns are ordered by the first
// point that has the key; keys new in the same point are added in lexical order.
// A key whose first values are nil gets the type of its first non-nil value, or TEXT.
func pointSchema(points []Point) (*orderedmap.OrderedMap[string, string], error) {
	schema := orderedmap.New[string, string]()
	for _, p := range points {
		keys := maps.Keys(p.Attributes)
		slices.Sort(keys)
		for _, key := range keys {
			ctype, known := schema.Get(key)
			if known && ctype != "" {
				continue
			}
			if strings.EqualFold(key, fidColumn) || strings.EqualFold(key, geometryColumn) {
				return nil, errors.Errorf("attribute name %q is reserved", key)
			}
			ctype, err := columnType(p.Attributes[key])
			if err != nil {
				return nil, errors.Wrapf(err, "attribute %q", key)
			}
			schema.Set(key, ctype)
		}
	}
	for p := schema.Oldest(); p != nil; p = p.Next() {
		if p.Value == "" {
			p.Value = "TEXT"
		}
	}
	return schema, nil
}

func columnType(v interface{}) (string, error) {
	switch v.(type) {
	case nil:
		return "", nil
	case string, []byte:
		return "TEXT", nil
	case bool:
		return "BOOLEAN", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "INTEGER", nil
	case float32, float64:
		return "REAL", nil
	case time.Time:
		return "DATETIME", nil
	default:
		return "", errors.Errorf("unsupported attribute type %T", v)
	}
}

func orderedKeys(m *orderedmap.OrderedMap[string, string]) []string {
	keys := make([]string, 0, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// createSQL creates a CREATE statement on the given table and column information
func (t pointTable) createSQL() string {
	columnparts := []string{quote(fidColumn) + ` INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL`}
	for p := t.columns.Oldest(); p != nil; p = p.Next() {
		columnparts = append(columnparts, quote(p.Key)+` `+p.Value)
	}
	columnparts = append(columnparts, quote(geometryColumn)+` POINT`)
	return `CREATE TABLE IF NOT EXISTS ` + quote(t.name) + `(` + strings.Join(columnparts, `, `) + `);`
}

// insertSQL used for writing the features
// build the INSERT statement based on the table and columns
func (t pointTable) insertSQL() string {
	var csql, vsql []string
	for p := t.columns.Oldest(); p != nil; p = p.Next() {
		csql = append(csql, quote(p.Key))
		vsql = append(vsql, `?`)
	}
	csql = append(csql, quote(geometryColumn))
	vsql = append(vsql, `?`)
	return `INSERT INTO ` + quote(t.name) + `(` + strings.Join(csql, `,`) + `) VALUES(` + strings.Join(vsql, `,`) + `)`
}

// buildTable creates a given destination table with the necessary gpkg_ information
func buildTable(h *gpkg.Handle, t pointTable) error {
	if _, err := h.Exec(t.createSQL()); err != nil {
		return errors.Wrap(err, "error building table in target GeoPackage")
	}
	err := h.AddGeometryTable(gpkg.TableDescription{
		Name:          t.name,
		ShortName:     t.name,
		Description:   t.name,
		GeometryField: geometryColumn,
		GeometryType:  gpkg.Point,
		SRS:           int32(t.srs.ID),
		//
		Z: gpkg.Prohibited,
		M: gpkg.Prohibited,
	})
	if err != nil {
		return errors.Wrap(err, "error adding geometry table in target GeoPackage")
	}
	return nil
}
