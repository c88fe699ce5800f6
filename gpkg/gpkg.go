// Package gpkg reads features from and writes point features to GeoPackages.
package gpkg

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"
	"github.com/pkg/errors"
)

// Feature is one row of a feature table.
type Feature struct {
	Attributes map[string]interface{}
	Geometry   geom.Geometry
}

type column struct {
	cid       int
	name      string
	ctype     string
	notnull   int
	dfltValue *string
	pk        int
}

type Table struct {
	Name           string
	GeometryColumn string
	GeometryType   gpkg.GeometryType
	SRS            gpkg.SpatialReferenceSystem
	columns        []column
}

// Columns returns the names of the attribute columns: all but the geometry and primary key columns.
func (t Table) Columns() []string {
	var names []string
	for _, c := range t.columns {
		if c.name != t.GeometryColumn && c.pk == 0 {
			names = append(names, c.name)
		}
	}
	return names
}

// geometryTypeFromString returns the numeric value of a gometry string
func geometryTypeFromString(geometrytype string) gpkg.GeometryType {
	switch strings.ToUpper(geometrytype) {
	case "GEOMETRY":
		return gpkg.Geometry
	case "POINT":
		return gpkg.Point
	case "LINESTRING":
		return gpkg.Linestring
	case "POLYGON":
		return gpkg.Polygon
	case "MULTIPOINT":
		return gpkg.MultiPoint
	case "MULTILINESTRING":
		return gpkg.MultiLinestring
	case "MULTIPOLYGON":
		return gpkg.MultiPolygon
	case "GEOMETRYCOLLECTION":
		return gpkg.GeometryCollection
	default:
		return gpkg.Geometry
	}
}

type Source struct {
	handle *gpkg.Handle
}

func OpenSource(file string) (*Source, error) {
	handle, err := gpkg.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening GeoPackage %s", file)
	}
	return &Source{handle: handle}, nil
}

func (source *Source) Close() error {
	return source.handle.Close()
}

// Tables lists the feature tables registered in gpkg_geometry_columns.
func (source *Source) Tables() ([]Table, error) {
	query := `SELECT table_name, column_name, geometry_type_name, srs_id FROM gpkg_geometry_columns;`
	rows, err := source.handle.Query(query)
	if err != nil {
		return nil, errors.Wrapf(err, "error querying %v", query)
	}
	defer rows.Close()

	var tables []Table
	var srsIDs []int
	for rows.Next() {
		var t Table
		var gtype string
		var srsID int
		if err := rows.Scan(&t.Name, &t.GeometryColumn, &gtype, &srsID); err != nil {
			return nil, errors.Wrap(err, "error reading the source table information")
		}
		t.GeometryType = geometryTypeFromString(gtype)
		tables = append(tables, t)
		srsIDs = append(srsIDs, srsID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		tables[i].columns, err = getTableColumns(source.handle, tables[i].Name)
		if err != nil {
			return nil, err
		}
		tables[i].SRS, err = getSpatialReferenceSystem(source.handle, srsIDs[i])
		if err != nil {
			return nil, err
		}
	}
	return tables, nil
}

// Table looks up one feature table by name.
func (source *Source) Table(name string) (Table, error) {
	tables, err := source.Tables()
	if err != nil {
		return Table{}, err
	}
	var names []string
	for _, t := range tables {
		if t.Name == name {
			return t, nil
		}
		names = append(names, t.Name)
	}
	return Table{}, errors.Errorf("no feature table %q, available: %v", name, names)
}

// Featureset starts a lazy read of all rows of the table.
func (source *Source) Featureset(table Table) (*Featureset, error) {
	rows, err := source.handle.Query(table.selectSQL())
	if err != nil {
		return nil, errors.Wrapf(err, "error reading features from %s", table.Name)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "error reading the columns")
	}
	return &Featureset{table: table, rows: rows, cols: cols}, nil
}

// Featureset iterates the rows of a feature table, one per Next.
type Featureset struct {
	table Table
	rows  *sql.Rows
	cols  []string
	done  bool
}

// Next reads the next row. ok is false when all rows have been read.
func (fs *Featureset) Next() (feature Feature, ok bool, err error) {
	if fs.done {
		return Feature{}, false, nil
	}
	if !fs.rows.Next() {
		err = fs.rows.Err()
		fs.Close()
		return Feature{}, false, err
	}

	vals := make([]interface{}, len(fs.cols))
	valPtrs := make([]interface{}, len(fs.cols))
	for i := 0; i < len(fs.cols); i++ {
		valPtrs[i] = &vals[i]
	}
	if err = fs.rows.Scan(valPtrs...); err != nil {
		fs.Close()
		return Feature{}, false, errors.Wrap(err, "err reading row values")
	}

	feature.Attributes = make(map[string]interface{}, len(fs.cols)-1)
	for i, colName := range fs.cols {
		if colName == fs.table.GeometryColumn {
			feature.Geometry, err = decodeGeometry(vals[i])
			if err != nil {
				fs.Close()
				return Feature{}, false, err
			}
			continue
		}
		switch v := vals[i].(type) {
		case []uint8:
			feature.Attributes[colName] = string(v)
		case int64, float64, bool, time.Time, string, nil:
			feature.Attributes[colName] = v
		default:
			fs.Close()
			return Feature{}, false, fmt.Errorf("unexpected type for sqlite column data: %v: %T", colName, v)
		}
	}
	return feature, true, nil
}

func (fs *Featureset) Close() {
	if !fs.done {
		fs.done = true
		fs.rows.Close()
	}
}

func decodeGeometry(val interface{}) (geom.Geometry, error) {
	if val == nil {
		return nil, nil
	}
	b, ok := val.([]byte)
	if !ok {
		return nil, fmt.Errorf("geometry column is not a blob but a %T", val)
	}
	sb, err := gpkg.DecodeGeometry(b)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding the geometry")
	}
	return sb.Geometry, nil
}

// selectSQL build a SELECT statement based on the table and columns
// used for reading the source features
func (t Table) selectSQL() string {
	var csql []string
	for _, c := range t.columns {
		csql = append(csql, quote(c.name))
	}
	return `SELECT ` + strings.Join(csql, `,`) + ` FROM ` + quote(t.Name) + `;`
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// getSpatialReferenceSystem extracts this based on the given SRS id
func getSpatialReferenceSystem(h *gpkg.Handle, id int) (gpkg.SpatialReferenceSystem, error) {
	var srs gpkg.SpatialReferenceSystem
	query := `SELECT srs_name, srs_id, organization, organization_coordsys_id, definition, description FROM gpkg_spatial_ref_sys WHERE srs_id = ?;`

	var description *string
	err := h.QueryRow(query, id).Scan(&srs.Name, &srs.ID, &srs.Organization, &srs.OrganizationCoordsysID, &srs.Definition, &description)
	if err != nil {
		return srs, errors.Wrapf(err, "error reading spatial reference system %d", id)
	}
	if description != nil {
		srs.Description = *description
	}
	return srs, nil
}

// getTableColumns collects the column information of a given table
func getTableColumns(h *gpkg.Handle, table string) ([]column, error) {
	var columns []column
	rows, err := h.Query(fmt.Sprintf(`PRAGMA table_info(%v);`, quote(table)))
	if err != nil {
		return nil, errors.Wrapf(err, "error reading columns of %s", table)
	}
	defer rows.Close()

	for rows.Next() {
		var column column
		err := rows.Scan(&column.cid, &column.name, &column.ctype, &column.notnull, &column.dfltValue, &column.pk)
		if err != nil {
			return nil, errors.Wrap(err, "error getting the column information")
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}
