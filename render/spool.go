package render

import (
	"path/filepath"

	"github.com/pdok/streamrender/geomhelp"
	"github.com/pdok/streamrender/gpkg"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	spoolFile = "layers.gpkg"
	// features are spooled without a known srs, the layer's srs applies
	spoolSRID = -1
	wktLogLen = 80
)

// spool drains the featureset of every layer into one GeoPackage in dir, a table per layer,
// and returns the XML layers that read them back.
func spool(dir string, layers []Layer, mapSRS string, pagesize int) ([]xmlLayer, error) {
	file := filepath.Join(dir, spoolFile)
	target, err := gpkg.CreateTarget(file, true, pagesize)
	if err != nil {
		return nil, err
	}
	defer target.Close()

	xmlLayers := make([]xmlLayer, 0, len(layers))
	for _, l := range layers {
		points, err := drain(l)
		if err != nil {
			return nil, err
		}
		if _, err = target.WritePoints(l.Name, spoolSRID, points); err != nil {
			return nil, errors.Wrapf(err, "could not spool layer %s", l.Name)
		}
		log.Info().Str("layer", l.Name).Int("features", len(points)).Msg("streamed layer")

		srs := l.SRS
		if srs == "" {
			srs = mapSRS
		}
		extent := l.Featureset.Extent()
		xmlLayers = append(xmlLayers, xmlLayer{
			Name:   l.Name,
			SRS:    srs,
			Styles: l.Styles,
			Parameters: []xmlParameter{
				{Name: "type", Value: "ogr"},
				{Name: "file", Value: file},
				{Name: "layer", Value: l.Name},
				{Name: "extent", Value: formatExtent(extent)},
			},
		})
	}
	return xmlLayers, nil
}

// drain pulls every record of the layer's featureset, in order.
func drain(l Layer) ([]gpkg.Point, error) {
	var points []gpkg.Point
	for {
		record, ok, err := l.Featureset.Next()
		if err != nil {
			return nil, errors.Wrapf(err, "layer %s", l.Name)
		}
		if !ok {
			return points, nil
		}
		if e := log.Debug(); e.Enabled() {
			e.Str("layer", l.Name).Str("wkt", geomhelp.WktTruncated(record.Location, wktLogLen)).Msg("pulled feature")
		}
		points = append(points, gpkg.Point{Location: record.Location, Attributes: record.Attributes})
	}
}
