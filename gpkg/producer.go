package gpkg

import (
	"slices"

	"github.com/pdok/streamrender/geomhelp"
	"github.com/pdok/streamrender/pull"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CenterProducer produces one point record per feature of a featureset, located at the
// center of the feature's bounding box. Features without a usable geometry, or rejected
// by Filter, are skipped within the same Produce call.
type CenterProducer struct {
	// Filter, when set, keeps only the features for which it returns true.
	Filter func(Feature) bool

	features *Featureset
	fields   []string
	skipped  uint64
}

// NewCenterProducer copies the given attribute fields into each record,
// or all non-geometry columns when no fields are given.
func NewCenterProducer(features *Featureset, fields ...string) (*CenterProducer, error) {
	columns := features.table.Columns()
	for _, field := range fields {
		if !slices.Contains(columns, field) {
			return nil, errors.Errorf("table %s has no column %q, available: %v", features.table.Name, field, columns)
		}
	}
	if len(fields) == 0 {
		fields = columns
	}
	return &CenterProducer{features: features, fields: fields}, nil
}

func (p *CenterProducer) Produce() (pull.Record, bool, error) {
	for {
		feature, ok, err := p.features.Next()
		if err != nil || !ok {
			if p.skipped > 0 {
				log.Debug().Uint64("skipped", p.skipped).Str("table", p.features.table.Name).Msg("skipped features")
			}
			return pull.Record{}, false, err
		}
		if p.Filter != nil && !p.Filter(feature) {
			p.skipped++
			continue
		}
		center, err := geomhelp.BBoxCenter(feature.Geometry)
		if err != nil {
			p.skipped++
			continue
		}
		attributes := make(map[string]interface{}, len(p.fields))
		for _, field := range p.fields {
			attributes[field] = feature.Attributes[field]
		}
		return pull.Record{Location: center, Attributes: attributes}, true, nil
	}
}

// Skipped is the number of features passed over so far.
func (p *CenterProducer) Skipped() uint64 {
	return p.skipped
}
