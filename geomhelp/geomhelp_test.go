package geomhelp

import (
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBBoxCenter(t *testing.T) {
	tests := []struct {
		name    string
		g       geom.Geometry
		want    geom.Point
		wantErr bool
	}{
		{name: "point", g: geom.Point{3, 4}, want: geom.Point{3, 4}},
		{name: "square", g: geom.Polygon{{{0, 0}, {0, 10}, {10, 10}, {10, 0}}}, want: geom.Point{5, 5}},
		{name: "L shape", g: geom.Polygon{{{0, 0}, {0, 10}, {2, 10}, {2, 2}, {10, 2}, {10, 0}}}, want: geom.Point{5, 5}},
		{name: "multipolygon", g: geom.MultiPolygon{
			{{{0, 0}, {0, 1}, {1, 1}, {1, 0}}},
			{{{9, 9}, {9, 10}, {10, 10}, {10, 9}}},
		}, want: geom.Point{5, 5}},
		{name: "nil", g: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BBoxCenter(tt.g)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnionExtents(t *testing.T) {
	_, ok := UnionExtents()
	assert.False(t, ok)

	got, ok := UnionExtents(geom.Extent{0, 0, 1, 1}, geom.Extent{-5, 0.5, 0.5, 7})
	require.True(t, ok)
	assert.Equal(t, geom.Extent{-5, 0, 1, 7}, got)
}

func TestWktTruncated(t *testing.T) {
	assert.Equal(t, "POINT (1 2)", WktTruncated(geom.Point{1, 2}, 0))
	assert.Equal(t, "POINT...", WktTruncated(geom.Point{1, 2}, 8))
}
