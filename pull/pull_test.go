package pull

import (
	"errors"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var world = Options{Extent: []float64{-180, -90, 180, 90}}

// countingProducer hands out its records, then fails or exhausts, and counts every call.
type countingProducer struct {
	records []Record
	failAt  int // 1-based call that returns err, 0 for never
	err     error
	calls   int
}

func (p *countingProducer) Produce() (Record, bool, error) {
	p.calls++
	if p.failAt == p.calls {
		return Record{}, false, p.err
	}
	if p.calls > len(p.records) {
		return Record{}, false, nil
	}
	return p.records[p.calls-1], true, nil
}

func TestAdapter_Next(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{name: "empty", n: 0},
		{name: "one", n: 1},
		{name: "many", n: 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]Record, tt.n)
			for i := range records {
				records[i] = Record{Location: geom.Point{float64(i), float64(-i)}, Attributes: map[string]interface{}{"i": i}}
			}
			producer := &countingProducer{records: records}
			adapter, err := Configure(producer, world)
			require.NoError(t, err)

			for i := 0; i < tt.n; i++ {
				got, ok, err := adapter.Next()
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, records[i], got)
			}
			_, ok, err := adapter.Next()
			require.NoError(t, err)
			assert.False(t, ok)
			assert.True(t, adapter.Closed())
			assert.Equal(t, tt.n+1, producer.calls)

			_, ok, err = adapter.Next()
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, tt.n+1, producer.calls, "producer called after exhaustion")
			assert.Equal(t, uint64(tt.n), adapter.Pulled())
		})
	}
}

func TestAdapter_NextPassThrough(t *testing.T) {
	attributes := map[string]interface{}{"NAME": "A", "POP2005": int64(1234), "ratio": 0.1 + 0.2, "capital": true}
	want := Record{Location: geom.Point{0.1 + 0.2, -1e-300}, Attributes: attributes}
	adapter, err := Configure(NewSliceProducer(want), world)
	require.NoError(t, err)

	got, ok, err := adapter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Location, got.Location)
	assert.Equal(t, want.Attributes, got.Attributes)
	// same map, not a copy
	got.Attributes["touched"] = true
	assert.Equal(t, true, attributes["touched"])
}

func TestAdapter_NextOrder(t *testing.T) {
	a := Record{Location: geom.Point{10, 20}, Attributes: map[string]interface{}{"NAME": "A"}}
	b := Record{Location: geom.Point{30, 40}, Attributes: map[string]interface{}{"NAME": "B"}}
	adapter, err := Configure(NewSliceProducer(a, b), world)
	require.NoError(t, err)

	got, ok, err := adapter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, got)

	got, ok, err = adapter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b, got)

	_, ok, err = adapter.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapter_NextProducerError(t *testing.T) {
	boom := errors.New("boom")
	producer := &countingProducer{
		records: []Record{{Location: geom.Point{1, 1}}, {Location: geom.Point{2, 2}}, {Location: geom.Point{3, 3}}},
		failAt:  3,
		err:     boom,
	}
	adapter, err := Configure(producer, world)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, ok, err := adapter.Next()
		require.NoError(t, err)
		require.True(t, ok)
	}

	_, ok, err := adapter.Next()
	assert.False(t, ok)
	var producerErr *ProducerError
	require.ErrorAs(t, err, &producerErr)
	assert.Equal(t, uint64(3), producerErr.Pull)
	assert.ErrorIs(t, err, boom)
	assert.True(t, adapter.Closed())

	_, ok, err = adapter.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, producer.calls)
}

func TestAdapter_NextProducerPanic(t *testing.T) {
	calls := 0
	adapter, err := Configure(ProducerFunc(func() (Record, bool, error) {
		calls++
		panic("cursor out of range")
	}), world)
	require.NoError(t, err)

	_, ok, err := adapter.Next()
	assert.False(t, ok)
	var producerErr *ProducerError
	require.ErrorAs(t, err, &producerErr)
	assert.Contains(t, err.Error(), "cursor out of range")

	_, ok, err = adapter.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}

func TestAdapter_NextSkippingProducer(t *testing.T) {
	candidate := 0
	calls := 0
	producer := ProducerFunc(func() (Record, bool, error) {
		calls++
		for ; candidate < 2000; candidate++ {
			if candidate == 1000 {
				candidate++
				return Record{Location: geom.Point{1000, 1000}}, true, nil
			}
		}
		return Record{}, false, nil
	})
	adapter, err := Configure(producer, world)
	require.NoError(t, err)

	got, ok, err := adapter.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, geom.Point{1000, 1000}, got.Location)
	assert.Equal(t, 1, calls)

	_, ok, err = adapter.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, calls)
}

func TestConfigure(t *testing.T) {
	tests := []struct {
		name     string
		producer Producer
		extent   []float64
		wantErr  bool
	}{
		{name: "world", producer: NewSliceProducer(), extent: []float64{-180, -90, 180, 90}},
		{name: "web mercator", producer: NewSliceProducer(), extent: []float64{-20037508.342789, -8283343.693883, 20037508.342789, 18365151.363070}},
		{name: "inverted", producer: NewSliceProducer(), extent: []float64{0, 0, -1, -1}, wantErr: true},
		{name: "empty x span", producer: NewSliceProducer(), extent: []float64{5, 0, 5, 1}, wantErr: true},
		{name: "empty y span", producer: NewSliceProducer(), extent: []float64{0, 5, 1, 5}, wantErr: true},
		{name: "three values", producer: NewSliceProducer(), extent: []float64{0, 0, 1}, wantErr: true},
		{name: "five values", producer: NewSliceProducer(), extent: []float64{0, 0, 1, 1, 1}, wantErr: true},
		{name: "missing", producer: NewSliceProducer(), extent: nil, wantErr: true},
		{name: "empty", producer: NewSliceProducer(), extent: []float64{}, wantErr: true},
		{name: "NaN", producer: NewSliceProducer(), extent: []float64{0, 0, nan(), 1}, wantErr: true},
		{name: "infinite", producer: NewSliceProducer(), extent: []float64{inf(-1), 0, 1, 1}, wantErr: true},
		{name: "no producer", producer: nil, extent: []float64{0, 0, 1, 1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := Configure(tt.producer, Options{Extent: tt.extent})
			if tt.wantErr {
				var configErr *ConfigurationError
				require.ErrorAs(t, err, &configErr)
				assert.Nil(t, adapter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, geom.Extent{tt.extent[0], tt.extent[1], tt.extent[2], tt.extent[3]}, adapter.Extent())
			assert.False(t, adapter.Closed())
		})
	}
}
