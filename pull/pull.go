// Package pull relays feature records from a producer to a consumer that pulls them
// one at a time, synchronously, on its own goroutine.
package pull

import (
	"fmt"

	"github.com/go-spatial/geom"
)

// Record is one streamed feature: a representative location and its attributes.
type Record struct {
	Location   geom.Point
	Attributes map[string]interface{}
}

// Producer yields records on demand.
// ok is false (with a nil error) once the producer is exhausted.
type Producer interface {
	Produce() (record Record, ok bool, err error)
}

// ProducerFunc lets an ordinary function act as a Producer.
type ProducerFunc func() (Record, bool, error)

func (f ProducerFunc) Produce() (Record, bool, error) {
	return f()
}

// Adapter presents a Producer as a pull source with a fixed (advisory) extent.
// It never buffers, prefetches or reorders: every Next is exactly one Produce.
type Adapter struct {
	producer Producer
	extent   geom.Extent
	closed   bool
	pulled   uint64
}

// Configure validates the options and wraps the producer.
func Configure(producer Producer, options Options) (*Adapter, error) {
	if producer == nil {
		return nil, &ConfigurationError{Field: "producer", Reason: "is required"}
	}
	extent, err := options.validate()
	if err != nil {
		return nil, err
	}
	return &Adapter{producer: producer, extent: extent}, nil
}

// Next pulls the next record.
// ok is false when the stream has ended; after that (or after an error) the producer
// is never called again and Next keeps returning the exhaustion signal.
func (a *Adapter) Next() (record Record, ok bool, err error) {
	if a.closed {
		return Record{}, false, nil
	}
	record, ok, err = a.produce()
	if err != nil {
		a.close()
		return Record{}, false, &ProducerError{Pull: a.pulled + 1, Err: err}
	}
	if !ok {
		a.close()
		return Record{}, false, nil
	}
	a.pulled++
	return record, true, nil
}

func (a *Adapter) produce() (record Record, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panicked: %v", r)
		}
	}()
	return a.producer.Produce()
}

func (a *Adapter) close() {
	a.closed = true
	a.producer = nil
}

// Extent is the bounding box the consumer should assume for this stream.
// Record locations are not checked against it.
func (a *Adapter) Extent() geom.Extent {
	return a.extent
}

// Closed reports whether the stream has ended, normally or through a producer error.
func (a *Adapter) Closed() bool {
	return a.closed
}

// Pulled is the number of records handed out so far.
func (a *Adapter) Pulled() uint64 {
	return a.pulled
}
