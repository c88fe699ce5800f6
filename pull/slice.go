package pull

// SliceProducer produces the records of a slice in order, then exhausts.
type SliceProducer struct {
	records []Record
	cursor  int
}

func NewSliceProducer(records ...Record) *SliceProducer {
	return &SliceProducer{records: records}
}

func (p *SliceProducer) Produce() (Record, bool, error) {
	if p.cursor >= len(p.records) {
		return Record{}, false, nil
	}
	r := p.records[p.cursor]
	p.cursor++
	return r, true, nil
}
