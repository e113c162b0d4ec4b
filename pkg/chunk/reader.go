package chunk

import (
	"github.com/datalith/strata/pkg/encoding"
	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/metrics"
	"github.com/datalith/strata/pkg/page"
	"github.com/datalith/strata/pkg/schema"
	"github.com/datalith/strata/pkg/shred"
)

// Reader replays a column chunk's pages as a shredded entry stream. Pages
// are opened lazily in order; the dictionary page, when present, must come
// before any data page that references it. Decode errors are page scoped
// and carry the column path and page ordinal.
type Reader struct {
	desc  *schema.ColumnDescriptor
	pages []*page.Page

	pageIdx int
	dict    *encoding.DictDecoder

	repLevels []int
	defLevels []int
	valueDec  encoding.Decoder
	pos       int
	numValues int

	peeked    *shred.FlatEntry
	exhausted bool
}

var _ shred.EntryStream = (*Reader)(nil)

// NewReader creates a reader over the pages of one column chunk
func NewReader(desc *schema.ColumnDescriptor, pages []*page.Page) *Reader {
	return &Reader{desc: desc, pages: pages}
}

// openNext decodes pages until a data page is ready or the chunk ends.
// Returns false when every page has been consumed.
func (r *Reader) openNext() (bool, error) {
	for r.pageIdx < len(r.pages) {
		ordinal := r.pageIdx
		p := r.pages[r.pageIdx]
		r.pageIdx++

		sections, err := p.Open()
		if err != nil {
			if errors.IsKind(err, errors.KindChecksumMismatch) {
				metrics.ChecksumFailures.Inc()
			}
			return false, r.pageErr(err, ordinal)
		}

		if p.Kind == page.Dictionary {
			if err := r.loadDictionary(p, sections); err != nil {
				return false, r.pageErr(err, ordinal)
			}
			continue
		}

		if err := r.openDataPage(p, sections); err != nil {
			return false, r.pageErr(err, ordinal)
		}
		return true, nil
	}
	return false, nil
}

func (r *Reader) pageErr(err error, ordinal int) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithColumn(r.desc.Path).WithPage(ordinal)
	}
	return err
}

func (r *Reader) loadDictionary(p *page.Page, sections *page.Sections) error {
	dec := encoding.NewPlainDecoder(r.desc)
	if err := dec.SetData(sections.Values, p.NumValues); err != nil {
		return err
	}
	values := make([]schema.Datum, p.NumValues)
	if _, err := dec.Get(values); err != nil {
		return err
	}
	r.dict = encoding.NewDictDecoder(r.desc)
	r.dict.SetDict(values)
	return nil
}

func (r *Reader) openDataPage(p *page.Page, sections *page.Sections) error {
	n := p.NumValues

	r.repLevels = nil
	if r.desc.MaxRepetitionLevel > 0 {
		dec, err := encoding.NewLevelDecoder(p.RepEncoding, r.desc.MaxRepetitionLevel)
		if err != nil {
			return err
		}
		if _, err := dec.SetData(sections.RepLevels, n); err != nil {
			return err
		}
		r.repLevels = make([]int, n)
		if _, err := dec.Get(r.repLevels); err != nil {
			return err
		}
	}

	r.defLevels = nil
	if r.desc.MaxDefinitionLevel > 0 {
		dec, err := encoding.NewLevelDecoder(p.DefEncoding, r.desc.MaxDefinitionLevel)
		if err != nil {
			return err
		}
		if _, err := dec.SetData(sections.DefLevels, n); err != nil {
			return err
		}
		r.defLevels = make([]int, n)
		if _, err := dec.Get(r.defLevels); err != nil {
			return err
		}
	}

	present := n
	for i := 0; i < n; i++ {
		rep, def := r.levelsAt(i)
		if rep > r.desc.MaxRepetitionLevel || def > r.desc.MaxDefinitionLevel {
			return errors.Newf(errors.KindMalformedEncoding,
				"decoded levels (%d, %d) exceed column bounds (%d, %d)",
				rep, def, r.desc.MaxRepetitionLevel, r.desc.MaxDefinitionLevel)
		}
		if def < r.desc.MaxDefinitionLevel {
			present--
		}
	}

	if p.ValueEncoding.IsDictionary() {
		if r.dict == nil {
			return errors.New(errors.KindMalformedEncoding,
				"data page references a dictionary but no dictionary page precedes it")
		}
		if err := r.dict.SetData(sections.Values, present); err != nil {
			return err
		}
		r.valueDec = r.dict
	} else {
		dec, err := encoding.NewDecoder(r.desc, p.ValueEncoding)
		if err != nil {
			return err
		}
		if err := dec.SetData(sections.Values, present); err != nil {
			return err
		}
		r.valueDec = dec
	}

	r.pos = 0
	r.numValues = n
	return nil
}

func (r *Reader) levelsAt(i int) (rep, def int) {
	if r.repLevels != nil {
		rep = r.repLevels[i]
	}
	def = r.desc.MaxDefinitionLevel
	if r.defLevels != nil {
		def = r.defLevels[i]
	}
	return rep, def
}

func (r *Reader) next() (shred.FlatEntry, bool, error) {
	for r.pos >= r.numValues {
		if r.exhausted {
			return shred.FlatEntry{}, false, nil
		}
		ok, err := r.openNext()
		if err != nil {
			return shred.FlatEntry{}, false, err
		}
		if !ok {
			r.exhausted = true
			return shred.FlatEntry{}, false, nil
		}
	}

	rep, def := r.levelsAt(r.pos)
	r.pos++

	entry := shred.FlatEntry{RepLevel: rep, DefLevel: def}
	if def == r.desc.MaxDefinitionLevel {
		var buf [1]schema.Datum
		n, err := r.valueDec.Get(buf[:])
		if err != nil {
			return shred.FlatEntry{}, false, r.pageErr(err, r.pageIdx-1)
		}
		if n != 1 {
			return shred.FlatEntry{}, false, r.pageErr(errors.New(errors.KindMalformedEncoding,
				"page ran out of values before its level stream"), r.pageIdx-1)
		}
		d := buf[0]
		entry.Datum = &d
	}
	return entry, true, nil
}

// Peek returns the next entry without consuming it
func (r *Reader) Peek() (shred.FlatEntry, bool, error) {
	if r.peeked != nil {
		return *r.peeked, true, nil
	}
	e, ok, err := r.next()
	if err != nil || !ok {
		return shred.FlatEntry{}, ok, err
	}
	r.peeked = &e
	return e, true, nil
}

// Next consumes and returns the next entry
func (r *Reader) Next() (shred.FlatEntry, bool, error) {
	if r.peeked != nil {
		e := *r.peeked
		r.peeked = nil
		return e, true, nil
	}
	return r.next()
}
