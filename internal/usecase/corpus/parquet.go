package corpus

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/talentrag/internal/domain"
)

const parquetBatch = 1000

// loadParquet reads a flat Parquet file. Column names come from the top-level
// schema paths; null cells read as empty strings.
func (l *Loader) loadParquet(f *os.File) ([]domain.Document, error) {
	if err := l.checkFraction(); err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w: %w", domain.ErrData, err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w: %w", domain.ErrData, err)
	}

	header := parquetHeader(pf)
	if len(header) == 0 {
		return nil, fmt.Errorf("empty source: %w", domain.ErrData)
	}

	rows := &parquetRows{groups: pf.RowGroups(), width: len(header), buf: make([]parquet.Row, parquetBatch)}
	defer rows.close()
	return l.collect(header, rows.next)
}

// parquetHeader names every leaf column by its first path element.
func parquetHeader(pf *parquet.File) []string {
	cols := pf.Schema().Columns()
	header := make([]string, len(cols))
	for i, path := range cols {
		if len(path) > 0 {
			header[i] = path[0]
		}
	}
	return header
}

// parquetRows walks row groups in file order, one buffered batch at a time.
type parquetRows struct {
	groups []parquet.RowGroup
	group  int
	reader *parquet.Reader
	width  int

	buf  []parquet.Row
	pos  int
	size int
	done bool // current reader is exhausted once buf drains
}

func (p *parquetRows) next() ([]string, error) {
	for p.pos >= p.size {
		if err := p.fill(); err != nil {
			return nil, err
		}
	}
	row := p.buf[p.pos]
	p.pos++

	cells := make([]string, p.width)
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= p.width || v.IsNull() {
			continue
		}
		cells[col] = v.String()
	}
	return cells, nil
}

// fill refills buf from the current row group, advancing to the next group
// when the current one is drained. Returns io.EOF after the last group.
func (p *parquetRows) fill() error {
	if p.reader == nil || p.done {
		p.close()
		if p.group >= len(p.groups) {
			return io.EOF
		}
		p.reader = parquet.NewRowGroupReader(p.groups[p.group])
		p.group++
		p.done = false
	}

	n, err := p.reader.ReadRows(p.buf)
	p.pos, p.size = 0, n
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return fmt.Errorf("read rows: %w: %w", domain.ErrData, err)
		}
		p.done = true
	}
	return nil
}

func (p *parquetRows) close() {
	if p.reader != nil {
		_ = p.reader.Close()
		p.reader = nil
	}
}
