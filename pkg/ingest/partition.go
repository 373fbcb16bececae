package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Partition is a contiguous byte range of one CSV file holding whole
// records. Header is the file's header row, shared by all its partitions.
type Partition struct {
	Index  int
	Path   string
	Header []string
	Start  int64
	End    int64
}

func (p Partition) String() string {
	return fmt.Sprintf("%s[%d:%d]", p.Path, p.Start, p.End)
}

// PlanFile splits path into partitions of roughly blockSize bytes. Cut
// points are placed after record terminators, never inside a quoted
// field, so each partition parses on its own. A file with only a header
// (or nothing at all) yields no partitions.
func PlanFile(path string, blockSize int64) ([]Partition, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sc := newRecordScanner(f)
	sc.capture = &bytes.Buffer{}
	headerEnd, ok, err := sc.next()
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	if !ok || headerEnd == 0 {
		return nil, nil
	}
	header, err := parseHeader(sc.capture.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	sc.capture = nil

	var parts []Partition
	start := headerEnd
	for {
		end, ok, err := sc.next()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}
		if !ok {
			break
		}
		if end-start >= blockSize {
			parts = append(parts, Partition{Path: path, Header: header, Start: start, End: end})
			start = end
		}
	}
	if start < sc.off {
		parts = append(parts, Partition{Path: path, Header: header, Start: start, End: sc.off})
	}
	return parts, nil
}

// recordScanner finds CSV record boundaries without decoding fields. It
// tracks quoting the way encoding/csv does: a quote opens a quoted field
// only at the start of a field, and "" inside quotes is an escaped quote.
type recordScanner struct {
	br      *bufio.Reader
	off     int64
	inQuote bool
	capture *bytes.Buffer
}

func newRecordScanner(r io.Reader) *recordScanner {
	return &recordScanner{br: bufio.NewReaderSize(r, 1<<20)}
}

// next returns the offset just past the next record terminator. At EOF it
// returns ok=false; a trailing record without a newline is not reported,
// the caller closes it at s.off.
func (s *recordScanner) next() (end int64, ok bool, err error) {
	atFieldStart := true
	for {
		c, err := s.br.ReadByte()
		if errors.Is(err, io.EOF) {
			return s.off, false, nil
		}
		if err != nil {
			return s.off, false, err
		}
		s.off++
		if s.capture != nil {
			s.capture.WriteByte(c)
		}

		switch {
		case s.inQuote:
			if c != '"' {
				continue
			}
			if peek, _ := s.br.Peek(1); len(peek) == 1 && peek[0] == '"' {
				s.br.ReadByte()
				s.off++
				if s.capture != nil {
					s.capture.WriteByte('"')
				}
				continue
			}
			s.inQuote = false
		case c == '"' && atFieldStart:
			s.inQuote = true
			atFieldStart = false
		case c == ',':
			atFieldStart = true
		case c == '\n':
			return s.off, true, nil
		case c == '\r':
		default:
			atFieldStart = false
		}
	}
}

func parseHeader(b []byte) ([]string, error) {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(b))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make([]string, len(rec))
	for i, h := range rec {
		header[i] = strings.TrimSpace(h)
	}
	return header, nil
}
