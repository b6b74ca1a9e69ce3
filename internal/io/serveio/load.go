package serveio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gnames/csdoptimade/pkg/ent/optimade"
	"github.com/gnames/gnfmt"
)

// entries keeps data lines of one entry type in file order.
type entries struct {
	info  optimade.EntryInfo
	lines [][]byte
	byID  map[string]int
}

type probe struct {
	XOptimade *optimade.HeaderMeta `json:"x-optimade"`
	Type      string               `json:"type"`
	ID        string               `json:"id"`
}

// load reads a merged file: header, info, entry type descriptions and data
// lines.
func load(path string, enc gnfmt.Encoder) (optimade.Info, map[string]*entries, error) {
	var info optimade.Info
	res := make(map[string]*entries, len(optimade.EntryTypes))
	for _, t := range optimade.EntryTypes {
		res[t] = &entries{byID: make(map[string]int)}
	}

	f, err := os.Open(path)
	if err != nil {
		return info, nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var lineNum int
	for {
		line, err := r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return info, nil, err
		}
		eof := err != nil

		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			lineNum++
			if err = parseLine(enc, line, lineNum, &info, res); err != nil {
				return info, nil, fmt.Errorf("%s line %d: %w", path, lineNum, err)
			}
		}

		if eof {
			break
		}
	}

	if lineNum < 2+len(optimade.EntryTypes) {
		return info, nil, fmt.Errorf("%s: file has no metadata", path)
	}
	return info, res, nil
}

func parseLine(
	enc gnfmt.Encoder,
	line []byte,
	lineNum int,
	info *optimade.Info,
	res map[string]*entries,
) error {
	metaLines := 2 + len(optimade.EntryTypes)
	switch {
	case lineNum == 1:
		var p probe
		if err := enc.Decode(line, &p); err != nil {
			return err
		}
		if p.XOptimade == nil {
			return errors.New("header is missing")
		}
	case lineNum == 2:
		var il optimade.InfoLine
		if err := enc.Decode(line, &il); err != nil {
			return err
		}
		*info = il.Data
	case lineNum <= metaLines:
		t := optimade.EntryTypes[lineNum-3]
		if err := enc.Decode(line, &res[t].info); err != nil {
			return err
		}
	default:
		var p probe
		if err := enc.Decode(line, &p); err != nil {
			return err
		}
		es, ok := res[p.Type]
		if !ok {
			return fmt.Errorf("unknown entry type %q", p.Type)
		}
		if _, ok := es.byID[p.ID]; ok {
			return nil
		}
		es.byID[p.ID] = len(es.lines)
		es.lines = append(es.lines, line)
	}
	return nil
}
