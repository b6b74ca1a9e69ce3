package ingestio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gnames/csdoptimade/pkg/ent/record"
)

// ChunkFaultError means that not a single record of a chunk could be
// mapped. It usually points to a broken source or a wrong configuration
// rather than to bad data.
type ChunkFaultError struct {
	Chunk      int
	Start, End int
	Bad        int
}

func (e *ChunkFaultError) Error() string {
	return fmt.Sprintf(
		"chunk %d [%d, %d): all %d mapped records failed",
		e.Chunk, e.Start, e.End, e.Bad,
	)
}

type chunkResult struct {
	chunk
	total int
	bad   int
}

// processChunk maps records of a chunk and writes them to the chunk file.
// Every worker opens its own reader for the chunk.
func (in *ingestio) processChunk(ctx context.Context, c chunk) (chunkResult, error) {
	res := chunkResult{chunk: c}

	r, err := in.opener.Open()
	if err != nil {
		slog.Error("Cannot open records reader", "error", err, "chunk", c.idx)
		return res, err
	}
	defer r.Close()

	path := filepath.Join(in.cfg.ChunkDir, chunkName(in.cfg.RunName, c))
	f, err := os.Create(path)
	if err != nil {
		slog.Error("Cannot create chunk file", "error", err, "path", path)
		return res, err
	}
	defer f.Close()

loop:
	for idx := c.start; idx < c.end; idx++ {
		if err = ctx.Err(); err != nil {
			return res, err
		}

		rec, status, err := r.Entry(idx)
		if err != nil {
			slog.Debug("Cannot read record", "error", err, "index", idx)
			res.total++
			res.bad++
			continue
		}
		switch status {
		case record.OutOfRange:
			break loop
		case record.NotFound:
			continue
		}

		if _, ok := in.cfg.BadIdentifiers[rec.Identifier]; ok {
			continue
		}

		res.total++
		lines, err := in.mapRecord(rec)
		if err != nil {
			slog.Debug("Cannot map record", "error", err, "index", idx)
			res.bad++
			continue
		}
		for _, l := range lines {
			if _, err = f.Write(l); err != nil {
				slog.Error("Cannot write to chunk file", "error", err, "path", path)
				return res, err
			}
		}
	}

	if res.bad > 0 && res.bad == res.total {
		return res, &ChunkFaultError{
			Chunk: c.idx,
			Start: c.start,
			End:   c.end,
			Bad:   res.bad,
		}
	}
	return res, nil
}

// mapRecord returns newline-terminated JSON lines of the structure and its
// references. A panic inside the mapper is returned as an error.
func (in *ingestio) mapRecord(rec record.Record) (res [][]byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("mapper panic on %s: %v", rec.Identifier, r)
		}
	}()

	s, refs, err := in.mapper.Map(rec)
	if err != nil {
		return nil, err
	}

	res = make([][]byte, 0, len(refs)+1)
	line, err := in.enc.Encode(s)
	if err != nil {
		return nil, err
	}
	res = append(res, append(line, '\n'))
	for i := range refs {
		if line, err = in.enc.Encode(refs[i]); err != nil {
			return nil, err
		}
		res = append(res, append(line, '\n'))
	}
	return res, nil
}

// chunkName returns the file name of a chunk. The index is zero-padded to
// the width of the number of chunks, so names sort like indices.
func chunkName(run string, c chunk) string {
	width := len(strconv.Itoa(c.num))
	return fmt.Sprintf("%s-optimade-%0*d.jsonl", run, width, c.idx)
}
