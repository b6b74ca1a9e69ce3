package ingestio

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gnames/csdoptimade/pkg/ent/optimade"
)

type mergeResult struct {
	path       string
	lines      int
	duplicates int
	dropped    int
}

// lineKey is the part of a data line needed for deduplication.
type lineKey struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// chunkFiles returns chunk files of the run sorted by chunk index.
func (in *ingestio) chunkFiles() ([]string, error) {
	prefix := in.cfg.RunName + "-optimade-"
	pattern := filepath.Join(in.cfg.ChunkDir, prefix+"*.jsonl")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	type indexed struct {
		idx  int
		path string
	}
	files := make([]indexed, 0, len(paths))
	for _, path := range paths {
		s := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), prefix), ".jsonl")
		idx, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		files = append(files, indexed{idx: idx, path: path})
	}
	slices.SortFunc(files, func(a, b indexed) int { return a.idx - b.idx })

	res := make([]string, len(files))
	for i := range files {
		res[i] = files[i].path
	}
	return res, nil
}

// merge concatenates chunk files and writes the final file with metadata
// lines followed by data lines unique by type and id.
func (in *ingestio) merge() (mergeResult, error) {
	res := mergeResult{path: in.finalPath()}

	paths, err := in.chunkFiles()
	if err != nil {
		return res, err
	}
	slog.Info("Merging chunk files", "files", len(paths))

	tmpDir, err := os.MkdirTemp("", "csdoptimade")
	if err != nil {
		return res, err
	}
	defer os.RemoveAll(tmpDir)

	concat := filepath.Join(tmpDir, filepath.Base(res.path))
	if err = concatenate(paths, concat); err != nil {
		slog.Error("Cannot concatenate chunk files", "error", err)
		return res, err
	}

	out, err := os.CreateTemp(in.cfg.OutputDir, in.cfg.RunName+"-optimade-*.tmp")
	if err != nil {
		slog.Error("Cannot create output file", "error", err)
		return res, err
	}
	done := false
	defer func() {
		if !done {
			out.Close()
			os.Remove(out.Name())
		}
	}()

	w := bufio.NewWriter(out)
	if err = in.writeMeta(w); err != nil {
		return res, err
	}
	if err = in.writeData(w, concat, &res); err != nil {
		return res, err
	}
	if err = w.Flush(); err != nil {
		return res, err
	}
	if err = out.Close(); err != nil {
		return res, err
	}
	if err = os.Rename(out.Name(), res.path); err != nil {
		slog.Error("Cannot rename output file", "error", err, "path", res.path)
		return res, err
	}
	done = true

	if res.dropped > 0 {
		slog.Warn("Dropped lines without type", "lines", res.dropped)
	}
	return res, nil
}

// concatenate copies chunk files into one file, removing each chunk file
// after it is copied.
func concatenate(paths []string, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	for _, path := range paths {
		if err = appendFile(out, path); err != nil {
			return err
		}
		if err = os.Remove(path); err != nil {
			return err
		}
	}
	return out.Close()
}

func appendFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = io.Copy(w, f); err != nil {
		return err
	}
	// a chunk interrupted mid-line must not glue its last line to the next
	// chunk
	_, err = w.Write([]byte{'\n'})
	return err
}

// writeMeta writes the header, the info line and entry type descriptions.
func (in *ingestio) writeMeta(w io.Writer) error {
	meta := []any{
		optimade.NewHeader(in.cfg.APIVersion),
		optimade.InfoLine{Data: optimade.NewInfo(in.cfg.APIVersion, in.cfg.Provider)},
	}
	fields := optimade.ProviderFields()
	for _, t := range optimade.EntryTypes {
		meta = append(meta, optimade.NewEntryInfo(t, fields[t]))
	}

	for _, m := range meta {
		line, err := in.enc.Encode(m)
		if err != nil {
			return err
		}
		if _, err = w.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// writeData copies data lines from src to w. Only the first line for every
// type and id is written, lines without a type are dropped.
func (in *ingestio) writeData(w io.Writer, src string, res *mergeResult) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	seen := make(map[lineKey]struct{})
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil

		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var key lineKey
			if err = in.enc.Decode(line, &key); err != nil || key.Type == "" {
				res.dropped++
			} else if _, ok := seen[key]; ok {
				res.duplicates++
			} else {
				seen[key] = struct{}{}
				if _, err = w.Write(append(line, '\n')); err != nil {
					return err
				}
				res.lines++
			}
		}

		if eof {
			return nil
		}
	}
}
