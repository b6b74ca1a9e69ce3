package ingestio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/csdoptimade/internal/ent/ingest"
	"github.com/gnames/csdoptimade/internal/ent/mapper"
	"github.com/gnames/csdoptimade/pkg/config"
	"github.com/gnames/csdoptimade/pkg/ent/record"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnsys"
	"golang.org/x/sync/errgroup"
)

// ingestio is a struct that implements ingest.Ingester interface.
type ingestio struct {
	cfg    config.Config
	opener record.Opener
	mapper mapper.Mapper
	host   host
	enc    gnfmt.Encoder
}

// New returns a new instance of Ingester.
func New(
	cfg config.Config,
	opener record.Opener,
	m mapper.Mapper,
) (ingest.Ingester, error) {
	res := ingestio{
		cfg:    cfg,
		opener: opener,
		mapper: m,
		host:   systemHost{},
		enc:    gnfmt.GNjson{},
	}
	for _, dir := range []string{cfg.OutputDir, cfg.ChunkDir} {
		if err := gnsys.MakeDir(dir); err != nil {
			slog.Error("Cannot create directory", "error", err, "dir", dir)
			return nil, err
		}
	}
	return &res, nil
}

// Ingest maps all records in chunks by concurrent workers and merges chunk
// files into the final file.
func (in *ingestio) Ingest(ctx context.Context) (ingest.Summary, error) {
	var res ingest.Summary
	start := time.Now()

	p, err := in.plan(ctx)
	if err != nil {
		return res, err
	}

	err = in.removeChunkFiles()
	if err != nil {
		return res, err
	}

	slog.Info("Ingesting records",
		"records", humanize.Comma(int64(in.cfg.NumStructures)),
		"chunks", len(p.chunks),
		"chunk-size", humanize.Comma(int64(p.size)),
		"jobs", p.jobs,
	)

	chChunks := make(chan chunk)
	chRes := make(chan chunkResult)
	var wg sync.WaitGroup

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chChunks)
		return feedChunks(ctx, p.chunks, chChunks)
	})
	for range p.jobs {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return in.worker(ctx, chChunks, chRes)
		})
	}
	g.Go(func() error {
		return in.progress(ctx, len(p.chunks), chRes, &res)
	})

	go func() {
		wg.Wait()
		close(chRes)
	}()

	if err = g.Wait(); err != nil {
		slog.Error("Ingest stopped", "error", err)
		return res, err
	}

	m, err := in.merge()
	if err != nil {
		return res, err
	}
	res.Lines = m.lines
	res.Duplicates = m.duplicates
	res.Output = m.path

	slog.Info("Ingest finished",
		"good", humanize.Comma(int64(res.Good())),
		"bad", humanize.Comma(int64(res.Bad)),
		"lines", humanize.Comma(int64(res.Lines)),
		"duplicates", humanize.Comma(int64(res.Duplicates)),
		"duration", time.Since(start).Round(time.Second),
		"output", res.Output,
	)
	return res, nil
}

func feedChunks(ctx context.Context, chunks []chunk, chChunks chan<- chunk) error {
	for _, c := range chunks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chChunks <- c:
		}
	}
	return nil
}

// worker processes chunks one by one until there are no more chunks.
func (in *ingestio) worker(
	ctx context.Context,
	chChunks <-chan chunk,
	chRes chan<- chunkResult,
) error {
loop:
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-chChunks:
			if !ok {
				break loop
			}
			res, err := in.processChunk(ctx, c)
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case chRes <- res:
			}
		}
	}
	return nil
}

// progress aggregates chunk results in the order of their completion.
func (in *ingestio) progress(
	ctx context.Context,
	chunksNum int,
	chRes <-chan chunkResult,
	sum *ingest.Summary,
) error {
	timeStart := time.Now()
loop:
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-chRes:
			if !ok {
				break loop
			}
			sum.Chunks++
			sum.Total += r.total
			sum.Bad += r.bad

			var speed int64
			if timeSpent := time.Since(timeStart).Seconds(); timeSpent > 0 {
				speed = int64(float64(sum.Total) / timeSpent)
			}
			fmt.Printf("\r%s", strings.Repeat(" ", 70))
			fmt.Printf("\rChunks %d/%d, %s records, %s records/sec, bad %s",
				sum.Chunks, chunksNum, humanize.Comma(int64(sum.Total)),
				humanize.Comma(speed), badPercent(sum.Bad, sum.Total))
		}
	}
	fmt.Println()
	return nil
}

func badPercent(bad, total int) string {
	if total == 0 {
		return "???"
	}
	return fmt.Sprintf("%.2f%%", 100*float64(bad)/float64(total))
}

// removeChunkFiles removes chunk files of a previous run with the same
// name.
func (in *ingestio) removeChunkFiles() error {
	paths, err := in.chunkFiles()
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err = os.Remove(path); err != nil {
			slog.Error("Cannot remove old chunk file", "error", err, "path", path)
			return err
		}
	}
	return nil
}

func (in *ingestio) finalPath() string {
	return filepath.Join(in.cfg.OutputDir, in.cfg.RunName+"-optimade.jsonl")
}
