package ingestio

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const gb = 1 << 30

// host reports resources of the machine.
type host interface {
	availableGB() (float64, error)
	physicalCores() (int, error)
}

type systemHost struct{}

func (systemHost) availableGB() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return float64(vm.Available) / gb, nil
}

func (systemHost) physicalCores() (int, error) {
	return cpu.Counts(false)
}

// chunk is a half-open range of record indices.
type chunk struct {
	idx        int
	num        int
	start, end int
}

type plan struct {
	size   int
	jobs   int
	chunks []chunk
}

// plan decides chunk size and number of jobs, and warns if the run might
// need more resources than the machine has.
func (in *ingestio) plan(ctx context.Context) (plan, error) {
	res := plan{size: in.cfg.ChunkSize, jobs: in.cfg.JobsNum}
	num := in.cfg.NumStructures

	availGB, err := in.host.availableGB()
	if err != nil {
		slog.Warn("Cannot get available memory", "error", err)
	}

	switch {
	case res.size > 0:
	case availGB > 0:
		res.size = autoChunkSize(
			availGB, res.jobs,
			in.cfg.MemoryFraction, in.cfg.BaseMemoryGB, in.cfg.MemoryPerRecordGB,
		)
	default:
		res.size = max((num+res.jobs-1)/res.jobs, 1)
	}
	if res.size > num {
		res.size = num
		res.jobs = 1
	}
	res.chunks = partition(num, res.size)
	if len(res.chunks) < res.jobs {
		res.jobs = max(len(res.chunks), 1)
	}

	var advisory bool
	estGB := float64(res.jobs) *
		(in.cfg.BaseMemoryGB + float64(res.size)*in.cfg.MemoryPerRecordGB)
	if availGB > 0 && estGB > in.cfg.MemoryFraction*availGB {
		slog.Warn("Estimated memory exceeds available memory",
			"estimated-gb", humanize.FtoaWithDigits(estGB, 2),
			"available-gb", humanize.FtoaWithDigits(availGB, 2),
		)
		advisory = true
	}

	cores, err := in.host.physicalCores()
	if err != nil {
		slog.Warn("Cannot get number of CPU cores", "error", err)
	} else if res.jobs > cores {
		slog.Warn("More jobs than physical CPU cores",
			"jobs", res.jobs, "cores", cores,
		)
		advisory = true
	}

	if advisory && in.cfg.AdvisoryDelay > 0 {
		slog.Warn("Continuing after a pause", "pause", in.cfg.AdvisoryDelay)
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(in.cfg.AdvisoryDelay):
		}
	}
	return res, nil
}

// autoChunkSize estimates how many records a worker can keep in its share
// of available memory.
func autoChunkSize(availGB float64, jobs int, fraction, baseGB, perRecordGB float64) int {
	if jobs < 1 {
		jobs = 1
	}
	res := int((fraction*availGB/float64(jobs) - baseGB) / perRecordGB)
	return max(res, 1)
}

// partition splits [0, num) into contiguous chunks of the given size. The
// last chunk is clamped to num.
func partition(num, size int) []chunk {
	if num <= 0 || size <= 0 {
		return nil
	}
	n := (num + size - 1) / size
	res := make([]chunk, 0, n)
	for start := 0; start < num; start += size {
		res = append(res, chunk{
			idx:   len(res),
			num:   n,
			start: start,
			end:   min(start+size, num),
		})
	}
	return res
}
