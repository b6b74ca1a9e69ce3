package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gnames/csdoptimade/pkg/ent/optimade"
	"github.com/shirou/gopsutil/v3/cpu"
)

var (
	// badIdentifiers are records that break the structural database reader.
	badIdentifiers = []string{"QIJZOB"}
)

// Config is a struct that holds configuration parameters for the package.
type Config struct {
	// OutputDir is a directory for the final JSONL file.
	OutputDir string

	// ChunkDir is a directory for per-chunk JSONL files. They are removed
	// after the merge.
	ChunkDir string

	// SourceDir is a directory of the key-value store with source records.
	SourceDir string

	// RunName is a prefix of output file names.
	RunName string

	// JobsNum is a number of concurrent chunk workers.
	JobsNum int

	// ChunkSize is a number of records per chunk. If it is 0, the size is
	// estimated from available memory.
	ChunkSize int

	// NumStructures is the upper bound of record indices to ingest.
	NumStructures int

	// BadIdentifiers are records that are skipped without mapping.
	BadIdentifiers map[string]struct{}

	// AdvisoryDelay is a pause after a warning about memory or CPU, giving
	// the operator a chance to cancel the run.
	AdvisoryDelay time.Duration

	// BaseMemoryGB is an estimated memory of one worker without records.
	BaseMemoryGB float64

	// MemoryPerRecordGB is an estimated memory needed for one record.
	MemoryPerRecordGB float64

	// MemoryFraction is a share of available memory the run may use.
	MemoryFraction float64

	// Port is a port of the HTTP server.
	Port int

	// APIVersion is the OPTIMADE API version of the output.
	APIVersion string

	// Provider describes the database provider.
	Provider optimade.Provider
}

// Option type allows to change settings for Config.
type Option func(*Config)

// OptOutputDir sets a directory for output files. Chunk files go to its
// "data" subdirectory.
func OptOutputDir(d string) Option {
	return func(cfg *Config) {
		cfg.OutputDir = d
		cfg.ChunkDir = filepath.Join(d, "data")
	}
}

// OptSourceDir sets a directory of the source records store.
func OptSourceDir(d string) Option {
	return func(cfg *Config) {
		cfg.SourceDir = d
	}
}

// OptRunName sets a prefix for output files.
func OptRunName(s string) Option {
	return func(cfg *Config) {
		cfg.RunName = s
	}
}

// OptJobsNum sets parallelism number for concurrent goroutines.
func OptJobsNum(j int) Option {
	return func(cfg *Config) {
		cfg.JobsNum = j
	}
}

// OptChunkSize sets the number of records per chunk.
func OptChunkSize(i int) Option {
	return func(cfg *Config) {
		cfg.ChunkSize = i
	}
}

// OptNumStructures sets the upper bound of record indices.
func OptNumStructures(i int) Option {
	return func(cfg *Config) {
		cfg.NumStructures = i
	}
}

// OptBadIdentifiers replaces the list of identifiers to skip.
func OptBadIdentifiers(ids []string) Option {
	return func(cfg *Config) {
		cfg.BadIdentifiers = idSet(ids)
	}
}

// OptAdvisoryDelay sets the pause after resource warnings.
func OptAdvisoryDelay(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.AdvisoryDelay = d
	}
}

// OptPort sets the port of the HTTP server.
func OptPort(p int) Option {
	return func(cfg *Config) {
		cfg.Port = p
	}
}

// New creates Config with default values modified by options.
func New(opts ...Option) Config {
	outDir, err := os.UserCacheDir()
	if err != nil {
		outDir = os.TempDir()
	}
	outDir = filepath.Join(outDir, "csdoptimade")

	res := Config{
		OutputDir:         outDir,
		ChunkDir:          filepath.Join(outDir, "data"),
		SourceDir:         filepath.Join(outDir, "records"),
		RunName:           "csd",
		JobsNum:           physicalCores(),
		NumStructures:     1_290_000,
		BadIdentifiers:    idSet(badIdentifiers),
		AdvisoryDelay:     5 * time.Second,
		BaseMemoryGB:      0.5,
		MemoryPerRecordGB: 2.5 / 10_000,
		MemoryFraction:    0.8,
		Port:              5000,
		APIVersion:        optimade.APIVersion,
		Provider:          optimade.DefaultProvider(),
	}

	for _, opt := range opts {
		opt(&res)
	}

	if res.JobsNum < 1 {
		res.JobsNum = 1
	}
	return res
}

func physicalCores() int {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func idSet(ids []string) map[string]struct{} {
	res := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		res[id] = struct{}{}
	}
	return res
}
