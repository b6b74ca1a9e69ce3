package ingestio_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/gnames/csdoptimade/internal/ent/ingest"
	"github.com/gnames/csdoptimade/internal/ent/mapper"
	"github.com/gnames/csdoptimade/internal/io/ingestio"
	"github.com/gnames/csdoptimade/pkg/config"
)

func readLines(path string) []map[string]any {
	f, err := os.Open(path)
	Expect(err).ToNot(HaveOccurred())
	defer f.Close()

	var res []map[string]any
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var m map[string]any
		Expect(json.Unmarshal(sc.Bytes(), &m)).To(Succeed())
		res = append(res, m)
	}
	Expect(sc.Err()).ToNot(HaveOccurred())
	return res
}

func chunkFiles(cfg config.Config) []string {
	paths, err := filepath.Glob(filepath.Join(cfg.ChunkDir, "*.jsonl"))
	Expect(err).ToNot(HaveOccurred())
	return paths
}

var _ = Describe("Ingestio", func() {
	var dir string
	var cfg config.Config
	ctx := context.Background()

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "ingestio")
		Expect(err).ToNot(HaveOccurred())
		cfg = config.New(
			config.OptOutputDir(dir),
			config.OptRunName("test"),
			config.OptJobsNum(3),
			config.OptChunkSize(10),
			config.OptNumStructures(30),
			config.OptAdvisoryDelay(0),
		)
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	Describe("Ingest", func() {
		It("converts records into one deduplicated file", func() {
			m := newCountingMapper()
			ing, err := ingestio.New(cfg, &fakeOpener{recs: testRecords(30)}, m)
			Expect(err).ToNot(HaveOccurred())

			total, bad, err := ingestio.ProcessChunks(ctx, ing, 30, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(total).To(Equal(28))
			Expect(bad).To(Equal(1))
			Expect(chunkFiles(cfg)).To(HaveLen(3))

			lines, dups, err := ingestio.Merge(ing)
			Expect(err).ToNot(HaveOccurred())
			Expect(lines).To(Equal(27))
			Expect(dups).To(Equal(0))
			Expect(chunkFiles(cfg)).To(BeEmpty())

			res := readLines(filepath.Join(dir, "test-optimade.jsonl"))
			Expect(res).To(HaveLen(4 + 27))
			Expect(res[0]).To(HaveKey("x-optimade"))
			Expect(res[1]).To(HaveKey("data"))
			Expect(res[1]["data"].(map[string]any)["type"]).To(Equal("info"))
			Expect(res[2]).To(HaveKey("properties"))
			Expect(res[3]).To(HaveKey("properties"))
			Expect(res[2]["properties"]).To(HaveKey("_csd_z_prime"))
			Expect(res[4]["id"]).To(Equal("REC00"))
			Expect(res[4]["type"]).To(Equal("structures"))
			Expect(res[30]["id"]).To(Equal("REC29"))

			for _, l := range res[4:] {
				Expect(l["id"]).ToNot(Equal("QIJZOB"))
				Expect(l["id"]).ToNot(Equal("REC07"))
				Expect(l["id"]).ToNot(Equal("REC12"))
			}
			Expect(m.count("QIJZOB")).To(Equal(0))
			Expect(m.count("REC12")).To(Equal(1))
		})

		It("runs the full pipeline with concurrent workers", func() {
			m := newCountingMapper()
			for range 2 {
				ing, err := ingestio.New(cfg, &fakeOpener{recs: testRecords(30)}, m)
				Expect(err).ToNot(HaveOccurred())
				sum, err := ing.Ingest(ctx)
				Expect(err).ToNot(HaveOccurred())
				Expect(sum.Chunks).To(Equal(3))
				Expect(sum.Total).To(Equal(28))
				Expect(sum.Bad).To(Equal(1))
				Expect(sum.Good()).To(Equal(27))
				Expect(sum.Lines).To(Equal(27))
				Expect(sum.Output).To(Equal(filepath.Join(dir, "test-optimade.jsonl")))
				Expect(chunkFiles(cfg)).To(BeEmpty())
				Expect(readLines(sum.Output)).To(HaveLen(31))
			}
			Expect(m.count("QIJZOB")).To(Equal(0))
			Expect(m.count("REC00")).To(Equal(2))
		})

		It("ends the last chunk when records run out", func() {
			cfg.NumStructures = 45
			ing, err := ingestio.New(cfg, &fakeOpener{recs: testRecords(30)}, mapper.New())
			Expect(err).ToNot(HaveOccurred())
			sum, err := ing.Ingest(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(sum.Chunks).To(Equal(5))
			Expect(sum.Good()).To(Equal(27))
		})

		It("uses one chunk when the chunk is bigger than the data", func() {
			cfg.ChunkSize = 1000
			ing, err := ingestio.New(cfg, &fakeOpener{recs: testRecords(30)}, mapper.New())
			Expect(err).ToNot(HaveOccurred())
			sum, err := ing.Ingest(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(sum.Chunks).To(Equal(1))
			Expect(sum.Lines).To(Equal(27))
		})

		It("counts a panic in the mapper as a bad record", func() {
			m := panickingMapper{Mapper: mapper.New(), id: "REC03"}
			ing, err := ingestio.New(cfg, &fakeOpener{recs: testRecords(30)}, m)
			Expect(err).ToNot(HaveOccurred())
			sum, err := ing.Ingest(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(sum.Bad).To(Equal(2))
			Expect(sum.Lines).To(Equal(26))
		})

		It("stops on a chunk without a single good record", func() {
			ing, err := ingestio.New(cfg, &fakeOpener{recs: testRecords(30)}, failingMapper{})
			Expect(err).ToNot(HaveOccurred())
			_, err = ing.Ingest(ctx)
			var fault *ingestio.ChunkFaultError
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.Bad).To(BeNumerically(">", 0))
			_, err = os.Stat(filepath.Join(dir, "test-optimade.jsonl"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("accepts chunks that have nothing to map", func() {
			recs := testRecords(30)
			for i := 20; i < 30; i++ {
				recs[i] = nil
			}
			ing, err := ingestio.New(cfg, &fakeOpener{recs: recs}, mapper.New())
			Expect(err).ToNot(HaveOccurred())
			sum, err := ing.Ingest(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(sum.Lines).To(Equal(17))
		})
	})

	Describe("Merge", func() {
		It("keeps the first line of every type and id", func() {
			ing, err := ingestio.New(cfg, &fakeOpener{}, mapper.New())
			Expect(err).ToNot(HaveOccurred())

			files := map[string]string{
				"test-optimade-2.jsonl": `{"id":"A","type":"structures","n":1}
{"id":"R","type":"references","n":1}
`,
				"test-optimade-10.jsonl": `{"id":"A","type":"structures","n":2}
{"id":"A","type":"references","n":2}

{"id":"X","n":2}
{"id":"B","type":"structures","n":2}`,
				"test-optimade-3.jsonl":  `{"id":"R","type":"references","n":3}`,
				"other-optimade-1.jsonl": `{"id":"Z","type":"structures"}`,
			}
			for name, content := range files {
				path := filepath.Join(cfg.ChunkDir, name)
				Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
			}

			lines, dups, err := ingestio.Merge(ing)
			Expect(err).ToNot(HaveOccurred())
			Expect(lines).To(Equal(4))
			Expect(dups).To(Equal(2))

			res := readLines(filepath.Join(dir, "test-optimade.jsonl"))[4:]
			Expect(res).To(HaveLen(4))
			Expect(res[0]).To(Equal(map[string]any{"id": "A", "type": "structures", "n": 1.0}))
			Expect(res[1]).To(Equal(map[string]any{"id": "R", "type": "references", "n": 1.0}))
			Expect(res[2]["type"]).To(Equal("references"))
			Expect(res[3]["id"]).To(Equal("B"))

			Expect(chunkFiles(cfg)).To(Equal(
				[]string{filepath.Join(cfg.ChunkDir, "other-optimade-1.jsonl")},
			))
		})
	})

	Describe("Plan", func() {
		newIngester := func(opts ...config.Option) ingest.Ingester {
			opts = append([]config.Option{
				config.OptOutputDir(dir),
				config.OptRunName("test"),
				config.OptJobsNum(3),
				config.OptChunkSize(10),
				config.OptNumStructures(30),
			}, opts...)
			ing, err := ingestio.New(config.New(opts...), &fakeOpener{}, mapper.New())
			Expect(err).ToNot(HaveOccurred())
			return ing
		}

		cancelled := func() context.Context {
			c, cancel := context.WithCancel(ctx)
			cancel()
			return c
		}

		It("pauses and continues when resources are short", func() {
			ing := newIngester(config.OptAdvisoryDelay(50 * time.Millisecond))
			ingestio.SetHost(ing, 0.1, 1)
			start := time.Now()
			size, jobs, err := ingestio.Plan(ctx, ing)
			Expect(err).ToNot(HaveOccurred())
			Expect(time.Since(start)).To(BeNumerically(">=", 50*time.Millisecond))
			Expect(size).To(Equal(10))
			Expect(jobs).To(Equal(3))
		})

		It("warns when estimated memory exceeds available memory", func() {
			ing := newIngester(config.OptAdvisoryDelay(time.Hour))
			ingestio.SetHost(ing, 0.1, 16)
			_, _, err := ingestio.Plan(cancelled(), ing)
			Expect(err).To(MatchError(context.Canceled))
		})

		It("warns when jobs outnumber physical cores", func() {
			ing := newIngester(config.OptAdvisoryDelay(time.Hour))
			ingestio.SetHost(ing, 100, 1)
			_, _, err := ingestio.Plan(cancelled(), ing)
			Expect(err).To(MatchError(context.Canceled))
		})

		It("does not pause when resources are sufficient", func() {
			ing := newIngester(config.OptAdvisoryDelay(time.Hour))
			ingestio.SetHost(ing, 100, 16)
			c, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			size, jobs, err := ingestio.Plan(c, ing)
			Expect(err).ToNot(HaveOccurred())
			Expect(size).To(Equal(10))
			Expect(jobs).To(Equal(3))
		})

		It("uses a single chunk when it fits into memory", func() {
			ing := newIngester(
				config.OptChunkSize(0),
				config.OptJobsNum(4),
				config.OptAdvisoryDelay(0),
			)
			ingestio.SetHost(ing, 16, 4)
			size, jobs, err := ingestio.Plan(ctx, ing)
			Expect(err).ToNot(HaveOccurred())
			Expect(size).To(Equal(30))
			Expect(jobs).To(Equal(1))
		})

		It("splits records between jobs when memory is unknown", func() {
			ing := newIngester(
				config.OptChunkSize(0),
				config.OptJobsNum(4),
				config.OptAdvisoryDelay(0),
			)
			ingestio.SetHost(ing, 0, 8)
			size, jobs, err := ingestio.Plan(ctx, ing)
			Expect(err).ToNot(HaveOccurred())
			Expect(size).To(Equal(8))
			Expect(jobs).To(Equal(4))
		})
	})

	Describe("Partition", func() {
		It("splits ranges into contiguous chunks", func() {
			Expect(ingestio.Partition(25, 10)).To(Equal(
				[][2]int{{0, 10}, {10, 20}, {20, 25}},
			))
			Expect(ingestio.Partition(0, 10)).To(BeEmpty())
		})
	})

	Describe("AutoChunkSize", func() {
		It("divides available memory between jobs", func() {
			Expect(ingestio.AutoChunkSize(16, 4, 0.8, 0.5, 2.5/10_000)).To(Equal(10_800))
			Expect(ingestio.AutoChunkSize(1, 64, 0.8, 0.5, 2.5/10_000)).To(Equal(1))
		})
	})

	Describe("ChunkName", func() {
		It("pads chunk index to the number of chunks", func() {
			Expect(ingestio.ChunkName("csd", 7, 130)).To(Equal("csd-optimade-007.jsonl"))
			Expect(ingestio.ChunkName("csd", 2, 3)).To(Equal("csd-optimade-2.jsonl"))
			Expect(strings.HasSuffix(ingestio.ChunkName("csd", 10, 10), "-10.jsonl")).To(BeTrue())
		})
	})
})
