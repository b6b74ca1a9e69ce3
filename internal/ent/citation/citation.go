// Package citation converts publications of structural records into
// OPTIMADE reference resources.
package citation

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gnames/csdoptimade/pkg/ent/optimade"
	"github.com/gnames/csdoptimade/pkg/ent/record"
	"golang.org/x/text/unicode/norm"
)

const (
	suffixLen     = 6
	suffixLetters = "abcdefghijklmnopqrstuvwxyz"
	unknownAuthor = "unknown"
)

// Extractor creates references out of publications. It is safe for
// concurrent use.
type Extractor struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New creates an Extractor. If rnd is nil, the global random source is used
// for suffixes of synthesized identifiers.
func New(rnd *rand.Rand) *Extractor {
	return &Extractor{rnd: rnd}
}

// Extract converts publications to references, keeping their order. It
// never fails: missing or malformed data produce references with less
// information.
func (e *Extractor) Extract(
	pubs []record.Publication,
	now time.Time,
) []optimade.Reference {
	if len(pubs) == 0 {
		return nil
	}
	modified := now.UTC().Format(time.RFC3339)

	res := make([]optimade.Reference, 0, len(pubs))
	for _, p := range pubs {
		authors := Authors(deref(p.Authors))
		attr := optimade.ReferenceAttributes{
			LastModified: modified,
			Authors:      authors,
			Journal:      nonEmpty(p.Journal),
			Volume:       nonEmpty(p.Volume),
			Pages:        nonEmpty(p.FirstPage),
			DOI:          nonEmpty(p.DOI),
		}
		if p.Year != nil {
			year := strconv.Itoa(*p.Year)
			attr.Year = &year
		}

		id := deref(attr.DOI)
		if id == "" {
			id = e.syntheticID(authors, p.Year)
		}

		res = append(res, optimade.Reference{
			ID:         id,
			Type:       optimade.ReferencesType,
			Attributes: attr,
		})
	}
	return res
}

// Authors splits a comma-separated list of authors like
// "J.Smith,A.B.Jones" into persons.
func Authors(s string) []optimade.Person {
	s = norm.NFC.String(s)
	var res []optimade.Person
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		res = append(res, person(name))
	}
	return res
}

func person(name string) optimade.Person {
	res := optimade.Person{Name: name}
	idx := strings.LastIndexAny(name, ". ")
	if idx < 0 || idx == len(name)-1 {
		res.LastName = name
		return res
	}
	res.FirstName = strings.TrimSpace(name[:idx+1])
	res.LastName = strings.TrimSpace(name[idx+1:])
	return res
}

func (e *Extractor) syntheticID(authors []optimade.Person, year *int) string {
	var sb strings.Builder
	last := unknownAuthor
	if len(authors) > 0 && authors[0].LastName != "" {
		last = strings.Join(strings.Fields(authors[0].LastName), "")
	}
	sb.WriteString(last)
	if year != nil {
		sb.WriteString(strconv.Itoa(*year))
	}
	sb.WriteByte('-')
	sb.WriteString(e.suffix())
	return sb.String()
}

func (e *Extractor) suffix() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	bs := make([]byte, suffixLen)
	for i := range bs {
		var n int
		if e.rnd == nil {
			n = rand.IntN(len(suffixLetters))
		} else {
			n = e.rnd.IntN(len(suffixLetters))
		}
		bs[i] = suffixLetters[n]
	}
	return string(bs)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	res := strings.TrimSpace(*s)
	return &res
}
