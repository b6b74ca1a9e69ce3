// Package formula normalizes chemical formulas of the structural database,
// for example "C18 H12 Br3 N1", into reduced OPTIMADE formulas.
package formula

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	leadingCoef = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?\s*`)
	tokenRe     = regexp.MustCompile(`^([A-Za-z]+)([0-9]*(\.[0-9]+)?)$`)
)

// InvalidFormulaError means a formula cannot be reduced unambiguously.
type InvalidFormulaError struct {
	Formula string
	Reason  string
}

func (e *InvalidFormulaError) Error() string {
	return fmt.Sprintf("invalid formula %q: %s", e.Formula, e.Reason)
}

// ReductionError means that a formula passed validation but produced an
// empty reduced formula. It points to corrupted data.
type ReductionError struct {
	Formula string
}

func (e *ReductionError) Error() string {
	return fmt.Sprintf("reduction of formula %q produced an empty result", e.Formula)
}

// Reduce converts a formula to a reduced formula with element counts divided
// by their greatest common divisor, elements ordered alphabetically.
// Deuterium counts are merged into hydrogen for the reduced formula, but the
// returned set of elements keeps "D".
func Reduce(f string) (string, []string, error) {
	raw, err := parse(f)
	if err != nil {
		return "", nil, err
	}

	elements := make([]string, 0, len(raw))
	merged := make(map[string]int, len(raw))
	for el, n := range raw {
		elements = append(elements, el)
		if el == "D" {
			el = "H"
		}
		merged[el] += n
	}
	slices.Sort(elements)

	res := format(merged)
	if res == "" {
		return "", nil, &ReductionError{Formula: f}
	}
	return res, elements, nil
}

// Counts parses a reduced formula like "Br3C18H12N" into element counts.
func Counts(reduced string) (map[string]int, error) {
	res := make(map[string]int)
	var el []rune
	var num []rune
	flush := func() error {
		if len(el) == 0 {
			return nil
		}
		n := 1
		if len(num) > 0 {
			var err error
			if n, err = strconv.Atoi(string(num)); err != nil {
				return err
			}
		}
		res[string(el)] += n
		el, num = el[:0], num[:0]
		return nil
	}
	for _, r := range reduced {
		switch {
		case r >= 'A' && r <= 'Z':
			if err := flush(); err != nil {
				return nil, err
			}
			el = append(el, r)
		case r >= 'a' && r <= 'z':
			if len(el) == 0 || len(num) > 0 {
				return nil, &InvalidFormulaError{Formula: reduced, Reason: "misplaced lowercase letter"}
			}
			el = append(el, r)
		case r >= '0' && r <= '9':
			if len(el) == 0 {
				return nil, &InvalidFormulaError{Formula: reduced, Reason: "count without element"}
			}
			num = append(num, r)
		default:
			return nil, &InvalidFormulaError{Formula: reduced, Reason: "unexpected character"}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, &ReductionError{Formula: reduced}
	}
	return res, nil
}

// Anonymous converts a reduced formula into the anonymous OPTIMADE form,
// where the element with the largest count becomes "A", the next "B" and so
// on, for example "Br3C18H12N" becomes "A18B12C3D".
func Anonymous(reduced string) (string, error) {
	counts, err := Counts(reduced)
	if err != nil {
		return "", err
	}
	ns := make([]int, 0, len(counts))
	for _, n := range counts {
		ns = append(ns, n)
	}
	slices.SortFunc(ns, func(a, b int) int { return b - a })

	var sb strings.Builder
	for i, n := range ns {
		sb.WriteString(anonymousSymbol(i))
		if n > 1 {
			sb.WriteString(strconv.Itoa(n))
		}
	}
	return sb.String(), nil
}

// anonymousSymbol returns A..Z, then Aa..Za, Ab..Zb and so on.
func anonymousSymbol(i int) string {
	res := string(rune('A' + i%26))
	if i >= 26 {
		res += string(rune('a' + (i/26-1)%26))
	}
	return res
}

func parse(f string) (map[string]int, error) {
	s := strings.TrimSpace(f)
	if s == "" {
		return nil, &InvalidFormulaError{Formula: f, Reason: "empty formula"}
	}
	if strings.Contains(s, ",") {
		return nil, &InvalidFormulaError{
			Formula: f,
			Reason:  "multi-component formula is ambiguous",
		}
	}

	s = leadingCoef.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "x(")
	s = strings.TrimPrefix(s, "(")
	for _, suffix := range []string{")n", ")x", ")"} {
		s = strings.TrimSuffix(s, suffix)
	}

	res := make(map[string]int)
	for _, tok := range strings.Fields(s) {
		m := tokenRe.FindStringSubmatch(tok)
		if m == nil {
			// charges like "1+" or "2-" are not elements
			continue
		}
		if m[3] != "" {
			return nil, &InvalidFormulaError{
				Formula: f,
				Reason:  "fractional element count " + tok,
			}
		}
		n := 1
		if m[2] != "" {
			var err error
			if n, err = strconv.Atoi(m[2]); err != nil {
				return nil, &InvalidFormulaError{Formula: f, Reason: err.Error()}
			}
		}
		res[m[1]] += n
	}
	return res, nil
}

func format(counts map[string]int) string {
	var div int
	for _, n := range counts {
		div = gcd(div, n)
	}
	if div == 0 {
		return ""
	}

	els := make([]string, 0, len(counts))
	for el, n := range counts {
		if n == 0 {
			continue
		}
		els = append(els, el)
	}
	slices.Sort(els)

	var sb strings.Builder
	for _, el := range els {
		sb.WriteString(el)
		if n := counts[el] / div; n > 1 {
			sb.WriteString(strconv.Itoa(n))
		}
	}
	return sb.String()
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
