package mapper_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/gnames/csdoptimade/internal/ent/mapper"
	"github.com/gnames/csdoptimade/pkg/ent/optimade"
	"github.com/gnames/csdoptimade/pkg/ent/record"
)

func ptr[T any](v T) *T { return &v }

var fixed = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func atom(sym string, x float64) record.Atom {
	return record.Atom{Symbol: sym, Coordinates: &record.Vector{X: x, Y: 1, Z: 2}}
}

func zzzghe() record.Record {
	deposited := time.Date(1999, 3, 2, 0, 0, 0, 0, time.UTC)
	return record.Record{
		Identifier:     "ZZZGHE",
		Formula:        ptr("C18 H12 Br3 N1"),
		ChemicalName:   ptr("tris(4-bromophenyl)amine"),
		DepositionDate: &deposited,
		CCDCNumber:     ptr(112233),
		InChIs: []record.InChI{
			{String: "InChI=1S/C18H12Br3N", Key: "XXXX-YYYY-N"},
		},
		SMILES:         ptr("Brc1ccc(cc1)N(c1ccc(Br)cc1)c1ccc(Br)cc1"),
		Has3DStructure: true,
		Crystal: &record.Crystal{
			CellLengths:      &record.CellLengths{A: 10, B: 11, C: 12},
			CellAngles:       &record.CellAngles{Alpha: 90, Beta: 90, Gamma: 90},
			CellVolume:       ptr(1320.0),
			SpaceGroupSymbol: ptr("P21/c"),
			SpaceGroupNumber: ptr(14),
			CrystalSystem:    ptr("monoclinic"),
			ZValue:           ptr(4),
			ZPrime:           ptr(1.0),
			Packed: &record.Molecule{Atoms: []record.Atom{
				atom("Br", 0), atom("C", 1), atom("H", 2), atom("N", 3),
			}},
		},
		Publications: []record.Publication{{
			Authors: ptr("J.Smith"),
			Year:    ptr(1999),
			DOI:     ptr("10.1000/xyz"),
		}},
	}
}

var _ = Describe("Mapper", func() {
	var m mapper.Mapper

	BeforeEach(func() {
		m = mapper.New(mapper.OptClock(func() time.Time { return fixed }))
	})

	It("maps a complete record", func() {
		s, refs, err := m.Map(zzzghe())
		Expect(err).ToNot(HaveOccurred())
		Expect(s.ID).To(Equal("ZZZGHE"))
		Expect(s.Type).To(Equal(optimade.StructuresType))

		a := s.Attributes
		Expect(a.LastModified).To(Equal("2024-05-01T12:00:00Z"))
		Expect(a.ImmutableID).ToNot(BeEmpty())
		Expect(*a.ChemicalFormulaReduced).To(Equal("Br3C18H12N"))
		Expect(*a.ChemicalFormulaAnonymous).To(Equal("A18B12C3D"))
		Expect(*a.ChemicalFormulaDescriptive).To(Equal("C18 H12 Br3 N1"))
		Expect(a.Elements).To(Equal([]string{"Br", "C", "H", "N"}))
		Expect(*a.NElements).To(Equal(4))
		Expect(a.ElementsRatios).To(HaveLen(4))
		Expect(a.ElementsRatios[1]).To(BeNumerically("~", 18.0/34.0, 1e-9))
		Expect(a.DimensionTypes).To(Equal([]int{1, 1, 1}))
		Expect(a.NPeriodicDimension).To(Equal(3))
		Expect(a.LatticeVectors).To(Equal([][3]float64{
			{10, 0, 0}, {0, 11, 0}, {0, 0, 12},
		}))
		Expect(*a.NSites).To(Equal(4))
		Expect(a.CartesianSitePositions).To(HaveLen(4))
		Expect(a.SpeciesAtSites).To(Equal([]string{"Br", "C", "H", "N"}))
		Expect(a.Species).To(HaveLen(4))
		Expect(a.StructureFeatures).To(BeEmpty())
		Expect(*a.SpaceGroupITNumber).To(Equal(14))

		Expect(*a.CSDCellVolume).To(Equal(1320.0))
		Expect(*a.CSDLatticeGamma).To(Equal(90.0))
		Expect(*a.CSDSpaceGroupSymbol).To(Equal("P21/c"))
		Expect(a.CSDDepositionDate.Date).To(Equal("1999-03-02T00:00:00Z"))
		Expect(a.CSDInChI).To(Equal([]string{"InChI=1S/C18H12Br3N"}))
		Expect(a.CSDInChIKey).To(Equal([]string{"XXXX-YYYY-N"}))
		Expect(*a.CSDZPrime).To(Equal(1.0))

		Expect(refs).To(HaveLen(1))
		Expect(refs[0].ID).To(Equal("10.1000/xyz"))
		Expect(s.Relationships.References.Data).To(Equal(
			[]optimade.RelationshipLink{{Type: "references", ID: "10.1000/xyz"}},
		))
	})

	It("keeps immutable_id stable", func() {
		s1, _, _ := m.Map(zzzghe())
		s2, _, _ := mapper.New().Map(zzzghe())
		Expect(s1.Attributes.ImmutableID).To(Equal(s2.Attributes.ImmutableID))
	})

	It("produces the same output apart from timestamps", func() {
		later := mapper.New(mapper.OptClock(func() time.Time {
			return fixed.Add(time.Hour)
		}))
		s1, r1, err := m.Map(zzzghe())
		Expect(err).ToNot(HaveOccurred())
		s2, r2, err := later.Map(zzzghe())
		Expect(err).ToNot(HaveOccurred())
		Expect(s1.Attributes.LastModified).ToNot(Equal(s2.Attributes.LastModified))

		s1.Attributes.LastModified, s2.Attributes.LastModified = "", ""
		r1[0].Attributes.LastModified, r2[0].Attributes.LastModified = "", ""
		Expect(s1).To(Equal(s2))
		Expect(r1).To(Equal(r2))
	})

	It("leaves geometry empty without 3D coordinates", func() {
		rec := zzzghe()
		rec.Has3DStructure = false
		s, _, err := m.Map(rec)
		Expect(err).ToNot(HaveOccurred())
		a := s.Attributes
		Expect(a.LatticeVectors).To(BeNil())
		Expect(a.CartesianSitePositions).To(BeNil())
		Expect(a.NSites).To(BeNil())
		Expect(a.Species).To(BeNil())
		Expect(a.SpeciesAtSites).To(BeNil())
		Expect(a.CSDCellVolume).To(BeNil())
		Expect(a.CSDLatticeA).To(BeNil())
		Expect(a.CSDLatticeAlpha).To(BeNil())
		Expect(a.Elements).To(Equal([]string{"Br", "C", "H", "N"}))
		Expect(*a.SpaceGroupITNumber).To(Equal(14))
	})

	It("leaves positions empty when atoms lack coordinates", func() {
		rec := zzzghe()
		rec.Crystal.Packed.Atoms[2].Coordinates = nil
		s, _, err := m.Map(rec)
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Attributes.CartesianSitePositions).To(BeNil())
		Expect(s.Attributes.Species).To(BeNil())
		Expect(s.Attributes.LatticeVectors).ToNot(BeNil())
	})

	It("displays deuterium as hydrogen", func() {
		rec := zzzghe()
		rec.Formula = ptr("C2 D4 H2")
		rec.Crystal.Packed.Atoms = []record.Atom{
			atom("C", 0), atom("D", 1), atom("H", 2),
		}
		s, _, err := m.Map(rec)
		Expect(err).ToNot(HaveOccurred())
		a := s.Attributes
		Expect(*a.ChemicalFormulaReduced).To(Equal("CH3"))
		Expect(a.Elements).To(Equal([]string{"C", "H"}))
		Expect(a.SpeciesAtSites).To(ContainElement("D"))
		Expect(a.Species).To(Equal([]optimade.Species{
			{Name: "C", ChemicalSymbols: []string{"C"}, Concentration: []float64{1}},
			{Name: "D", ChemicalSymbols: []string{"H"}, Concentration: []float64{1}},
			{Name: "H", ChemicalSymbols: []string{"H"}, Concentration: []float64{1}},
		}))
		Expect(a.StructureFeatures).To(BeEmpty())
	})

	It("gives every site a species without a formula", func() {
		rec := zzzghe()
		rec.Formula = nil
		rec.Crystal.Packed.Atoms = []record.Atom{atom("C", 0), atom("H", 1)}
		s, _, err := m.Map(rec)
		Expect(err).ToNot(HaveOccurred())
		a := s.Attributes
		Expect(a.Elements).To(BeNil())
		Expect(a.NElements).To(BeNil())
		Expect(*a.NSites).To(Equal(2))
		Expect(a.SpeciesAtSites).To(Equal([]string{"C", "H"}))
		Expect(a.Species).To(Equal([]optimade.Species{
			{Name: "C", ChemicalSymbols: []string{"C"}, Concentration: []float64{1}},
			{Name: "H", ChemicalSymbols: []string{"H"}, Concentration: []float64{1}},
		}))
	})

	It("adds site symbols missing from the formula to species", func() {
		rec := zzzghe()
		rec.Formula = ptr("C2 H6 O1")
		rec.Crystal.Packed.Atoms = []record.Atom{
			atom("C", 0), atom("H", 1), atom("D", 2),
		}
		s, _, err := m.Map(rec)
		Expect(err).ToNot(HaveOccurred())
		a := s.Attributes
		Expect(a.Elements).To(Equal([]string{"C", "H", "O"}))
		names := make([]string, len(a.Species))
		for i, sp := range a.Species {
			names[i] = sp.Name
		}
		Expect(names).To(Equal([]string{"C", "D", "H", "O"}))
		Expect(a.Species[1].ChemicalSymbols).To(Equal([]string{"H"}))
		for _, site := range a.SpeciesAtSites {
			Expect(names).To(ContainElement(site))
		}
		Expect(a.StructureFeatures).To(Equal([]string{"implicit_atoms"}))
	})

	It("uses the crystal formula when the entry has none", func() {
		rec := zzzghe()
		rec.Formula = nil
		rec.Crystal.Formula = ptr("C18 H12 Br3 N1")
		s, _, err := m.Map(rec)
		Expect(err).ToNot(HaveOccurred())
		Expect(*s.Attributes.ChemicalFormulaReduced).To(Equal("Br3C18H12N"))
		Expect(*s.Attributes.ChemicalFormulaDescriptive).To(Equal("C18 H12 Br3 N1"))
	})

	spaceGroup := func(n *int) *int {
		rec := zzzghe()
		rec.Crystal.SpaceGroupNumber = n
		s, _, err := m.Map(rec)
		Expect(err).ToNot(HaveOccurred())
		return s.Attributes.SpaceGroupITNumber
	}

	It("drops unknown space groups", func() {
		Expect(spaceGroup(ptr(231))).To(BeNil())
		Expect(spaceGroup(ptr(0))).To(BeNil())
		Expect(spaceGroup(nil)).To(BeNil())
		Expect(*spaceGroup(ptr(230))).To(Equal(230))
	})

	It("tags disorder and implicit atoms", func() {
		rec := zzzghe()
		rec.HasDisorder = true
		rec.DisorderDetails = ptr("C1 disordered over two sites")
		rec.Crystal.Packed.Atoms = []record.Atom{
			atom("Br", 0), atom("C", 1), atom("N", 3),
		}
		s, _, err := m.Map(rec)
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Attributes.StructureFeatures).To(Equal(
			[]string{"disorder", "implicit_atoms"},
		))
		Expect(*s.Attributes.CSDDisorderDetails).To(ContainSubstring("disordered"))
	})

	It("falls back to the asymmetric unit for multi-component formulas", func() {
		rec := zzzghe()
		rec.Formula = ptr("C20 H25 N2 S2 1+,C4 H3 O4 1-")
		rec.Crystal.AsymmetricUnit = &record.Molecule{Atoms: []record.Atom{
			{Symbol: "S"}, {Symbol: "C"}, {Symbol: "H"}, {Symbol: "N"},
			{Symbol: "O"}, {Symbol: "C"},
		}}
		s, _, err := m.Map(rec)
		Expect(err).ToNot(HaveOccurred())
		a := s.Attributes
		Expect(a.Elements).To(Equal([]string{"C", "H", "N", "O", "S"}))
		Expect(*a.NElements).To(Equal(5))
		Expect(a.ChemicalFormulaReduced).To(BeNil())
		Expect(a.ChemicalFormulaAnonymous).To(BeNil())
		Expect(a.ElementsRatios).To(BeNil())
		Expect(*a.ChemicalFormulaDescriptive).To(ContainSubstring(","))
	})

	It("fails on formulas without elements", func() {
		rec := zzzghe()
		rec.Formula = ptr("1+")
		_, _, err := m.Map(rec)
		Expect(err).To(HaveOccurred())
	})

	It("fails on records without identifier", func() {
		rec := zzzghe()
		rec.Identifier = ""
		_, _, err := m.Map(rec)
		Expect(err).To(HaveOccurred())
	})

	It("has no relationships without publications", func() {
		rec := zzzghe()
		rec.Publications = nil
		s, refs, err := m.Map(rec)
		Expect(err).ToNot(HaveOccurred())
		Expect(refs).To(BeEmpty())
		Expect(s.Relationships).To(BeNil())
	})
})

var _ = Describe("LatticeVectors", func() {
	It("builds oblique cells", func() {
		l := record.CellLengths{A: 1, B: 1, C: 1}
		a := record.CellAngles{Alpha: 60, Beta: 60, Gamma: 60}
		res := mapper.LatticeVectors(l, a)
		Expect(res).To(HaveLen(3))
		Expect(res[1][0]).To(BeNumerically("~", 0.5, 1e-9))
		Expect(res[1][1]).To(BeNumerically("~", math.Sqrt(3)/2, 1e-9))
		Expect(res[2][0]).To(BeNumerically("~", 0.5, 1e-9))
		Expect(res[2][1]).To(BeNumerically("~", 0.5/math.Sqrt(3), 1e-9))
		Expect(res[2][2]).To(BeNumerically("~", math.Sqrt(2.0/3.0), 1e-9))
	})

	It("rejects impossible cells", func() {
		l := record.CellLengths{A: 1, B: 1, C: 1}
		a := record.CellAngles{Alpha: 10, Beta: 10, Gamma: 120}
		Expect(mapper.LatticeVectors(l, a)).To(BeNil())
	})
})
