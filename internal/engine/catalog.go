package engine

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"github.com/samber/lo"
)

// Catalog is the immutable service reference. Lookups never hand out
// internal slices or maps.
type Catalog struct {
	defs     []domain.ServiceTypeDefinition
	byID     map[string]int
	keywords []keyword
}

type keyword struct {
	text string
	id   string
}

// NewCatalog validates and indexes a set of service definitions.
func NewCatalog(defs []domain.ServiceTypeDefinition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(defs))}

	sorted := slices.Clone(defs)
	slices.SortFunc(sorted, func(a, b domain.ServiceTypeDefinition) int { return cmp.Compare(a.ID, b.ID) })

	for i, def := range sorted {
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, &domain.ErrInvalidInput{Field: "catalog.id", Message: "duplicate service type " + def.ID}
		}
		c.byID[def.ID] = i
		c.defs = append(c.defs, cloneDefinition(def))

		terms := append([]string{def.Name}, def.Synonyms...)
		for _, t := range lo.Uniq(lo.Map(terms, func(t string, _ int) string { return normalize(t) })) {
			if t != "" {
				c.keywords = append(c.keywords, keyword{text: t, id: def.ID})
			}
		}
	}

	// Longest keyword first so "cabin air filter" beats "air filter"; ties by id.
	slices.SortFunc(c.keywords, func(a, b keyword) int {
		if n := cmp.Compare(len(b.text), len(a.text)); n != 0 {
			return n
		}
		return cmp.Compare(a.id, b.id)
	})
	return c, nil
}

func validateDefinition(def domain.ServiceTypeDefinition) error {
	if def.ID == "" {
		return &domain.ErrInvalidInput{Field: "catalog.id", Message: "service type id is required"}
	}
	if def.Name == "" {
		return &domain.ErrInvalidInput{Field: "catalog.name", Message: "name is required for " + def.ID}
	}
	switch def.Category {
	case domain.CategoryRoutine, domain.CategorySafety, domain.CategoryEmergency, domain.CategoryDIY:
	default:
		return &domain.ErrInvalidInput{Field: "catalog.category", Message: fmt.Sprintf("unknown category %q for %s", def.Category, def.ID)}
	}
	if def.BasePriorityWeight < 0 {
		return &domain.ErrInvalidInput{Field: "catalog.basePriorityWeight", Message: "negative weight for " + def.ID}
	}
	if def.Interval.DistanceMiles != nil && *def.Interval.DistanceMiles < 0 {
		return &domain.ErrInvalidInput{Field: "catalog.interval.distanceMiles", Message: "negative interval for " + def.ID}
	}
	if def.Interval.Months != nil && *def.Interval.Months < 0 {
		return &domain.ErrInvalidInput{Field: "catalog.interval.months", Message: "negative interval for " + def.ID}
	}
	for region, r := range def.FairPrice {
		if r.Low < 0 || r.High < r.Low {
			return &domain.ErrInvalidInput{Field: "catalog.fairPrice", Message: fmt.Sprintf("bad range for %s/%s", def.ID, region)}
		}
	}
	return nil
}

func cloneDefinition(def domain.ServiceTypeDefinition) domain.ServiceTypeDefinition {
	out := def
	if def.Interval.DistanceMiles != nil {
		v := *def.Interval.DistanceMiles
		out.Interval.DistanceMiles = &v
	}
	if def.Interval.Months != nil {
		v := *def.Interval.Months
		out.Interval.Months = &v
	}
	if def.FairPrice != nil {
		out.FairPrice = make(map[string]domain.PriceRange, len(def.FairPrice))
		for k, v := range def.FairPrice {
			out.FairPrice[k] = v
		}
	}
	out.Synonyms = slices.Clone(def.Synonyms)
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (domain.ServiceTypeDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.ServiceTypeDefinition{}, false
	}
	return cloneDefinition(c.defs[i]), true
}

// All returns every definition ordered by id.
func (c *Catalog) All() []domain.ServiceTypeDefinition {
	return lo.Map(c.defs, func(d domain.ServiceTypeDefinition, _ int) domain.ServiceTypeDefinition {
		return cloneDefinition(d)
	})
}

// Tracked returns the definitions with a recurring interval. Repair-only
// entries (no interval) exist for quote matching and are not tracked.
func (c *Catalog) Tracked() []domain.ServiceTypeDefinition {
	return lo.Filter(c.All(), func(d domain.ServiceTypeDefinition, _ int) bool {
		return d.Interval.HasDistance() || d.Interval.HasTime()
	})
}

// Len reports the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }

// MatchService finds the catalog entry a free-text description refers to.
func (c *Catalog) MatchService(description string) (domain.ServiceTypeDefinition, bool) {
	desc := normalize(description)
	if desc == "" {
		return domain.ServiceTypeDefinition{}, false
	}
	for _, kw := range c.keywords {
		if strings.Contains(desc, kw.text) {
			return c.Get(kw.id)
		}
	}
	return domain.ServiceTypeDefinition{}, false
}

// ============================================================
// Default catalog
// ============================================================

func miles(v float64) *float64 { return &v }
func months(v int) *int        { return &v }

// DefaultCatalog is the built-in reference used when no catalog is configured.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultDefinitions())
	if err != nil {
		panic("engine: default catalog is invalid: " + err.Error())
	}
	return c
}

// fairPrices is a fair-price table keyed by region.
type fairPrices map[string]domain.PriceRange

func fair(low, high float64) fairPrices {
	return fairPrices{"national": {Low: low, High: high}}
}

func (f fairPrices) with(region string, low, high float64) fairPrices {
	f[region] = domain.PriceRange{Low: low, High: high}
	return f
}

func defaultDefinitions() []domain.ServiceTypeDefinition {
	return []domain.ServiceTypeDefinition{
		{
			ID:                 "oil-change",
			Name:               "Oil Change",
			Category:           domain.CategoryRoutine,
			Interval:           domain.Interval{DistanceMiles: miles(5000), Months: months(6)},
			BasePriorityWeight: 3,
			FairPrice:          fair(45, 65).with("west", 55, 80),
			Synonyms:           []string{"oil and filter", "oil & filter", "lube service", "synthetic oil"},
		},
		{
			ID:                 "tire-rotation",
			Name:               "Tire Rotation",
			Category:           domain.CategoryRoutine,
			Interval:           domain.Interval{DistanceMiles: miles(6000), Months: months(6)},
			BasePriorityWeight: 2,
			FairPrice:          fair(25, 50),
			Synonyms:           []string{"rotate tires", "rotation and balance", "tire balance"},
		},
		{
			ID:                        "brake-inspection",
			Name:                      "Brake Inspection",
			Category:                  domain.CategorySafety,
			Interval:                  domain.Interval{DistanceMiles: miles(12000), Months: months(12)},
			BasePriorityWeight:        5,
			FairPrice:                 fair(150, 250),
			Synonyms:                  []string{"brake check", "brake fluid check"},
			SafetyCriticalWhenUnknown: true,
		},
		{
			ID:                 "brake-pad-replacement",
			Name:               "Brake Pad Replacement",
			Category:           domain.CategorySafety,
			BasePriorityWeight: 7,
			FairPrice:          fair(150, 250),
			Synonyms:           []string{"brake pads", "front pads", "rear pads"},
		},
		{
			ID:                 "air-filter",
			Name:               "Air Filter Replacement",
			Category:           domain.CategoryDIY,
			Interval:           domain.Interval{DistanceMiles: miles(15000), Months: months(12)},
			BasePriorityWeight: 1,
			FairPrice:          fair(25, 40),
			Synonyms:           []string{"engine air filter", "air filter"},
		},
		{
			ID:                 "cabin-air-filter",
			Name:               "Cabin Air Filter",
			Category:           domain.CategoryDIY,
			Interval:           domain.Interval{DistanceMiles: miles(15000), Months: months(12)},
			BasePriorityWeight: 1,
			FairPrice:          fair(30, 60),
			Synonyms:           []string{"cabin filter", "pollen filter"},
		},
		{
			ID:                 "battery-test",
			Name:               "Battery Test",
			Category:           domain.CategoryRoutine,
			Interval:           domain.Interval{Months: months(12)},
			BasePriorityWeight: 2,
			FairPrice:          fair(0, 30),
			Synonyms:           []string{"battery check", "load test"},
		},
		{
			ID:                 "battery-replacement",
			Name:               "Battery Replacement",
			Category:           domain.CategoryEmergency,
			Interval:           domain.Interval{Months: months(48)},
			BasePriorityWeight: 5,
			FairPrice:          fair(120, 250),
			Synonyms:           []string{"new battery", "replace battery"},
		},
		{
			ID:                        "tire-pressure-check",
			Name:                      "Tire Pressure Check",
			Category:                  domain.CategorySafety,
			Interval:                  domain.Interval{Months: months(1)},
			BasePriorityWeight:        4,
			FairPrice:                 fair(0, 10),
			Synonyms:                  []string{"tire pressure", "inflate tires"},
			SafetyCriticalWhenUnknown: true,
		},
		{
			ID:                 "coolant-flush",
			Name:               "Coolant Flush",
			Category:           domain.CategoryRoutine,
			Interval:           domain.Interval{DistanceMiles: miles(30000), Months: months(24)},
			BasePriorityWeight: 3,
			FairPrice:          fair(100, 150),
			Synonyms:           []string{"coolant", "antifreeze", "radiator flush"},
		},
		{
			ID:                 "transmission-fluid",
			Name:               "Transmission Fluid Service",
			Category:           domain.CategoryRoutine,
			Interval:           domain.Interval{DistanceMiles: miles(30000), Months: months(36)},
			BasePriorityWeight: 4,
			FairPrice:          fair(150, 250),
			Synonyms:           []string{"transmission flush", "transmission fluid", "trans fluid"},
		},
		{
			ID:                 "wiper-blades",
			Name:               "Wiper Blade Replacement",
			Category:           domain.CategoryDIY,
			Interval:           domain.Interval{Months: months(12)},
			BasePriorityWeight: 2,
			FairPrice:          fair(20, 45),
			Synonyms:           []string{"wiper blades", "wipers"},
		},
		{
			ID:                 "spark-plugs",
			Name:               "Spark Plug Replacement",
			Category:           domain.CategoryRoutine,
			Interval:           domain.Interval{DistanceMiles: miles(60000)},
			BasePriorityWeight: 3,
			FairPrice:          fair(100, 300),
			Synonyms:           []string{"spark plugs", "spark plug"},
		},
	}
}
