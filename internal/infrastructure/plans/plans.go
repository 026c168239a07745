// Package plans loads the investment plan catalogue.
package plans

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/iho/poolledger/internal/domain"
)

// DefaultPlanName names the plan used when a request names none.
const DefaultPlanName = "standard"

// Catalog is an immutable set of plans. It implements usecase.PlanCatalog.
type Catalog struct {
	plans       map[string]domain.Plan
	defaultPlan domain.Plan
}

type fileFormat struct {
	Default string     `yaml:"default"`
	Plans   []planSpec `yaml:"plans"`
}

type planSpec struct {
	Name      string `yaml:"name"`
	DailyRate string `yaml:"daily_rate"`
	MinAmount string `yaml:"min_amount"`
}

// NewCatalog returns a catalogue holding only the standard plan at dailyRate.
func NewCatalog(dailyRate decimal.Decimal) *Catalog {
	std := domain.Plan{Name: DefaultPlanName, DailyRate: dailyRate, MinAmount: decimal.Zero}
	return &Catalog{
		plans:       map[string]domain.Plan{std.Name: std},
		defaultPlan: std,
	}
}

// Load reads a YAML catalogue from path. An empty path yields the standard
// plan alone.
//
//	default: standard
//	plans:
//	  - name: standard
//	    daily_rate: "0.01"
//	  - name: premium
//	    daily_rate: "0.015"
//	    min_amount: "1000"
func Load(path string, fallbackRate decimal.Decimal) (*Catalog, error) {
	if path == "" {
		return NewCatalog(fallbackRate), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans: %w", err)
	}
	return Parse(data, fallbackRate)
}

// Parse builds a catalogue from YAML. When the document does not define the
// default plan, a standard plan at fallbackRate is added.
func Parse(data []byte, fallbackRate decimal.Decimal) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}

	c := &Catalog{plans: make(map[string]domain.Plan, len(f.Plans)+1)}
	for i, spec := range f.Plans {
		p, err := spec.plan()
		if err != nil {
			return nil, fmt.Errorf("plan %d: %w", i, err)
		}
		if _, dup := c.plans[p.Name]; dup {
			return nil, fmt.Errorf("plan %q defined twice", p.Name)
		}
		c.plans[p.Name] = p
	}

	name := f.Default
	if name == "" {
		name = DefaultPlanName
	}
	def, ok := c.plans[name]
	if !ok {
		if f.Default != "" {
			return nil, fmt.Errorf("default plan %q is not defined", f.Default)
		}
		def = domain.Plan{Name: DefaultPlanName, DailyRate: fallbackRate, MinAmount: decimal.Zero}
		c.plans[def.Name] = def
	}
	c.defaultPlan = def
	return c, nil
}

func (s planSpec) plan() (domain.Plan, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return domain.Plan{}, errors.New("name is required")
	}
	rate, err := decimal.NewFromString(s.DailyRate)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("%s: daily_rate: %w", name, err)
	}
	if rate.IsNegative() {
		return domain.Plan{}, fmt.Errorf("%s: daily_rate must not be negative", name)
	}
	minAmount := decimal.Zero
	if s.MinAmount != "" {
		minAmount, err = decimal.NewFromString(s.MinAmount)
		if err != nil {
			return domain.Plan{}, fmt.Errorf("%s: min_amount: %w", name, err)
		}
	}
	return domain.Plan{Name: name, DailyRate: rate, MinAmount: minAmount}, nil
}

// Get returns the named plan.
func (c *Catalog) Get(name string) (domain.Plan, bool) {
	p, ok := c.plans[name]
	return p, ok
}

// Default returns the plan used when none is named.
func (c *Catalog) Default() domain.Plan {
	return c.defaultPlan
}

// Names lists the plan names.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.plans))
	for n := range c.plans {
		out = append(out, n)
	}
	return out
}
