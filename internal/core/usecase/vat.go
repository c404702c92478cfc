package usecase

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed vatrules.yaml
var vatRulesYAML []byte

// VATRules is the declarative jurisdiction rate table: per country a
// tolerance band and a list of rate entries, optionally gated by expense
// category and by an effective-date window. Adding a jurisdiction or a
// reform is a table edit, not a code change.
type VATRules struct {
	byCountry map[string]vatJurisdiction
}

type vatJurisdiction struct {
	Country      string    `yaml:"country"`
	ToleranceBPS int64     `yaml:"tolerance_bps"`
	Rates        []vatRate `yaml:"rates"`
}

type vatRate struct {
	BPS            int64     `yaml:"bps"`
	Categories     []string  `yaml:"categories"`
	EffectiveFrom  *ruleDate `yaml:"effective_from"`
	EffectiveUntil *ruleDate `yaml:"effective_until"`
	Message        string    `yaml:"message"`
}

type ruleDate struct {
	time.Time
}

func (d *ruleDate) UnmarshalYAML(node *yaml.Node) error {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("parse rule date %q: %w", node.Value, err)
	}
	d.Time = t
	return nil
}

// LoadVATRules parses the embedded rate tables.
func LoadVATRules() (*VATRules, error) {
	var doc struct {
		Jurisdictions []vatJurisdiction `yaml:"jurisdictions"`
	}
	if err := yaml.Unmarshal(vatRulesYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse vat rules: %w", err)
	}
	rules := &VATRules{byCountry: make(map[string]vatJurisdiction, len(doc.Jurisdictions))}
	for _, j := range doc.Jurisdictions {
		rules.byCountry[strings.ToUpper(j.Country)] = j
	}
	return rules, nil
}

type vatVerdict struct {
	Known   bool // jurisdiction table exists
	Matched bool // implied rate matched a legal entry
	Message string
	Hint    string
}

// Evaluate compares an implied rate in basis points against the
// jurisdiction's table. A miss is advisory: the caller renders it as a
// warning, never a hard failure.
func (r *VATRules) Evaluate(country string, impliedBPS int64, category string, docDate *time.Time) vatVerdict {
	j, ok := r.byCountry[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		return vatVerdict{Hint: fmt.Sprintf("no VAT rate table for country %q", country)}
	}

	cat := strings.ToLower(strings.TrimSpace(category))
	for _, rate := range j.Rates {
		if absInt64(impliedBPS-rate.BPS) > j.ToleranceBPS {
			continue
		}
		if !rate.matchesCategory(cat) || !rate.matchesDate(docDate) {
			continue
		}
		return vatVerdict{Known: true, Matched: true, Message: rate.Message}
	}

	return vatVerdict{Known: true, Hint: r.nearestRateHint(j, impliedBPS)}
}

func (r *VATRules) nearestRateHint(j vatJurisdiction, impliedBPS int64) string {
	if len(j.Rates) == 0 {
		return fmt.Sprintf("implied rate %d bp matches no configured rate", impliedBPS)
	}
	bps := make([]int64, 0, len(j.Rates))
	for _, rate := range j.Rates {
		bps = append(bps, rate.BPS)
	}
	sort.Slice(bps, func(a, b int) bool {
		return absInt64(bps[a]-impliedBPS) < absInt64(bps[b]-impliedBPS)
	})
	nearest := bps[0]
	return fmt.Sprintf(
		"implied rate %d bp is %d bp away from the nearest standard rate %d bp (tolerance %d bp); check subtotal and VAT amount",
		impliedBPS, absInt64(nearest-impliedBPS), nearest, j.ToleranceBPS,
	)
}

func (v vatRate) matchesCategory(category string) bool {
	if len(v.Categories) == 0 {
		return true
	}
	for _, c := range v.Categories {
		if strings.ToLower(c) == category {
			return true
		}
	}
	return false
}

func (v vatRate) matchesDate(docDate *time.Time) bool {
	if docDate == nil {
		return v.EffectiveFrom == nil && v.EffectiveUntil == nil
	}
	if v.EffectiveFrom != nil && docDate.Before(v.EffectiveFrom.Time) {
		return false
	}
	if v.EffectiveUntil != nil && !docDate.Before(v.EffectiveUntil.Time) {
		return false
	}
	return true
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
