package game

import (
	"fmt"
	"log/slog"
	"slices"

	"ramentycoon/internal/master"
)

type Owner string

const (
	OwnerCompany  Owner = "company"
	OwnerPersonal Owner = "personal"
)

func ParseOwner(s string) (Owner, error) {
	switch Owner(s) {
	case OwnerCompany, "":
		return OwnerCompany, nil
	case OwnerPersonal:
		return OwnerPersonal, nil
	}
	return "", fmt.Errorf("owner %q: %w", s, ErrInvalidState)
}

// Property is income real estate. Listings and owned buildings drift in
// value every week.
type Property struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Kind              string    `json:"kind"`
	Region            string    `json:"region"`
	PurchasePrice     float64   `json:"purchase_price"`
	CurrentValue      float64   `json:"current_value"`
	WeeklyRent        float64   `json:"weekly_rent"`
	WeeklyMaintenance float64   `json:"weekly_maintenance"`
	AcquiredWeek      int       `json:"acquired_week"`
	History           []float64 `json:"history"`
}

const propertyHistoryWeeks = 52

func newPropertyListings(rng *RNG, d *master.Data) []*Property {
	out := make([]*Property, 0, len(d.Properties))
	for _, p := range d.Properties {
		out = append(out, &Property{
			ID:                shortID("PROP", rng),
			Name:              p.Name,
			Kind:              p.Kind,
			Region:            p.Region,
			CurrentValue:      p.Price,
			WeeklyRent:        p.WeeklyRent,
			WeeklyMaintenance: p.WeeklyMaintenance,
			History:           []float64{p.Price},
		})
	}
	return out
}

func (p *Property) drift(rng *RNG, phaseImpact float64) {
	p.CurrentValue = max(0, round2(p.CurrentValue*(1+phaseImpact+rng.Uniform(-0.005, 0.006))))
	p.History = append(p.History, p.CurrentValue)
	if len(p.History) > propertyHistoryWeeks {
		p.History = p.History[len(p.History)-propertyHistoryWeeks:]
	}
}

// PropertySettlement is one owner's weekly real-estate result.
type PropertySettlement struct {
	Rent            float64 `json:"rent"`
	Maintenance     float64 `json:"maintenance"`
	MaintenancePaid bool    `json:"maintenance_paid"`
}

// settleProperties always collects rent, then pays maintenance all or nothing.
func settleProperties(log *slog.Logger, owner string, l *Ledger, props []*Property) PropertySettlement {
	var s PropertySettlement
	for _, p := range props {
		s.Rent += p.WeeklyRent
		s.Maintenance += p.WeeklyMaintenance
	}
	l.AddRevenue(s.Rent, "property_rent")
	s.MaintenancePaid = payOrWarn(log, owner, l, s.Maintenance, "property_maintenance")
	return s
}

func propertiesValue(props []*Property) float64 {
	v := 0.0
	for _, p := range props {
		v += p.CurrentValue
	}
	return v
}

func (p *Player) ownerBooks(owner Owner) (*Account, *[]*Property) {
	if owner == OwnerPersonal {
		return &p.Personal.Account, &p.Personal.Properties
	}
	return &p.Company.Account, &p.CompanyProperties
}

// buyProperty takes a listing off the market at its current value.
func (s *Session) buyProperty(owner Owner, id string) (*Property, error) {
	idx := slices.IndexFunc(s.PropertyMarket, func(p *Property) bool { return p.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("property %s: %w", id, ErrNotFound)
	}
	prop := s.PropertyMarket[idx]
	acct, props := s.Player.ownerBooks(owner)
	if _, err := AttemptDebit(acct.Ledger, prop.CurrentValue, "property_purchase"); err != nil {
		return nil, err
	}
	prop.PurchasePrice = prop.CurrentValue
	prop.AcquiredWeek = s.Clock.TotalWeeksElapsed
	s.PropertyMarket = slices.Delete(s.PropertyMarket, idx, idx+1)
	*props = append(*props, prop)
	return prop, nil
}

// sellProperty books the current value as revenue and relists the building.
func (s *Session) sellProperty(owner Owner, id string) (float64, error) {
	acct, props := s.Player.ownerBooks(owner)
	idx := slices.IndexFunc(*props, func(p *Property) bool { return p.ID == id })
	if idx < 0 {
		return 0, fmt.Errorf("%s property %s: %w", owner, id, ErrNotFound)
	}
	prop := (*props)[idx]
	*props = slices.Delete(*props, idx, idx+1)
	acct.Ledger.AddRevenue(prop.CurrentValue, "property_sale")
	s.PropertyMarket = append(s.PropertyMarket, prop)
	return prop.CurrentValue, nil
}

func (s *Session) driftProperties() {
	impact := s.Clock.PhaseImpact()
	for _, p := range s.PropertyMarket {
		p.drift(s.RNG, impact)
	}
	for _, p := range s.Player.Personal.Properties {
		p.drift(s.RNG, impact)
	}
	for _, p := range s.Player.CompanyProperties {
		p.drift(s.RNG, impact)
	}
}
