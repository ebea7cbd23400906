package game

import (
	"ramentycoon/internal/master"
)

// Player is the human side of a session: the company, the owner's private
// wealth and everything the company has built or bought.
type Player struct {
	CompanyName       string                      `json:"company_name"`
	Company           *CorporateFinance           `json:"company"`
	Personal          *PersonalAssets             `json:"personal"`
	Ops               Operations                  `json:"operations"`
	CompanyProperties []*Property                 `json:"company_properties"`
	Effects           *EffectsManager             `json:"effects"`
	IPO               IPOState                    `json:"ipo"`
	RND               map[string]*ResearchProject `json:"rnd"`
	CXOs              map[string]CXO              `json:"cxos"`
	Subsidiaries      []string                    `json:"subsidiaries"`
	Acquisitions      []Acquisition               `json:"acquisitions"`
	FoundedWeek       int                         `json:"founded_week"`
}

func newPlayer(d *master.Data, companyName string, week int) *Player {
	p := &Player{
		CompanyName: companyName,
		Company:     newCorporateFinance(d.Game.InitialCompanyCash, d.Credit.DefaultScore),
		Personal:    newPersonalAssets(d.Game.InitialPersonalCash),
		Effects:     NewEffectsManager(),
		IPO:         IPOState{Status: IPOPrivate},
		FoundedWeek: week,
	}
	p.ensureMaps()
	return p
}

func (p *Player) ensureMaps() {
	if p.RND == nil {
		p.RND = map[string]*ResearchProject{}
	}
	if p.CXOs == nil {
		p.CXOs = map[string]CXO{}
	}
	if p.Effects == nil {
		p.Effects = NewEffectsManager()
	}
	p.Effects.ensureMaps()
	p.Company.Portfolio.ensureMaps()
	p.Personal.Portfolio.ensureMaps()
	if p.IPO.Status == "" {
		p.IPO.Status = IPOPrivate
	}
}

// UnitBonuses merges R&D results and executive effects into shop modifiers.
func (p *Player) UnitBonuses(d *master.Data) UnitBonuses {
	b := p.Effects.UnitBonuses()
	cx := p.cxoBonuses(d)
	b.Quality += cx.Quality
	b.FixedCostReduction += cx.FixedCostReduction
	b.StaffEfficiency += cx.StaffEfficiency
	return b
}

// TotalDebt is bank loans, both margin loans and outstanding bonds.
func (p *Player) TotalDebt() float64 {
	return p.Company.TotalBankLoans() +
		p.Company.Portfolio.MarginLoan +
		p.Personal.Portfolio.MarginLoan +
		p.Company.TotalBondsPayable()
}

// NetWorth values everything the owner controls at current prices, net of
// debt.
func (p *Player) NetWorth(prices PriceSource) float64 {
	assets := p.Company.Ledger.Cash() + p.Personal.Ledger.Cash() +
		p.Company.Portfolio.MarketValue(prices) + p.Personal.Portfolio.MarketValue(prices) +
		propertiesValue(p.Personal.Properties) + propertiesValue(p.CompanyProperties)
	for _, it := range p.Personal.Luxury {
		assets += it.PurchasePrice
	}
	return assets - p.TotalDebt()
}
