// Package master holds the read-only tables the simulation is parameterised
// with: regions, menu, loan products, venture rounds, R&D projects and so on.
package master

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/master.yaml
var defaultYAML []byte

type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

type IntRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Weighted is one entry of a categorical draw. Order in the file is the draw order.
type Weighted struct {
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
}

type Data struct {
	Game            GameSettings       `yaml:"game"`
	Regions         []Region           `yaml:"regions"`
	Shop            ShopSettings       `yaml:"shop"`
	Menu            []MenuItem         `yaml:"menu"`
	DefaultMenu     []string           `yaml:"default_menu"`
	StaffCandidates []Staff            `yaml:"staff_candidates"`
	HQ              HQSettings         `yaml:"hq"`
	Departments     []Department       `yaml:"departments"`
	LoanProducts    []LoanProduct      `yaml:"loan_products"`
	Credit          CreditSettings     `yaml:"credit"`
	Bonds           BondSettings       `yaml:"bonds"`
	Margin          MarginSettings     `yaml:"margin"`
	Market          MarketSettings     `yaml:"market"`
	Competitors     CompetitorSettings `yaml:"competitors"`
	Venture         VentureSettings    `yaml:"venture"`
	RNDProjects     []RNDProject       `yaml:"rnd_projects"`
	CXO             CXOSettings        `yaml:"cxo"`
	IPO             IPOSettings        `yaml:"ipo"`
	MA              MASettings         `yaml:"ma"`
	Properties      []Property         `yaml:"properties"`
	LuxuryGoods     []LuxuryGood       `yaml:"luxury_goods"`
	StockOptions    StockOptionTerms   `yaml:"stock_options"`
}

type GameSettings struct {
	StartYear                    int     `yaml:"start_year"`
	StartMonth                   int     `yaml:"start_month"`
	StartWeek                    int     `yaml:"start_week"`
	InitialPersonalCash          float64 `yaml:"initial_personal_cash"`
	InitialCompanyCash           float64 `yaml:"initial_company_cash"`
	MaxPrivateSalaryRatioToCash  float64 `yaml:"max_private_salary_ratio_to_cash"`
	MaxPublicSalaryRatioToProfit float64 `yaml:"max_public_salary_ratio_to_profit"`
	SnapshotHistoryLimit         int     `yaml:"snapshot_history_limit"`
}

type Region struct {
	Name            string  `yaml:"name"`
	RentBase        float64 `yaml:"rent_base"`
	SetupMultiplier float64 `yaml:"setup_multiplier"`
	SalesModifier   float64 `yaml:"sales_modifier"`
	CustomerPool    int     `yaml:"customer_pool"`
}

type ShopKind struct {
	Name              string  `yaml:"name"`
	UpgradeCostBase   float64 `yaml:"upgrade_cost_base"`
	UpgradeCostFactor float64 `yaml:"upgrade_cost_factor"`
	MaxEquipmentLevel int     `yaml:"max_equipment_level"`
}

type AttractivenessWeights struct {
	EquipmentWeight float64 `yaml:"equipment_weight"`
	MenuWeight      float64 `yaml:"menu_weight"`
	StaffWeight     float64 `yaml:"staff_weight"`
	QualityWeight   float64 `yaml:"quality_weight"`
	EquipmentScore  float64 `yaml:"equipment_score"`
	MenuItemScore   float64 `yaml:"menu_item_score"`
	StaffFactor     float64 `yaml:"staff_factor"`
	QualityFactor   float64 `yaml:"quality_factor"`
}

type ShopSettings struct {
	DefaultKind          string                `yaml:"default_kind"`
	BaseSetupCost        float64               `yaml:"base_setup_cost"`
	AvgSpendPerCustomer  float64               `yaml:"avg_spend_per_customer"`
	DefaultCustomerPool  int                   `yaml:"default_customer_pool"`
	DefaultCostRatio     float64               `yaml:"default_cost_ratio"`
	NoStaffEfficiency    float64               `yaml:"no_staff_efficiency"`
	Kinds                []ShopKind            `yaml:"kinds"`
	Attractiveness       AttractivenessWeights `yaml:"attractiveness"`
}

type MenuItem struct {
	Name       string  `yaml:"name" json:"name"`
	Price      float64 `yaml:"price" json:"price"`
	Cost       float64 `yaml:"cost" json:"cost"`
	UnlockedBy string  `yaml:"unlocked_by,omitempty" json:"unlocked_by,omitempty"`
}

type Staff struct {
	Name         string  `yaml:"name" json:"name"`
	Role         string  `yaml:"role" json:"role"`
	WeeklySalary float64 `yaml:"weekly_salary" json:"weekly_salary"`
	Efficiency   float64 `yaml:"efficiency" json:"efficiency"`
}

type HQSettings struct {
	RentedInitialCost     float64 `yaml:"rented_initial_cost"`
	RentedWeeklyRent      float64 `yaml:"rented_weekly_rent"`
	OwnedConstructionCost float64 `yaml:"owned_construction_cost"`
}

type Department struct {
	Name      string  `yaml:"name"`
	SetupCost float64 `yaml:"setup_cost"`
}

type LoanProduct struct {
	ID         string  `yaml:"id" json:"id"`
	Lender     string  `yaml:"lender" json:"lender"`
	Product    string  `yaml:"product" json:"product"`
	MaxAmount  float64 `yaml:"max_amount" json:"max_amount"`
	WeeklyRate float64 `yaml:"weekly_rate" json:"weekly_rate"`
	Weeks      int     `yaml:"weeks" json:"weeks"`
}

type CreditTier struct {
	Rating            string  `yaml:"rating"`
	MinScore          int     `yaml:"min_score"`
	RateAdjustment    float64 `yaml:"rate_adjustment"`
	MaxLoanMultiplier float64 `yaml:"max_loan_multiplier"`
}

type CreditSettings struct {
	DefaultScore int          `yaml:"default_score"`
	Tiers        []CreditTier `yaml:"tiers"`
}

type BondSpread struct {
	Rating string  `yaml:"rating"`
	Spread float64 `yaml:"spread"`
}

type BondSettings struct {
	IssuanceFeeRate float64      `yaml:"issuance_fee_rate"`
	MaturityYears   []int        `yaml:"maturity_years"`
	BaseYield       float64      `yaml:"base_yield"`
	Spreads         []BondSpread `yaml:"spreads"`
}

type MarginSettings struct {
	AccountOpeningCost     float64 `yaml:"account_opening_cost"`
	MinCreditScore         int     `yaml:"min_credit_score"`
	WeeklyInterestRate     float64 `yaml:"weekly_interest_rate"`
	InitialMarginRatio     float64 `yaml:"initial_margin_ratio"`
	MaintenanceMarginRatio float64 `yaml:"maintenance_margin_ratio"`
	ShortBorrowWeeklyRate  float64 `yaml:"short_borrow_weekly_rate"`
}

type CapTier struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

type PhaseRanges struct {
	Boom      Range `yaml:"boom"`
	Normal    Range `yaml:"normal"`
	Recession Range `yaml:"recession"`
}

type MarketSettings struct {
	CompanyCount          int         `yaml:"company_count"`
	TickerLength          int         `yaml:"ticker_length"`
	Sectors               []string    `yaml:"sectors"`
	CapTiers              []CapTier   `yaml:"cap_tiers"`
	InitialPrice          Range       `yaml:"initial_price"`
	PBR                   Range       `yaml:"pbr"`
	WeeklyReturn          Range       `yaml:"weekly_return"`
	PhaseDrift            PhaseRanges `yaml:"phase_drift"`
	NewsProbability       float64     `yaml:"news_probability"`
	NewsImpact            Range       `yaml:"news_impact"`
	DividendPayout        Range       `yaml:"dividend_payout"`
	EarningsIntervalWeeks int         `yaml:"earnings_interval_weeks"`
	PriceHistoryWeeks     int         `yaml:"price_history_weeks"`
	FallbackPE            float64     `yaml:"fallback_pe"`
	SubsidiaryProfitRate  float64     `yaml:"subsidiary_profit_rate"`
	NamePrefixes          []string    `yaml:"name_prefixes"`
	NameMiddles           []string    `yaml:"name_middles"`
	NameSuffixes          []string    `yaml:"name_suffixes"`
}

type Difficulty struct {
	Level             int     `yaml:"level"`
	Cash              Range   `yaml:"cash"`
	ActionProbability float64 `yaml:"action_probability"`
}

type CompetitorSettings struct {
	Count              int          `yaml:"count"`
	Difficulty         int          `yaml:"difficulty"`
	InitialShops       IntRange     `yaml:"initial_shops"`
	UpgradeEquipment   IntRange     `yaml:"upgrade_equipment"`
	MinInvestment      float64      `yaml:"min_investment"`
	InvestmentFraction Range        `yaml:"investment_fraction"`
	Actions            []Weighted   `yaml:"actions"`
	Difficulties       []Difficulty `yaml:"difficulties"`
	Names              []string     `yaml:"names"`
}

type VentureSector struct {
	Name                string  `yaml:"name"`
	ValuationMultiplier float64 `yaml:"valuation_multiplier"`
}

type VentureRound struct {
	ID                  string   `yaml:"id"`
	ValuationBase       Range    `yaml:"valuation_base"`
	ValuationMultiplier Range    `yaml:"valuation_multiplier"`
	AskPercent          Range    `yaml:"ask_percent"`
	WeeksToNext         IntRange `yaml:"weeks_to_next"`
	EquityOffer         Range    `yaml:"equity_offer"`
	RequiredDD          int      `yaml:"required_dd"`
}

type VentureExit struct {
	Name       string  `yaml:"name"`
	Weight     float64 `yaml:"weight"`
	Multiplier Range   `yaml:"multiplier"`
}

type DDLevel struct {
	Level   int      `yaml:"level"`
	Name    string   `yaml:"name"`
	Cost    float64  `yaml:"cost"`
	Weeks   int      `yaml:"weeks"`
	Reveals []string `yaml:"reveals"`
}

type VentureSettings struct {
	MaxDeals         int             `yaml:"max_deals"`
	RefreshWeeks     int             `yaml:"refresh_weeks"`
	DefaultCountdown IntRange        `yaml:"default_countdown"`
	Sectors          []VentureSector `yaml:"sectors"`
	Rounds           []VentureRound  `yaml:"rounds"`
	Events           []Weighted      `yaml:"events"`
	Exits            []VentureExit   `yaml:"exits"`
	IPODividendRate  Range           `yaml:"ipo_dividend_rate"`
	DDLevels         []DDLevel       `yaml:"dd_levels"`
	NamePrefixes     []string        `yaml:"name_prefixes"`
	NameSuffixes     []string        `yaml:"name_suffixes"`
}

type ProjectEffect struct {
	Kind      string  `yaml:"kind"`
	Value     float64 `yaml:"value"`
	Item      string  `yaml:"item"`
	Permanent bool    `yaml:"permanent"`
	Weeks     int     `yaml:"weeks"`
}

type RNDProject struct {
	ID               string          `yaml:"id"`
	Name             string          `yaml:"name"`
	CostToStart      float64         `yaml:"cost_to_start"`
	PointsNeeded     float64         `yaml:"points_needed"`
	MaxWeeklyFunding float64         `yaml:"max_weekly_funding"`
	MinWeeks         int             `yaml:"min_weeks"`
	Department       string          `yaml:"department"`
	Prerequisites    []string        `yaml:"prerequisites"`
	Effects          []ProjectEffect `yaml:"effects"`
}

type CXOSkill struct {
	Level                 string  `yaml:"level"`
	SalaryMultiplier      float64 `yaml:"salary_multiplier"`
	RecruitmentMultiplier float64 `yaml:"recruitment_multiplier"`
	Weight                float64 `yaml:"weight"`
}

type CXOEffect struct {
	Kind     string  `yaml:"kind"`
	Value    float64 `yaml:"value"`
	MinSkill string  `yaml:"min_skill"`
}

type CXORole struct {
	Role    string      `yaml:"role"`
	Salary  Range       `yaml:"salary"`
	Effects []CXOEffect `yaml:"effects"`
}

type CXOSettings struct {
	MaxPerCompany       int        `yaml:"max_per_company"`
	RecruitmentCostBase float64    `yaml:"recruitment_cost_base"`
	RefreshWeeks        int        `yaml:"refresh_weeks"`
	CandidateCount      int        `yaml:"candidate_count"`
	Names               []string   `yaml:"names"`
	Skills              []CXOSkill `yaml:"skills"`
	Roles               []CXORole  `yaml:"roles"`
}

type PhaseBonus struct {
	Boom      float64 `yaml:"boom"`
	Normal    float64 `yaml:"normal"`
	Recession float64 `yaml:"recession"`
}

type DemandLevel struct {
	Name             string  `yaml:"name"`
	MinScore         float64 `yaml:"min_score"`
	PriceAdjustment  float64 `yaml:"price_adjustment"`
	SharesAdjustment float64 `yaml:"shares_adjustment"`
}

type IPOSettings struct {
	MinWeeksInOperation  int           `yaml:"min_weeks_in_operation"`
	MinAnnualRevenue     float64       `yaml:"min_annual_revenue"`
	MinCumulativeProfit  float64       `yaml:"min_cumulative_profit"`
	RequiredDepartments  []string      `yaml:"required_departments"`
	UnderwriterFee       float64       `yaml:"underwriter_fee"`
	UnderwriterFeeRate   float64       `yaml:"underwriter_fee_rate"`
	PSR                  Range         `yaml:"psr"`
	PER                  Range         `yaml:"per"`
	OfferPercent         Range         `yaml:"offer_percent"`
	ProcessWeeks         int           `yaml:"process_weeks"`
	RoadshowWeeks        int           `yaml:"roadshow_weeks"`
	DemandBase           float64       `yaml:"demand_base"`
	PhaseBonus           PhaseBonus    `yaml:"phase_bonus"`
	ProfitTrendBonusMax  float64       `yaml:"profit_trend_bonus_max"`
	RevenueTrendBonusMax float64       `yaml:"revenue_trend_bonus_max"`
	RandomEventMax       float64       `yaml:"random_event_max"`
	FailureThreshold     float64       `yaml:"failure_threshold"`
	DemandLevels         []DemandLevel `yaml:"demand_levels"`
	SharesOutstanding    int64         `yaml:"shares_outstanding"`
}

type Industry struct {
	Name        string   `yaml:"name"`
	Integration string   `yaml:"integration"`
	Value       float64  `yaml:"value"`
	Amount      float64  `yaml:"amount"`
	Weeks       int      `yaml:"weeks"`
	Names       []string `yaml:"names"`
}

type CompanySize struct {
	Name             string   `yaml:"name"`
	Weight           float64  `yaml:"weight"`
	Revenue          Range    `yaml:"revenue"`
	Margin           Range    `yaml:"margin"`
	Employees        IntRange `yaml:"employees"`
	AskingMultiplier Range    `yaml:"asking_multiplier"`
}

type MASettings struct {
	PrivateDDCost       float64       `yaml:"private_dd_cost"`
	RefreshWeeks        int           `yaml:"refresh_weeks"`
	MarketSize          int           `yaml:"market_size"`
	ListedPremium       Range         `yaml:"listed_premium"`
	BaseSuccess         float64       `yaml:"base_success"`
	SuccessSpan         float64       `yaml:"success_span"`
	OneTimeGain         Range         `yaml:"one_time_gain"`
	RamenChainMaxShops  int           `yaml:"ramen_chain_max_shops"`
	Industries          []Industry    `yaml:"industries"`
	Sizes               []CompanySize `yaml:"sizes"`
}

type Property struct {
	Name              string  `yaml:"name" json:"name"`
	Kind              string  `yaml:"kind" json:"kind"`
	Region            string  `yaml:"region" json:"region"`
	Price             float64 `yaml:"price" json:"price"`
	WeeklyRent        float64 `yaml:"weekly_rent" json:"weekly_rent"`
	WeeklyMaintenance float64 `yaml:"weekly_maintenance" json:"weekly_maintenance"`
}

type LuxuryGood struct {
	ID           string  `yaml:"id" json:"id"`
	Name         string  `yaml:"name" json:"name"`
	Price        float64 `yaml:"price" json:"price"`
	WeeklyUpkeep float64 `yaml:"weekly_upkeep" json:"weekly_upkeep"`
}

type StockOptionTerms struct {
	VestingWeeks int `yaml:"vesting_weeks"`
	ExpiryWeeks  int `yaml:"expiry_weeks"`
}

// Default returns the embedded tables. It panics only if the embedded file is
// malformed, which is a build defect.
func Default() *Data {
	d, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded master data: %v", err))
	}
	return d
}

// Load reads an override file. An empty path yields the embedded defaults.
func Load(path string) (*Data, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultYAML)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read master data: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Data, error) {
	var d Data
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode master data: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Digest identifies a table set; snapshots record it so a save is not resumed
// against different tables unnoticed.
func (d *Data) Digest() (string, error) {
	raw, err := yaml.Marshal(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
