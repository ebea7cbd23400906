package master

func (d *Data) Region(name string) (Region, bool) {
	for _, r := range d.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

func (d *Data) MenuItem(name string) (MenuItem, bool) {
	for _, m := range d.Menu {
		if m.Name == name {
			return m, true
		}
	}
	return MenuItem{}, false
}

// ShopKind falls back to the default upgrade curve for unknown kinds.
func (d *Data) ShopKind(name string) ShopKind {
	for _, k := range d.Shop.Kinds {
		if k.Name == name {
			return k
		}
	}
	return ShopKind{Name: name, UpgradeCostBase: 500_000, UpgradeCostFactor: 1_000_000, MaxEquipmentLevel: 5}
}

func (d *Data) Department(name string) (Department, bool) {
	for _, dep := range d.Departments {
		if dep.Name == name {
			return dep, true
		}
	}
	return Department{}, false
}

func (d *Data) LoanProduct(id string) (LoanProduct, bool) {
	for _, p := range d.LoanProducts {
		if p.ID == id {
			return p, true
		}
	}
	return LoanProduct{}, false
}

// CreditTier returns the highest tier whose floor the score reaches.
func (d *Data) CreditTier(score int) CreditTier {
	for _, t := range d.Credit.Tiers {
		if score >= t.MinScore {
			return t
		}
	}
	return d.Credit.Tiers[len(d.Credit.Tiers)-1]
}

func (d *Data) BondSpread(rating string) (float64, bool) {
	for _, s := range d.Bonds.Spreads {
		if s.Rating == rating {
			return s.Spread, true
		}
	}
	return 0, false
}

func (d *Data) DifficultyLevel(level int) (Difficulty, bool) {
	for _, diff := range d.Competitors.Difficulties {
		if diff.Level == level {
			return diff, true
		}
	}
	return Difficulty{}, false
}

// RoundIndex returns the position of a venture round in the ordered sequence.
func (d *Data) RoundIndex(id string) int {
	for i, r := range d.Venture.Rounds {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (d *Data) VentureSector(name string) (VentureSector, bool) {
	for _, s := range d.Venture.Sectors {
		if s.Name == name {
			return s, true
		}
	}
	return VentureSector{}, false
}

func (d *Data) DDLevel(level int) (DDLevel, bool) {
	if level < 0 || level >= len(d.Venture.DDLevels) {
		return DDLevel{}, false
	}
	return d.Venture.DDLevels[level], true
}

func (d *Data) RNDProject(id string) (RNDProject, bool) {
	for _, p := range d.RNDProjects {
		if p.ID == id {
			return p, true
		}
	}
	return RNDProject{}, false
}

func (d *Data) CXORole(role string) (CXORole, bool) {
	for _, r := range d.CXO.Roles {
		if r.Role == role {
			return r, true
		}
	}
	return CXORole{}, false
}

func (d *Data) CXOSkill(level string) (CXOSkill, bool) {
	for _, s := range d.CXO.Skills {
		if s.Level == level {
			return s, true
		}
	}
	return CXOSkill{}, false
}

// SkillRank orders skill levels; lower is better. Unknown levels rank last.
func (d *Data) SkillRank(level string) int {
	for i, s := range d.CXO.Skills {
		if s.Level == level {
			return i
		}
	}
	return len(d.CXO.Skills)
}

func (d *Data) Industry(name string) (Industry, bool) {
	for _, ind := range d.MA.Industries {
		if ind.Name == name {
			return ind, true
		}
	}
	return Industry{}, false
}

func (d *Data) Property(name string) (Property, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

func (d *Data) LuxuryGood(id string) (LuxuryGood, bool) {
	for _, g := range d.LuxuryGoods {
		if g.ID == id {
			return g, true
		}
	}
	return LuxuryGood{}, false
}
