package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"ramentycoon/internal/game"
	"ramentycoon/internal/store"
	"ramentycoon/internal/syncq"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)

	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Padding(0, 1)
	panelTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptConfirm(label string) (bool, error) {
	fmt.Printf("%s [y/N]: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func renderDashboard(d game.Dashboard) {
	summary := []string{
		panelTitle.Render(d.Company),
		d.Clock.String(),
		"",
		fmt.Sprintf("Company cash   %s", formatYen(d.CompanyCash)),
		fmt.Sprintf("Personal cash  %s", formatYen(d.PersonalCash)),
		fmt.Sprintf("Net profit     %s", colorizeYen(d.NetProfit)),
		fmt.Sprintf("Total debt     %s", formatYen(d.TotalDebt)),
		fmt.Sprintf("Net worth      %s", formatYen(d.NetWorth)),
	}
	status := []string{
		panelTitle.Render("Standing"),
		fmt.Sprintf("Credit  %d (%s)", d.CreditScore, d.Rating),
		fmt.Sprintf("IPO     %s", d.IPO.Status),
		fmt.Sprintf("HQ      %s", orDash(string(d.HQ))),
		fmt.Sprintf("Depts   %s", orDash(strings.Join(d.Departments, ", "))),
		fmt.Sprintf("CXOs    %d", len(d.CXOs)),
	}
	fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top,
		panel.Render(strings.Join(summary, "\n")),
		" ",
		panel.Render(strings.Join(status, "\n")),
	))
	if d.GameOver {
		printError("GAME OVER: the company has run out of money.")
	}

	fmt.Println()
	accent.Println("Shops")
	if len(d.Shops) == 0 {
		printInfo("No shops yet. Try `ramen act open_shop region=Tokyo name=Shibuya amount=10000000`.")
	} else {
		fmt.Printf("%-10s %-18s %-10s %4s %5s %5s %7s %9s %14s %14s\n", "ID", "NAME", "REGION", "EQ", "STAFF", "MENU", "ATTR", "CUSTOMERS", "SALES", "PROFIT")
		for _, s := range d.Shops {
			fmt.Printf("%-10s %-18s %-10s %4d %5d %5d %7.1f %9d %14s %14s\n",
				s.ID,
				truncate(s.Name, 18),
				s.Region,
				s.Equipment,
				s.Staff,
				s.MenuItems,
				s.Attractiveness,
				s.Customers,
				formatYen(s.Sales),
				colorizeYen(s.Profit),
			)
		}
	}

	if len(d.Positions) > 0 {
		fmt.Println()
		accent.Println("Positions")
		fmt.Printf("%-9s %-8s %-22s %8s %8s %8s %12s %12s %14s\n", "OWNER", "TICKER", "NAME", "CASH", "MARGIN", "SHORT", "AVG", "NOW", "P/L")
		for _, p := range d.Positions {
			fmt.Printf("%-9s %-8s %-22s %8d %8d %8d %12s %12s %14s\n",
				p.Owner,
				p.Ticker,
				truncate(p.Name, 22),
				p.CashShares,
				p.MarginShares,
				p.ShortShares,
				formatYen(p.AvgPrice),
				formatYen(p.CurrentPrice),
				colorizeYen(p.Unrealized),
			)
		}
	}

	if len(d.Ventures) > 0 {
		fmt.Println()
		accent.Println("Ventures")
		fmt.Printf("%-9s %-14s %-22s %-10s %-20s %14s %7s %6s\n", "OWNER", "DEAL", "COMPANY", "ROUND", "STATUS", "INVESTED", "EQUITY", "NEXT")
		for _, v := range d.Ventures {
			fmt.Printf("%-9s %-14s %-22s %-10s %-20s %14s %6.1f%% %6d\n",
				v.Owner, v.DealID, truncate(v.Company, 22), v.Round, v.Status, formatYen(v.Invested), v.Equity, v.NextIn)
		}
	}
	fmt.Println()
}

func renderTicks(reports []game.TickReport) {
	for _, r := range reports {
		line := fmt.Sprintf("%-18s customers %6d  sales %14s  profit %14s  cash %14s",
			r.Clock.String(),
			r.Operations.Customers,
			formatYen(r.Operations.Sales),
			colorizeYen(r.Operations.Profit),
			formatYen(r.CompanyCash),
		)
		fmt.Println(line)
		if r.PhaseChanged {
			warn.Printf("  economy is now in %s\n", r.Clock.Phase)
		}
		for _, v := range r.Ventures {
			printInfo(fmt.Sprintf("  venture %s: %s %s", v.Company, v.Kind, v.Outcome))
		}
		if r.IPO != nil && r.IPO.Listed {
			printSuccess(fmt.Sprintf("  listed as %s at %s, raised %s", r.IPO.Ticker, formatYen(r.IPO.Price), formatYen(r.IPO.Proceeds)))
		}
		for _, b := range r.BondsDefaulted {
			printError("  bond defaulted: " + b)
		}
		if r.CompanyMargin.Call || r.PersonalMargin.Call {
			printError("  margin call")
		}
		if r.QuarterEnd {
			accent.Printf("  quarter closed, credit score %d\n", r.CreditScore)
		}
		if r.GameOver {
			printError("GAME OVER")
		}
	}
}

func renderStocks(stocks []game.StockView) {
	accent.Println("\n== STOCK MARKET ==")
	if len(stocks) == 0 {
		printInfo("No stocks found.")
		return
	}
	fmt.Printf("%-8s %-24s %-14s %12s %16s %7s\n", "TICKER", "NAME", "SECTOR", "PRICE", "MARKET CAP", "YIELD")
	for _, s := range stocks {
		name := truncate(s.Name, 24)
		if s.Own {
			name = success.Sprint(name)
		}
		fmt.Printf("%-8s %-24s %-14s %12s %16s %6.2f%%\n",
			s.Ticker, name, truncate(s.Sector, 14), formatYen(s.Price), formatYen(s.Cap), s.Dividend*100)
	}
	fmt.Println()
}

func renderStockDetail(d game.StockDetail) {
	accent.Printf("\n== %s (%s) ==\n", d.Ticker, d.Name)
	fmt.Printf("Sector:  %s\n", d.Sector)
	fmt.Printf("Price:   %s\n", formatYen(d.Price))
	fmt.Printf("Cap:     %s\n", formatYen(d.Cap))
	if d.PE > 0 {
		fmt.Printf("P/E:     %.1f\n", d.PE)
	}
	if d.PBR > 0 {
		fmt.Printf("P/B:     %.2f\n", d.PBR)
	}
	if n := len(d.Series); n > 1 {
		fmt.Printf("Trend:   %s over %d weeks\n", colorizeYen(d.Series[n-1].Price-d.Series[0].Price), n-1)
		fmt.Println()
		accent.Println("Recent weeks")
		start := max(0, n-8)
		for _, p := range d.Series[start:] {
			fmt.Printf("  -%2dw %12s\n", p.WeeksAgo, formatYen(p.Price))
		}
	}
	fmt.Println()
}

func renderListings(l game.Listings) {
	accent.Println("\n== VENTURE DEALS ==")
	fmt.Printf("%-14s %-22s %-12s %-8s %14s %14s %7s %3s\n", "ID", "COMPANY", "SECTOR", "ROUND", "VALUATION", "ASK", "EQUITY", "DD")
	for _, d := range l.Deals {
		fmt.Printf("%-14s %-22s %-12s %-8s %14s %14s %6.1f%% %3d\n",
			d.ID, truncate(d.CompanyName, 22), truncate(d.Sector, 12), d.Round, formatYen(d.Valuation), formatYen(d.Ask), d.EquityPercent, d.DDLevel)
	}

	accent.Println("\n== ACQUISITION TARGETS ==")
	fmt.Printf("%-14s %-22s %-14s %-8s %16s %26s\n", "ID", "NAME", "INDUSTRY", "SIZE", "REVENUE", "ASKING")
	for _, t := range l.Targets {
		asking := "(needs DD)"
		if t.DDPerformed {
			asking = formatYen(t.AskingPriceMin) + " - " + formatYen(t.AskingPriceMax)
		}
		fmt.Printf("%-14s %-22s %-14s %-8s %16s %26s\n", t.ID, truncate(t.Name, 22), truncate(t.Industry, 14), t.Size, formatYen(t.AnnualRevenue), asking)
	}

	accent.Println("\n== EXECUTIVE CANDIDATES ==")
	fmt.Printf("%-12s %-20s %-5s %-10s %12s %14s\n", "ID", "NAME", "ROLE", "SKILL", "SALARY/WK", "RECRUITING")
	for _, c := range l.CXOCandidates {
		fmt.Printf("%-12s %-20s %-5s %-10s %12s %14s\n", c.ID, truncate(c.Name, 20), c.Role, c.Skill, formatYen(c.WeeklySalary), formatYen(c.RecruitmentCost))
	}

	accent.Println("\n== PROPERTY ==")
	fmt.Printf("%-12s %-24s %-12s %-10s %16s %12s\n", "ID", "NAME", "KIND", "REGION", "VALUE", "RENT/WK")
	for _, p := range l.Properties {
		fmt.Printf("%-12s %-24s %-12s %-10s %16s %12s\n", p.ID, truncate(p.Name, 24), p.Kind, p.Region, formatYen(p.CurrentValue), formatYen(p.WeeklyRent))
	}
	fmt.Println()
}

func renderHistory(quarters []store.QuarterRecord) {
	accent.Println("\n== QUARTERS ==")
	if len(quarters) == 0 {
		printInfo("No closed quarters yet.")
		return
	}
	fmt.Printf("%-8s %5s %14s %14s %14s %14s %6s %-4s %5s\n", "QUARTER", "WEEK", "SALES", "COSTS", "CASH", "NET WORTH", "SCORE", "RATE", "SHOPS")
	for _, q := range quarters {
		fmt.Printf("%4d Q%d  %5d %14s %14s %14s %14s %6d %-4s %5d\n",
			q.Year, q.Quarter, q.Week, formatYen(q.TotalSales), formatYen(q.TotalCosts), formatYen(q.Cash), colorizeYen(q.NetWorth), q.CreditScore, q.Rating, q.Shops)
	}
	fmt.Println()
}

func renderQueue(entries []syncq.Entry) {
	if len(entries) == 0 {
		printInfo("Queue is empty.")
		return
	}
	fmt.Printf("%-3s %-7s %-38s %-22s %s\n", "#", "WHERE", "TARGET", "KIND", "ARGS")
	for i, e := range entries {
		where := "local"
		if e.Remote {
			where = "remote"
		}
		fmt.Printf("%-3d %-7s %-38s %-22s %s\n", i+1, where, e.Target, e.Action.Kind, string(e.Action.Args))
	}
}

func printResult(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printWarn(fmt.Sprintf("unprintable result: %v", err))
		return
	}
	if string(raw) == "null" {
		return
	}
	fmt.Println(string(raw))
}

// formatYen rounds to whole yen and groups digits.
func formatYen(v float64) string {
	d := decimal.NewFromFloat(v).Round(0)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + "¥" + comma(d.String())
}

func colorizeYen(v float64) string {
	text := formatYen(v)
	if v > 0 {
		text = "+" + text
	}
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func comma(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
