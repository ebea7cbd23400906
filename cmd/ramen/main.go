package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	cl "ramentycoon/internal/cli"
	"ramentycoon/internal/config"
	"ramentycoon/internal/game"
	"ramentycoon/internal/master"
	"ramentycoon/internal/store"
	"ramentycoon/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// app carries what every command needs. Flags on the root override the
// environment.
type app struct {
	cfg     config.CLIConfig
	log     *slog.Logger
	apiBase string
	slot    string
}

func main() {
	config.LoadDotEnv()
	cfg := config.LoadCLIFromEnv()
	a := &app{
		cfg:     cfg,
		apiBase: cfg.APIBaseURL,
		log:     slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})),
	}

	root := &cobra.Command{
		Use:          "ramen",
		Short:        "Ramen Tycoon: run a ramen chain and a holding company, one week at a time",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.slot, "slot", "", "save slot (defaults to the last one used)")
	root.PersistentFlags().StringVar(&a.apiBase, "api", a.apiBase, "API base URL for remote commands")

	root.AddCommand(
		newNewCmd(a),
		newUseCmd(a),
		newSavesCmd(a),
		newDashCmd(a),
		newActCmd(a),
		newAdvanceCmd(a),
		newQueueCmd(a),
		newStocksCmd(a),
		newListingsCmd(a),
		newHistoryCmd(a),
		newKindsCmd(),
		newRemoteCmd(a),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) options() (game.Options, error) {
	opts := game.Options{
		PoolMode:   game.PoolMode(a.cfg.PoolMode),
		Volatility: a.cfg.Volatility,
		Logger:     a.log,
	}
	if a.cfg.MasterFile != "" {
		d, err := master.Load(a.cfg.MasterFile)
		if err != nil {
			return opts, err
		}
		opts.Master = d
	}
	return opts, nil
}

// history opens the local quarter database. A broken database only costs
// the charts, so the game goes on without it.
func (a *app) history() store.History {
	h, err := store.OpenSQLite(a.cfg.HistoryDB)
	if err != nil {
		a.log.Warn("history disabled", "path", a.cfg.HistoryDB, "error", err)
		return store.Discard{}
	}
	return h
}

func (a *app) profile() (cl.Profile, error) {
	p, err := cl.LoadProfile(a.cfg.SaveDir)
	if err != nil {
		return cl.Profile{}, err
	}
	if a.slot != "" {
		p.Slot = a.slot
	}
	return p, nil
}

// withLocal opens the current slot, runs fn and, when fn changed the game,
// writes the slot back.
func (a *app) withLocal(ctx context.Context, save bool, fn func(*cl.Local) error) error {
	p, err := a.profile()
	if err != nil {
		return err
	}
	opts, err := a.options()
	if err != nil {
		return err
	}
	hist := a.history()
	defer hist.Close()
	l, err := cl.OpenLocal(a.cfg.SaveDir, p.Slot, opts, hist)
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	if !save {
		return nil
	}
	_, err = l.Save(ctx)
	return err
}

func newNewCmd(a *app) *cobra.Command {
	var company, volatility, pool string
	var seed uint64
	var force bool
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new game in a save slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profile()
			if err != nil {
				return err
			}
			opts, err := a.options()
			if err != nil {
				return err
			}
			if company == "" {
				if company, err = promptRequired("Company name"); err != nil {
					return err
				}
			}
			opts.CompanyName = company
			opts.Seed = seed
			if !cmd.Flags().Changed("seed") {
				opts.Seed = uint64(time.Now().UnixNano())
			}
			if volatility != "" {
				opts.Volatility = volatility
			}
			if pool != "" {
				opts.PoolMode = game.PoolMode(pool)
			}
			if !force {
				if _, err := os.Stat(store.SavePath(a.cfg.SaveDir, p.Slot)); err == nil {
					ok, err := promptConfirm(fmt.Sprintf("Slot %q already has a game. Replace it?", p.Slot))
					if err != nil {
						return err
					}
					if !ok {
						printInfo("Kept the existing game.")
						return nil
					}
					force = true
				}
			}

			hist := a.history()
			defer hist.Close()
			l, err := cl.NewLocal(a.cfg.SaveDir, p.Slot, opts, hist, force)
			if err != nil {
				return err
			}
			if _, err := l.Save(cmd.Context()); err != nil {
				return err
			}
			p.Slot = l.Slot
			if err := cl.SaveProfile(a.cfg.SaveDir, p); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Started %s in slot %q (seed %d).", l.Session.Dashboard().Company, l.Slot, opts.Seed))
			return nil
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "company name")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "world seed (random when omitted)")
	cmd.Flags().StringVar(&volatility, "volatility", "", "market volatility: calm, normal or wild")
	cmd.Flags().StringVar(&pool, "pool", "", "customer pool: global or regional")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing game without asking")
	return cmd
}

func newUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use SLOT",
		Short: "Switch the current save slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := cl.ValidateSlot(args[0])
			if err != nil {
				return err
			}
			p, err := cl.LoadProfile(a.cfg.SaveDir)
			if err != nil {
				return err
			}
			p.Slot = slot
			if err := cl.SaveProfile(a.cfg.SaveDir, p); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Now playing slot %q.", slot))
			return nil
		},
	}
}

func newSavesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "saves",
		Short: "List save slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profile()
			if err != nil {
				return err
			}
			paths, err := filepath.Glob(filepath.Join(a.cfg.SaveDir, "*.ramen.zst"))
			if err != nil {
				return err
			}
			sort.Strings(paths)
			if len(paths) == 0 {
				printInfo("No saves yet. Run `ramen new`.")
				return nil
			}
			fmt.Printf("  %-16s %-28s %-26s %6s %s\n", "SLOT", "COMPANY", "DATE", "WEEK", "SAVED")
			for _, path := range paths {
				slot := strings.TrimSuffix(filepath.Base(path), ".ramen.zst")
				h, err := store.ReadHeader(path)
				if err != nil {
					printWarn(fmt.Sprintf("  %-16s unreadable: %v", slot, err))
					continue
				}
				mark := " "
				if slot == p.Slot {
					mark = "*"
				}
				fmt.Printf("%s %-16s %-28s %-26s %6d %s\n", mark, slot, truncate(h.Company, 28), h.Clock, h.Week, h.SavedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newDashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLocal(cmd.Context(), false, func(l *cl.Local) error {
				renderDashboard(l.Session.Dashboard())
				return nil
			})
		},
	}
}

func newActCmd(a *app) *cobra.Command {
	var rawArgs string
	var plan bool
	cmd := &cobra.Command{
		Use:   "act KIND [key=value ...]",
		Short: "Take an action now, or plan it for the next advance",
		Long:  "Run `ramen kinds` for the list of actions. Arguments are key=value pairs or a JSON object in --args.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := buildAction(args[0], args[1:], rawArgs)
			if err != nil {
				return err
			}
			if plan {
				p, err := a.profile()
				if err != nil {
					return err
				}
				if err := syncq.Push(a.cfg.SaveDir, syncq.Entry{Target: p.Slot, Action: action, IdempotencyKey: uuid.NewString()}); err != nil {
					return err
				}
				printInfo(fmt.Sprintf("Planned %s for the next advance.", action.Kind))
				return nil
			}
			return a.withLocal(cmd.Context(), true, func(l *cl.Local) error {
				res, err := l.Session.Apply(action)
				if err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("%s done.", action.Kind))
				if res != nil {
					printResult(res)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rawArgs, "args", "", "action arguments as a JSON object")
	cmd.Flags().BoolVar(&plan, "plan", false, "queue the action to run before the next advance")
	return cmd
}

func newAdvanceCmd(a *app) *cobra.Command {
	var weeks int
	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Run planned actions, then simulate weeks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if weeks < 1 {
				return fmt.Errorf("--weeks must be at least 1")
			}
			return a.withLocal(cmd.Context(), true, func(l *cl.Local) error {
				planned, err := syncq.Take(a.cfg.SaveDir, l.Slot, false)
				if err != nil {
					return err
				}
				if len(planned) > 0 {
					applied, failed := l.ApplyQueued(planned)
					printInfo(fmt.Sprintf("Ran %d planned action(s).", applied))
					for _, f := range failed {
						printError(fmt.Sprintf("Planned %s failed: %v", f.Entry.Action.Kind, f.Err))
					}
				}
				reports, err := l.Advance(cmd.Context(), weeks)
				renderTicks(reports)
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&weeks, "weeks", "w", 1, "weeks to simulate")
	return cmd
}

func newQueueCmd(a *app) *cobra.Command {
	queue := &cobra.Command{
		Use:   "queue",
		Short: "Show planned and unsent actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := syncq.Load(a.cfg.SaveDir)
			if err != nil {
				return err
			}
			renderQueue(entries)
			return nil
		},
	}
	queue.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every queued action",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := syncq.Save(a.cfg.SaveDir, nil); err != nil {
				return err
			}
			printSuccess("Queue cleared.")
			return nil
		},
	})
	return queue
}

func newStocksCmd(a *app) *cobra.Command {
	var sector string
	var weeks int
	return withStockFlags(&cobra.Command{
		Use:     "stocks [TICKER]",
		Short:   "List the market or inspect one company",
		Aliases: []string{"stock"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLocal(cmd.Context(), false, func(l *cl.Local) error {
				if len(args) == 0 {
					renderStocks(l.Session.Stocks(sector))
					return nil
				}
				d, err := l.Session.Stock(args[0], weeks)
				if err != nil {
					return err
				}
				renderStockDetail(d)
				return nil
			})
		},
	}, &sector, &weeks)
}

func withStockFlags(cmd *cobra.Command, sector *string, weeks *int) *cobra.Command {
	cmd.Flags().StringVar(sector, "sector", "", "only list one sector")
	cmd.Flags().IntVar(weeks, "weeks", 26, "weeks of price history to show")
	return cmd
}

func newListingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "listings",
		Short: "Show venture deals, acquisition targets, executives and property for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLocal(cmd.Context(), false, func(l *cl.Local) error {
				renderListings(l.Session.Listings())
				return nil
			})
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show closed quarters for the current game",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLocal(cmd.Context(), false, func(l *cl.Local) error {
				quarters, err := l.History.Quarters(cmd.Context(), l.HistoryID(), limit)
				if err != nil {
					return err
				}
				renderHistory(quarters)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 8, "quarters to show (0 for all)")
	return cmd
}

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List action kinds",
		Run: func(cmd *cobra.Command, args []string) {
			for _, k := range game.ActionKinds() {
				fmt.Println(k)
			}
		},
	}
}
