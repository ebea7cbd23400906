package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cl "ramentycoon/internal/cli"
	"ramentycoon/internal/store"
	"ramentycoon/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRemoteCmd(a *app) *cobra.Command {
	remote := &cobra.Command{
		Use:   "remote",
		Short: "Play a session hosted by ramen-api",
	}
	remote.AddCommand(
		newRemoteNewCmd(a),
		newRemoteUseCmd(a),
		newRemoteDashCmd(a),
		newRemoteActCmd(a),
		newRemoteAdvanceCmd(a),
		newRemoteSyncCmd(a),
		newRemoteStocksCmd(a),
		newRemoteHistoryCmd(a),
		newRemotePullCmd(a),
		newRemotePushCmd(a),
	)
	return remote
}

func (a *app) client() *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(a.apiBase), "/"))
}

func (a *app) remoteID() (string, error) {
	p, err := a.profile()
	if err != nil {
		return "", err
	}
	return p.RemoteSession()
}

func (a *app) setRemote(id string) error {
	p, err := cl.LoadProfile(a.cfg.SaveDir)
	if err != nil {
		return err
	}
	p.RemoteID = id
	return cl.SaveProfile(a.cfg.SaveDir, p)
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func newRemoteNewCmd(a *app) *cobra.Command {
	var company, volatility, pool string
	var seed uint64
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a session on the server and make it current",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := cl.CreateRequest{Company: company, Volatility: volatility, PoolMode: pool}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := a.client().CreateSession(ctx, req)
			if err != nil {
				return err
			}
			if err := a.setRemote(out.ID); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Remote session %s started for %s (seed %d).", out.ID, out.Dashboard.Company, out.Seed))
			return nil
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "company name")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "world seed (server picks when omitted)")
	cmd.Flags().StringVar(&volatility, "volatility", "", "market volatility: calm, normal or wild")
	cmd.Flags().StringVar(&pool, "pool", "", "customer pool: global or regional")
	return cmd
}

func newRemoteUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use ID",
		Short: "Switch to an existing remote session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			d, err := a.client().Dashboard(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.setRemote(args[0]); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Now playing %s remotely.", d.Company))
			return nil
		},
	}
}

func newRemoteDashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show the remote dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.remoteID()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			d, err := a.client().Dashboard(ctx, id)
			if err != nil {
				return err
			}
			renderDashboard(d)
			return nil
		},
	}
}

func newRemoteActCmd(a *app) *cobra.Command {
	var rawArgs string
	cmd := &cobra.Command{
		Use:   "act KIND [key=value ...]",
		Short: "Send an action; it is queued when the server is unreachable",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.remoteID()
			if err != nil {
				return err
			}
			action, err := buildAction(args[0], args[1:], rawArgs)
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := a.client().Apply(ctx, id, action, idem)
			if err != nil {
				return queueOnNetworkError(a, err, syncq.Entry{Target: id, Remote: true, Action: action, IdempotencyKey: idem})
			}
			printSuccess(fmt.Sprintf("%s done.", action.Kind))
			if len(out.Result) > 0 && string(out.Result) != "null" {
				fmt.Println(string(out.Result))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rawArgs, "args", "", "action arguments as a JSON object")
	return cmd
}

// queueOnNetworkError keeps an action the server never saw. Errors the
// server answered are returned as they are.
func queueOnNetworkError(a *app, err error, e syncq.Entry) error {
	if !cl.Unreachable(err) {
		return err
	}
	if qerr := syncq.Push(a.cfg.SaveDir, e); qerr != nil {
		return fmt.Errorf("request failed (%v) and queueing failed: %w", err, qerr)
	}
	printWarn(fmt.Sprintf("Server unreachable; %s queued. Run `ramen remote sync` later.", e.Action.Kind))
	return nil
}

func newRemoteAdvanceCmd(a *app) *cobra.Command {
	var weeks int
	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Simulate weeks on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.remoteID()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := a.client().Advance(ctx, id, weeks)
			if err != nil {
				return err
			}
			renderTicks(out.Reports)
			return nil
		},
	}
	cmd.Flags().IntVarP(&weeks, "weeks", "w", 1, "weeks to simulate")
	return cmd
}

func newRemoteSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued actions to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.remoteID()
			if err != nil {
				return err
			}
			queued, err := syncq.Take(a.cfg.SaveDir, id, true)
			if err != nil {
				return err
			}
			if len(queued) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := a.client()
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			success := 0
			for i, e := range queued {
				_, err := client.Apply(ctx, id, e.Action, e.IdempotencyKey)
				if err == nil {
					success++
					continue
				}
				if cl.Unreachable(err) {
					if err := syncq.Requeue(a.cfg.SaveDir, queued[i:]); err != nil {
						return err
					}
					printWarn(fmt.Sprintf("Server unreachable: replayed=%d remaining=%d", success, len(queued)-i))
					return nil
				}
				printError(fmt.Sprintf("Sync failed for %s: %v", e.Action.Kind, err))
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d dropped=%d", success, len(queued)-success))
			return nil
		},
	}
}

func newRemoteStocksCmd(a *app) *cobra.Command {
	var sector string
	var weeks int
	return withStockFlags(&cobra.Command{
		Use:   "stocks [TICKER]",
		Short: "List the remote market or inspect one company",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.remoteID()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			client := a.client()
			if len(args) == 0 {
				stocks, err := client.Stocks(ctx, id, sector)
				if err != nil {
					return err
				}
				renderStocks(stocks)
				return nil
			}
			d, err := client.Stock(ctx, id, args[0], weeks)
			if err != nil {
				return err
			}
			renderStockDetail(d)
			return nil
		},
	}, &sector, &weeks)
}

func newRemoteHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show closed quarters recorded by the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.remoteID()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			quarters, err := a.client().History(ctx, id, limit)
			if err != nil {
				return err
			}
			renderHistory(quarters)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 8, "quarters to show (0 for all)")
	return cmd
}

func newRemotePullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Copy the remote session into the current save slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.remoteID()
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			var buf bytes.Buffer
			if err := a.client().Export(ctx, id, &buf); err != nil {
				return err
			}
			_, st, err := store.DecodeSnapshot(&buf)
			if err != nil {
				return err
			}
			path := store.SavePath(a.cfg.SaveDir, p.Slot)
			h, err := store.WriteSnapshot(path, st, time.Now())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Saved %s (%s) to slot %q.", h.Company, h.Clock, p.Slot))
			return nil
		},
	}
}

func newRemotePushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload the current save slot as a new remote session",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profile()
			if err != nil {
				return err
			}
			f, err := os.Open(store.SavePath(a.cfg.SaveDir, p.Slot))
			if err != nil {
				return err
			}
			defer f.Close()
			ctx, cancel := requestContext(cmd)
			defer cancel()
			out, err := a.client().Import(ctx, f)
			if err != nil {
				return err
			}
			if err := a.setRemote(out.ID); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Uploaded slot %q as remote session %s.", p.Slot, out.ID))
			return nil
		},
	}
}
