package cli

import (
	"context"
	"fmt"
	"strconv"
)

// sync runs a full cycle right away, bypassing any scheduled backoff.
func (a *App) sync(ctx context.Context) {
	if err := a.orchestrator.RunCycle(ctx); err != nil {
		fmt.Println("sync failed:", err)
		return
	}
	fmt.Println("Sync complete.")
}

func (a *App) status(ctx context.Context) {
	st := a.orchestrator.CurrentStatus(ctx)
	fmt.Println("Sync:", st.String())
	if st.LastError != "" {
		fmt.Println("Last error:", st.LastError)
	}
	if a.monitor.Online() {
		fmt.Println("Server: reachable")
	} else {
		fmt.Println("Server: unreachable")
	}
}

func (a *App) failed(ctx context.Context) {
	entries, err := a.penaltyService.FailedChanges(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("No failed changes.")
		return
	}
	for _, e := range entries {
		fmt.Printf("#%d  %-9s %s  %s\n", e.Seq, e.Op, e.PenaltyID, e.LastError)
	}
	fmt.Println("Use 'retry <seq>' to queue a change again.")
}

func (a *App) retry(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: retry <seq>")
		return
	}
	seq, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Println("seq must be a number")
		return
	}
	if err := a.penaltyService.RetryChange(ctx, seq); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Queued for retry.")
}
