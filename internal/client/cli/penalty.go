package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
)

func formatAmount(cents int64, currency models.Currency) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}

func formatPenalty(p *models.Penalty) string {
	state := "unpaid"
	if p.Paid() {
		state = "paid " + p.PaidAt.Format("2006-01-02")
	}
	marker := ""
	if p.Pending {
		marker = " *"
	}
	return fmt.Sprintf("%s  %-10s %-12s %10s  %s%s",
		p.ID, p.MemberID, p.TypeID, formatAmount(p.AmountCents, p.Currency), state, marker)
}

func (a *App) add(ctx context.Context) {
	memberID, err := getSimpleText(a.reader, "Member", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	typeID, err := getSimpleText(a.reader, "Penalty type", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	reason, err := getSimpleText(a.reader, "Reason", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	amountStr, err := getSimpleText(a.reader, "Amount in cents", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		fmt.Println("amount must be an integer number of cents")
		return
	}
	currencyStr, err := getSimpleText(a.reader, "Currency (EUR, USD, GBP, CHF)", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	currency, err := models.ParseCurrency(currencyStr)
	if err != nil {
		fmt.Println(err)
		return
	}

	p, err := a.penaltyService.Create(ctx, memberID, typeID, reason, amount, currency)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Created", p.ID)
}

func (a *App) list(ctx context.Context) {
	active, err := a.penaltyService.List(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	if len(active) == 0 {
		fmt.Println("No active penalties.")
		return
	}
	for i := range active {
		fmt.Println(formatPenalty(&active[i]))
	}
}

func requireID(args []string, usage string) (string, bool) {
	if len(args) != 1 {
		fmt.Println("Usage:", usage)
		return "", false
	}
	return args[0], true
}

func (a *App) show(ctx context.Context, args []string) {
	id, ok := requireID(args, "show <id>")
	if !ok {
		return
	}
	p, err := a.penaltyService.Get(ctx, id)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(formatPenalty(p))
	fmt.Printf("  reason:  %s\n", p.Reason)
	fmt.Printf("  created: %s\n", p.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("  updated: %s\n", p.UpdatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("  version: %d\n", p.Version)
}

func (a *App) pay(ctx context.Context, args []string) {
	id, ok := requireID(args, "pay <id>")
	if !ok {
		return
	}
	if _, err := a.penaltyService.MarkPaid(ctx, id); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Marked paid.")
}

func (a *App) editReason(ctx context.Context, args []string) {
	id, ok := requireID(args, "reason <id>")
	if !ok {
		return
	}
	reason, err := getSimpleText(a.reader, "New reason", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	if _, err := a.penaltyService.UpdateReason(ctx, id, reason); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Updated.")
}

func (a *App) editAmount(ctx context.Context, args []string) {
	id, ok := requireID(args, "amount <id>")
	if !ok {
		return
	}
	amountStr, err := getSimpleText(a.reader, "New amount in cents", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		fmt.Println("amount must be an integer number of cents")
		return
	}
	if _, err := a.penaltyService.UpdateAmount(ctx, id, amount); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Updated.")
}

func (a *App) archive(ctx context.Context, args []string) {
	id, ok := requireID(args, "archive <id>")
	if !ok {
		return
	}
	if _, err := a.penaltyService.Archive(ctx, id); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Archived.")
}

func (a *App) delete(ctx context.Context, args []string) {
	id, ok := requireID(args, "delete <id>")
	if !ok {
		return
	}
	if err := a.penaltyService.Delete(ctx, id); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Deleted.")
}
