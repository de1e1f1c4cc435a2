package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus(ctx context.Context) string {
	parts := []string{}
	if username, err := a.authService.Username(ctx); err == nil && username != "" {
		parts = append(parts, username)
	}
	if a.monitor.Online() {
		parts = append(parts, "online")
	} else {
		parts = append(parts, "offline")
	}
	parts = append(parts, a.orchestrator.CurrentStatus(ctx).String())
	return fmt.Sprintf("(%s)", strings.Join(parts, " "))
}

// Root runs the REPL until the user exits or input ends.
func (a *App) Root(ctx context.Context) {
	fmt.Println("Team penalty tracker (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("ccli %s> ", a.getStatus(ctx))
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Account:   register, login, logout")
			fmt.Println("Penalties: add, list, show <id>, pay <id>, reason <id>, amount <id>, archive <id>, delete <id>")
			fmt.Println("Sync:      sync, status, failed, retry <seq>")
			fmt.Println("Other:     exit")
		case "register":
			a.register(ctx)
		case "login":
			a.login(ctx)
		case "logout":
			a.logout(ctx)
		case "add":
			a.add(ctx)
		case "list":
			a.list(ctx)
		case "show":
			a.show(ctx, args)
		case "pay":
			a.pay(ctx, args)
		case "reason":
			a.editReason(ctx, args)
		case "amount":
			a.editAmount(ctx, args)
		case "archive":
			a.archive(ctx, args)
		case "delete":
			a.delete(ctx, args)
		case "sync":
			a.sync(ctx)
		case "status":
			a.status(ctx)
		case "failed":
			a.failed(ctx)
		case "retry":
			a.retry(ctx, args)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
