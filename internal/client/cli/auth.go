package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Psheikomaniac/cashcow-go/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) register(ctx context.Context) {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, username, string(password)); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Registered. Use 'login' to sign in.")
}

func (a *App) login(ctx context.Context) {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, username, string(password)); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Logged in.")

	// A fresh session unblocks a sync that may have stalled on auth.
	a.orchestrator.Resume()
}

func (a *App) logout(ctx context.Context) {
	if err := a.authService.Logout(ctx); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Logged out. Local data is kept.")
}
