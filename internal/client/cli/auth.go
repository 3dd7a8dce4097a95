package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/veilchat/veilchat/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for a username and password and attempts to
// create a new account. Registering does not log the user in.
//
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.core.Register(ctx, username, string(password)); err != nil {
		fmt.Printf("Registration failed: %s\n", err)
		return err
	}

	fmt.Println("Account created. You can log in now.")
	return nil
}

// Login prompts for credentials and starts a session. On success the session
// is persisted to the vault and the background timers start.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.core.Login(ctx, username, string(password)); err != nil {
		fmt.Printf("Login failed: %s\n", err)
		return err
	}

	s := a.core.Sessions.Session()
	fmt.Printf("Logged in as %s. Session valid until %s.\n",
		s.User.Username, s.ExpiresAt.Local().Format("15:04:05"))
	return nil
}

// Logout tears the session down. Cached codes, unlocked messages, and duress
// state all go with it.
func (a *App) Logout(ctx context.Context) error {
	a.core.Logout(ctx)
	fmt.Println("Logged out.")
	return nil
}
