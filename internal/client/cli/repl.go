package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	Open(ctx context.Context, conversationID string) error
	Messages(ctx context.Context) error
	Unlock(ctx context.Context, messageID string) error
	Relock(ctx context.Context, messageID string) error
	Approve(ctx context.Context, conversationID string) error
	Reject(ctx context.Context, conversationID string) error
	Request(ctx context.Context, targetUserID string) error
	Duress(ctx context.Context, scanner *bufio.Scanner) error
}

// runREPL starts a simple read-eval-print loop for the VeilChat CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help            — show available commands
//	  - register        — create an account
//	  - login           — authenticate
//	  - exit | quit     — leave the program
//
//	Logged in:
//	  - help            — show available commands
//	  - list            — list conversations
//	  - open <id>       — open a conversation (prompts for the primary code)
//	  - messages        — show the open conversation's messages
//	  - unlock <id>     — verify a secondary code and reveal a locked message
//	  - relock <id>     — lock a revealed message again
//	  - approve <id>    — accept a pending conversation (prompts for a code)
//	  - reject <id>     — decline a pending conversation
//	  - request <user>  — ask another user for a conversation
//	  - duress          — swap the screen for a disguise
//	  - logout          — log out
//	  - exit | quit     — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// report their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("vc> %s ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, open <id>, (m)essages, unlock <id>, relock <id>, approve <id>, reject <id>, request <user>, duress, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "open":
			if len(args) == 0 {
				printlnFn("Usage: open <conversation-id>")
				continue
			}
			_ = a.Open(ctx, args[0])

		case "m", "messages":
			_ = a.Messages(ctx)

		case "unlock":
			if len(args) == 0 {
				printlnFn("Usage: unlock <message-id>")
				continue
			}
			_ = a.Unlock(ctx, args[0])

		case "relock":
			if len(args) == 0 {
				printlnFn("Usage: relock <message-id>")
				continue
			}
			_ = a.Relock(ctx, args[0])

		case "approve":
			if len(args) == 0 {
				printlnFn("Usage: approve <conversation-id>")
				continue
			}
			_ = a.Approve(ctx, args[0])

		case "reject":
			if len(args) == 0 {
				printlnFn("Usage: reject <conversation-id>")
				continue
			}
			_ = a.Reject(ctx, args[0])

		case "request":
			if len(args) == 0 {
				printlnFn("Usage: request <user-id>")
				continue
			}
			_ = a.Request(ctx, args[0])

		case "duress":
			_ = a.Duress(ctx, scanner)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
