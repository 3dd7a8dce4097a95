package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/veilchat/veilchat/internal/client/api"
	"github.com/veilchat/veilchat/internal/client/config"
	"github.com/veilchat/veilchat/internal/client/services"
	"github.com/veilchat/veilchat/internal/client/vault"
	"github.com/veilchat/veilchat/internal/common"
	"github.com/veilchat/veilchat/internal/logging"

	_ "modernc.org/sqlite"
)

// App wires the controllers to an interactive terminal session.
type App struct {
	config *config.Config
	core   *services.Core
	log    logging.Logger
	reader *bufio.Reader

	// The conversation currently open in the REPL. Mirrors the access
	// controller's active conversation; cleared by the logout cascade.
	activeConv string
}

// NewApp opens the local vault (prompting for its passphrase), builds the
// HTTP client and the controller core, and returns the ready-to-run app.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	passphrase, err := GetPassword(os.Stdout, "Enter vault passphrase")
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(passphrase)

	vlt, err := vault.Open(ctx, cfg.VaultPath, passphrase)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}

	client := api.NewHTTPClient(cfg.ServerURL, cfg.RequestTimeout)

	events := &notifier{}
	core := services.NewCore(client, vlt, log, events, services.Options{
		SessionPollInterval: cfg.SessionPollInterval,
		RelockSweepInterval: cfg.RelockSweepInterval,
	})
	events.setDisguiseCheck(core.Duress.Active)

	a := &App{
		config: cfg,
		core:   core,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
	}
	core.Sessions.OnLogout(func() { a.activeConv = "" })
	return a, nil
}

func (a *App) isLoggedIn() bool {
	return a.core.Sessions.LoggedIn()
}

func (a *App) getStatus() string {
	s := a.core.Sessions.Session()
	if s == nil {
		return ""
	}
	status := s.User.Username
	if a.activeConv != "" {
		status += ":" + a.activeConv
	}
	return fmt.Sprintf("(%s)", status)
}

// Run restores any persisted session, then hands control to the REPL until
// the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer a.core.Close()

	if ok, err := a.core.Restore(ctx); err != nil {
		a.log.Warn(ctx, "session restore failed", "error", err)
	} else if ok {
		fmt.Printf("Welcome back, %s.\n", a.core.Sessions.Session().User.Username)
	}

	fmt.Println("VeilChat CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
