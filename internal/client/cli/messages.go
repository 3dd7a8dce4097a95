package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/veilchat/veilchat/internal/client/services"
	"github.com/veilchat/veilchat/internal/common"
)

// Unlock verifies a secondary code for one message and reveals its content.
// Verification and the content fetch are separate backend calls; the reveal
// lasts until the unlock window elapses or the message is relocked by hand.
func (a *App) Unlock(ctx context.Context, messageID string) error {
	if a.activeConv == "" {
		fmt.Println("No conversation open. Use 'open <id>' first.")
		return common.ErrInvalidState
	}

	code, err := GetCode(a.reader, "Enter message code", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.core.Messages.VerifySecondary(ctx, a.activeConv, messageID, code); err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCode):
			fmt.Printf("Wrong code (attempt %d of %d).\n",
				a.core.Messages.Attempts(messageID), services.MaxSecondaryAttempts)
		case errors.Is(err, common.ErrMissingPrimaryContext):
			fmt.Println("Unlock the conversation first.")
		default:
			fmt.Printf("Verification failed: %s\n", err)
		}
		return err
	}

	content, err := a.core.Messages.FetchUnlocked(ctx, a.activeConv, messageID, code)
	if err != nil {
		fmt.Printf("Could not fetch the message: %s\n", err)
		return err
	}

	fmt.Printf("  %s  %s\n", messageID, content.Content)
	if content.TranslatedContent != "" {
		fmt.Printf("      (%s)\n", content.TranslatedContent)
	}
	return nil
}

// Relock hides a revealed message immediately instead of waiting out the
// unlock window.
func (a *App) Relock(ctx context.Context, messageID string) error {
	a.core.Messages.ManualRelock(ctx, messageID)
	return nil
}
