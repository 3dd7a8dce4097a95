package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/veilchat/veilchat/internal/client/models"
	"github.com/veilchat/veilchat/internal/client/services"
	"github.com/veilchat/veilchat/internal/common"
)

// List prints the conversation list with approval and unlock states.
func (a *App) List(ctx context.Context) error {
	convs, err := a.core.Conversations.RefreshList(ctx)
	if err != nil {
		fmt.Printf("Could not load conversations: %s\n", err)
		return err
	}
	if len(convs) == 0 {
		fmt.Println("No conversations yet. Use 'request <user>' to start one.")
		return nil
	}

	for _, c := range convs {
		lock := "locked"
		if a.core.Conversations.State(c.ID) == services.ConvUnlocked {
			lock = "unlocked"
		}
		fmt.Printf("  %s  [%s, %s]  %s\n", c.ID, c.Status, lock, strings.Join(c.Participants, ", "))
	}
	return nil
}

// Open makes a conversation the active one and unlocks it. If no code is
// cached yet the user is prompted for the primary code; a verified code stays
// cached until the conversation is switched or the session ends.
func (a *App) Open(ctx context.Context, conversationID string) error {
	a.core.Conversations.SetActive(conversationID)
	a.activeConv = conversationID

	if a.core.Conversations.State(conversationID) != services.ConvUnlocked {
		code, err := GetCode(a.reader, "Enter conversation code", os.Stdout)
		if err != nil {
			return err
		}
		if err := a.core.Conversations.VerifyPrimaryCode(ctx, conversationID, code); err != nil {
			if errors.Is(err, common.ErrInvalidCode) {
				fmt.Printf("Wrong code (%d failed so far).\n", a.core.Conversations.Attempts(conversationID))
			} else {
				fmt.Printf("Verification failed: %s\n", err)
			}
			return err
		}
	}

	return a.Messages(ctx)
}

// Messages prints the active conversation's message list, with unlocked
// content substituted where a secondary code has been verified.
func (a *App) Messages(ctx context.Context) error {
	if a.activeConv == "" {
		fmt.Println("No conversation open. Use 'open <id>' first.")
		return common.ErrInvalidState
	}

	msgs, err := a.core.Conversations.FetchMessages(ctx, a.activeConv)
	if err != nil {
		if errors.Is(err, common.ErrInvalidAccess) {
			fmt.Println("Access to this conversation was revoked.")
		} else {
			fmt.Printf("Could not load messages: %s\n", err)
		}
		return err
	}

	views := a.core.Messages.Decorate(toViews(msgs))
	for _, v := range views {
		marker := " "
		if v.Locked && !v.Unlocked {
			marker = "*"
		}
		fmt.Printf("  %s %s  %s\n", marker, v.ID, v.Content)
	}
	return nil
}

func toViews(msgs []models.Message) []services.MessageView {
	views := make([]services.MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, services.MessageView{
			ID:      msgs[i].ID,
			Content: msgs[i].Content,
			Locked:  msgs[i].Locked(),
		})
	}
	return views
}

// Approve accepts a pending conversation. The user chooses the primary code
// and confirms it; a mismatch never leaves the client.
func (a *App) Approve(ctx context.Context, conversationID string) error {
	code, err := GetCode(a.reader, "Choose a conversation code", os.Stdout)
	if err != nil {
		return err
	}
	confirm, err := GetCode(a.reader, "Confirm the code", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.core.Conversations.Approve(ctx, conversationID, code, confirm); err != nil {
		if errors.Is(err, common.ErrCodeMismatch) {
			fmt.Println("Codes do not match.")
		} else {
			fmt.Printf("Approve failed: %s\n", err)
		}
		return err
	}

	fmt.Println("Conversation approved.")
	return nil
}

// Reject declines a pending conversation.
func (a *App) Reject(ctx context.Context, conversationID string) error {
	if err := a.core.Conversations.Reject(ctx, conversationID); err != nil {
		fmt.Printf("Reject failed: %s\n", err)
		return err
	}
	fmt.Println("Conversation rejected.")
	return nil
}

// Request asks another user for a new conversation.
func (a *App) Request(ctx context.Context, targetUserID string) error {
	conv, err := a.core.Conversations.Request(ctx, targetUserID)
	if err != nil {
		fmt.Printf("Request failed: %s\n", err)
		return err
	}
	fmt.Printf("Requested conversation %s with %s. Waiting for approval.\n", conv.ID, targetUserID)
	return nil
}
