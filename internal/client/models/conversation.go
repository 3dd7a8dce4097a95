// Package models defines the client-side entity types of the VeilChat core.
package models

// ConversationStatus is the approval state of a conversation.
type ConversationStatus string

const (
	StatusPendingSent     ConversationStatus = "pending_sent"
	StatusPendingApproval ConversationStatus = "pending_approval"
	StatusApproved        ConversationStatus = "approved"
	StatusRejected        ConversationStatus = "rejected"
)

// Conversation is a secured thread between participants. The primary code is
// never part of this model: codes live only in the access controller's
// in-memory cache and are excluded from any persistence.
type Conversation struct {
	ID                  string             `json:"id"`
	Participants        []string           `json:"participants"`
	Status              ConversationStatus `json:"status"`
	PrimaryCodeVerified bool               `json:"-"`
}
