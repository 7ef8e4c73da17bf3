package domain

import (
	"context"
	"time"
)

// ConversationStep enumerates the questions of the registration chat, in order.
type ConversationStep string

const (
	StepKind        ConversationStep = "kind"
	StepName        ConversationStep = "name"
	StepSurname     ConversationStep = "surname"
	StepPhone       ConversationStep = "phone"
	StepPackageSize ConversationStep = "package_size"
	StepSlots       ConversationStep = "slots"
	StepWeekday     ConversationStep = "weekday"
	StepTime        ConversationStep = "time"
	StepConfirm     ConversationStep = "confirm"
	StepDone        ConversationStep = "done"
)

type ConversationRepository interface {
	// LoadConversation returns nil fields when the session does not exist.
	LoadConversation(ctx context.Context, session string) (map[string]string, error)
	SaveConversation(ctx context.Context, session string, fields map[string]string, ttl time.Duration) error
	DeleteConversation(ctx context.Context, session string) error
}

type ConversationReply struct {
	Session string            `json:"session"`
	Step    ConversationStep  `json:"step"`
	Prompt  string            `json:"prompt"`
	Fields  map[string]string `json:"fields"`
	Done    bool              `json:"done"`
	Result  interface{}       `json:"result,omitempty"`
	Errors  []string          `json:"errors,omitempty"`
}

type ConversationUseCase interface {
	Step(ctx context.Context, session string, input map[string]string) (*ConversationReply, error)
}
