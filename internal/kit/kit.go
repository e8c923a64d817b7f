package kit

import "context"

// Package kit holds the transport-neutral types shared between the core,
// the services and the chat adapter. Nothing here may import telebot.

type UpdateKind int

const (
	UpdateMessage UpdateKind = iota
	UpdateCallback
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int
	FromID       int64
	FromUsername string
	Text         string
}

type Callback struct {
	ID        string
	ChatID    int64
	ThreadID  int
	FromID    int64
	MessageID int
	Data      string
}

// ChatTarget addresses a chat, optionally a specific topic/thread inside it.
type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// MessageRef identifies a sent message so follow-ups (e.g. an answer thread)
// can reference it.
type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type BotCommand struct {
	Command     string
	Description string
}

// Adapter is the transport the bot speaks through.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)

	// CreateAnswerThread opens a discussion thread anchored at ref.
	// Best-effort: callers are expected to ignore failures.
	CreateAnswerThread(ctx context.Context, ref MessageRef, name string) error

	// UpdateMenuCommands updates the bot's global command menu.
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
