package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomingMessage is one inbound chat message, built once by the channel
// adapter and consumed once by the pipeline.
type IncomingMessage struct {
	ChatID    int64
	MessageID int
	TopicID   int64
	HasTopic  bool
	Text      string
	Date      time.Time // UTC
	HasPhoto  bool
}

// Identity returns the dedup key for the message.
func (m IncomingMessage) Identity() MessageIdentity {
	return MessageIdentity{ChatID: m.ChatID, MessageID: m.MessageID}
}

// MessageIdentity is the (chat, message) pair that guarantees at-most-one
// appended row per source message. Comparable, used as a set element.
type MessageIdentity struct {
	ChatID    int64
	MessageID int
}

// Record holds the fields extracted from one accepted message.
type Record struct {
	Lot        string
	Gross      decimal.Decimal
	Descriptor string
	Category   string // empty when neither the message nor the cache supplied one
}

// GrossText renders the gross quantity as plain fixed-point text at the
// value's own precision. Decimal.String trims trailing zeros, which would
// turn a written 12.750 into 12.75; the exponent keeps the precision the
// sender wrote.
func (r Record) GrossText() string {
	if exp := r.Gross.Exponent(); exp < 0 {
		return r.Gross.StringFixed(-exp)
	}
	return r.Gross.String()
}
