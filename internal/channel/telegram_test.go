package channel

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func baseMessage() *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 42,
		Chat:      &tgbotapi.Chat{ID: -100123},
		Date:      1709287200, // 2024-03-01 10:00:00 UTC
		Text:      "A12345 3.5",
	}
}

func TestMapMessage_Text(t *testing.T) {
	msg, ok := MapMessage(baseMessage())
	if !ok {
		t.Fatal("expected a mapped message")
	}
	if msg.ChatID != -100123 || msg.MessageID != 42 {
		t.Fatalf("identity mismatch: %+v", msg)
	}
	if msg.Text != "A12345 3.5" {
		t.Fatalf("text: got %q", msg.Text)
	}
	if !msg.Date.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("date: got %v", msg.Date)
	}
	if msg.HasTopic {
		t.Fatal("plain message has no topic")
	}
}

func TestMapMessage_CaptionFallback(t *testing.T) {
	m := baseMessage()
	m.Text = ""
	m.Caption = "A12345 3.5 podpis"
	m.Photo = []tgbotapi.PhotoSize{{FileID: "x"}}

	msg, ok := MapMessage(m)
	if !ok {
		t.Fatal("expected a mapped message")
	}
	if msg.Text != "A12345 3.5 podpis" {
		t.Fatalf("caption should become the text, got %q", msg.Text)
	}
	if !msg.HasPhoto {
		t.Fatal("photo flag missing")
	}
}

func TestMapMessage_TopicFromRootReference(t *testing.T) {
	m := baseMessage()
	m.ReplyToMessage = &tgbotapi.Message{MessageID: 78}

	msg, ok := MapMessage(m)
	if !ok {
		t.Fatal("expected a mapped message")
	}
	if !msg.HasTopic || msg.TopicID != 78 {
		t.Fatalf("topic mismatch: HasTopic=%v TopicID=%d", msg.HasTopic, msg.TopicID)
	}
}

func TestMapMessage_ServiceMessageSkipped(t *testing.T) {
	m := baseMessage()
	m.Text = ""

	if _, ok := MapMessage(m); ok {
		t.Fatal("empty message without photo must be skipped")
	}
}

func TestMapMessage_PhotoWithoutCaption(t *testing.T) {
	m := baseMessage()
	m.Text = ""
	m.Photo = []tgbotapi.PhotoSize{{FileID: "x"}}

	msg, ok := MapMessage(m)
	if !ok {
		t.Fatal("bare photo is still a message")
	}
	if msg.Text != "" || !msg.HasPhoto {
		t.Fatalf("unexpected mapping: %+v", msg)
	}
}
