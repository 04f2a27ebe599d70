// Package ingest turns inbound chat messages into appended sheet rows with
// at-most-once bookkeeping.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lotbot/internal/domain"
	"lotbot/internal/metrics"
	"lotbot/internal/parse"
)

// photoMarker is appended to the comments column when the message carried
// a photo.
const photoMarker = "photo:yes"

const timestampLayout = "02.01.2006 15:04:05"

// Drop reasons, used for logging and the drop counter.
const (
	dropAlreadyProcessed = "already_processed"
	dropUnknownSection   = "unknown_section"
	dropNoLot            = "no_lot"
	dropNoQuantity       = "no_quantity"
)

// PipelineConfig wires a Pipeline. Header and Seen come from Build, which
// validates them against the live sheet and ledger.
type PipelineConfig struct {
	Sink          domain.RowSink
	Ledger        domain.DedupStore
	Resolver      domain.SectionResolver
	Cache         *CategoryCache
	Header        map[string]int
	Seen          []domain.MessageIdentity
	Authoritative string
	Location      *time.Location
	Logger        *slog.Logger
	Metrics       *metrics.Registry
}

// Pipeline applies the per-message decision sequence: dedup check, section
// resolution, field extraction, category resolution, row append, ledger
// record, cache update. One message is fully handled before the next; the
// mutex keeps that true even if the delivery layer ever parallelizes.
type Pipeline struct {
	mu sync.Mutex

	sink          domain.RowSink
	ledger        domain.DedupStore
	resolver      domain.SectionResolver
	cache         *CategoryCache
	header        map[string]int
	seen          map[domain.MessageIdentity]struct{}
	authoritative string
	location      *time.Location
	logger        *slog.Logger

	rowsAppended *metrics.Counter
	registry     *metrics.Registry
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New("lotbot")
	}
	seen := make(map[domain.MessageIdentity]struct{}, len(cfg.Seen))
	for _, id := range cfg.Seen {
		seen[id] = struct{}{}
	}
	return &Pipeline{
		sink:          cfg.Sink,
		ledger:        cfg.Ledger,
		resolver:      cfg.Resolver,
		cache:         cfg.Cache,
		header:        cfg.Header,
		seen:          seen,
		authoritative: cfg.Authoritative,
		location:      cfg.Location,
		logger:        cfg.Logger,
		rowsAppended:  cfg.Metrics.Counter("lotbot_rows_appended_total", "Rows appended to the log sheet."),
		registry:      cfg.Metrics,
	}
}

// Handle processes one message. A drop decision returns nil; only sink or
// ledger failures return an error, and those leave no partial bookkeeping:
// a failed append records nothing, so the message is retried whenever the
// delivery layer re-delivers it.
func (p *Pipeline) Handle(ctx context.Context, msg domain.IncomingMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := msg.Identity()
	if _, ok := p.seen[id]; ok {
		p.drop(dropAlreadyProcessed, msg)
		return nil
	}

	sec, ok := p.resolver.Resolve(msg.ChatID, msg.TopicID, msg.HasTopic)
	if !ok {
		p.drop(dropUnknownSection, msg)
		return nil
	}

	lot, ok := parse.ExtractLot(msg.Text)
	if !ok {
		p.drop(dropNoLot, msg)
		return nil
	}

	gross, ok := parse.ExtractQuantity(msg.Text)
	if !ok {
		p.drop(dropNoQuantity, msg)
		return nil
	}

	record := domain.Record{
		Lot:        lot,
		Gross:      gross,
		Descriptor: parse.ExtractDescriptor(msg.Text),
	}
	if sec == p.authoritative {
		record.Category = parse.ExtractCategory(msg.Text)
	} else {
		record.Category = p.cache.Lookup(lot)
	}

	values := p.buildValues(sec, msg, record)
	if err := p.sink.AppendRow(ctx, values, p.header); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	if err := p.ledger.Append(ctx, id); err != nil {
		return fmt.Errorf("record identity: %w", err)
	}
	p.seen[id] = struct{}{}

	if sec == p.authoritative && record.Category != "" {
		p.cache.Put(lot, record.Category)
	}

	p.rowsAppended.Inc()
	p.logger.Info("row appended",
		"message_id", msg.MessageID,
		"section", sec,
		"lot", lot,
	)
	return nil
}

func (p *Pipeline) buildValues(sec string, msg domain.IncomingMessage, record domain.Record) map[string]string {
	comments := msg.Text
	if msg.HasPhoto {
		comments = strings.TrimSpace(comments + " " + photoMarker)
	}
	return map[string]string{
		domain.ColTimestamp:  msg.Date.In(p.location).Format(timestampLayout),
		domain.ColSection:    sec,
		domain.ColLot:        record.Lot,
		domain.ColCategory:   record.Category,
		domain.ColDescriptor: record.Descriptor,
		domain.ColGross:      record.GrossText(),
		domain.ColComments:   comments,
	}
}

func (p *Pipeline) drop(reason string, msg domain.IncomingMessage) {
	p.registry.Counter("lotbot_messages_dropped_total", "Messages dropped before append.", "reason", reason).Inc()
	p.logger.Info("skip message",
		"reason", reason,
		"chat_id", msg.ChatID,
		"message_id", msg.MessageID,
	)
}
