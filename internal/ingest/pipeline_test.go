package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"lotbot/internal/domain"
)

// --- fakes ---

type fakeSink struct {
	header   map[string]int
	rows     []map[string]string // existing rows, returned by ReadRowsForCache
	appended []map[string]string
	failNext error
}

func newFakeSink() *fakeSink {
	header := make(map[string]int, len(domain.RequiredColumns))
	for i, name := range domain.RequiredColumns {
		header[name] = i
	}
	return &fakeSink{header: header}
}

func (f *fakeSink) ReadHeaderMap(ctx context.Context) (map[string]int, error) {
	return f.header, nil
}

func (f *fakeSink) AppendRow(ctx context.Context, values map[string]string, header map[string]int) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.appended = append(f.appended, values)
	return nil
}

func (f *fakeSink) ReadRowsForCache(ctx context.Context) ([]map[string]string, error) {
	return f.rows, nil
}

type fakeLedger struct {
	entries []domain.MessageIdentity
	failing bool
}

func (f *fakeLedger) Load(ctx context.Context) ([]domain.MessageIdentity, error) {
	return f.entries, nil
}

func (f *fakeLedger) Append(ctx context.Context, id domain.MessageIdentity) error {
	if f.failing {
		return errors.New("ledger unavailable")
	}
	f.entries = append(f.entries, id)
	return nil
}

func (f *fakeLedger) Close() error { return nil }

type fakeResolver map[[2]int64]string

func (f fakeResolver) Resolve(chatID int64, topicID int64, hasTopic bool) (string, bool) {
	if !hasTopic {
		topicID = -1
	}
	name, ok := f[[2]int64{chatID, topicID}]
	return name, ok
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

const (
	testChat  = int64(-100123)
	labaTopic = int64(78)
	packTopic = int64(34)
)

func testResolver() fakeResolver {
	return fakeResolver{
		{testChat, labaTopic}: "laba",
		{testChat, packTopic}: "pakowanie",
	}
}

type fixture struct {
	pipeline *Pipeline
	sink     *fakeSink
	ledger   *fakeLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sink := newFakeSink()
	ledger := &fakeLedger{}
	p, err := Build(context.Background(), BootstrapConfig{
		Sink:          sink,
		Ledger:        ledger,
		Resolver:      testResolver(),
		Authoritative: "laba",
		Timezone:      "Europe/Warsaw",
		Logger:        testLogger(),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return &fixture{pipeline: p, sink: sink, ledger: ledger}
}

func message(id int, topicID int64, text string) domain.IncomingMessage {
	return domain.IncomingMessage{
		ChatID:    testChat,
		MessageID: id,
		TopicID:   topicID,
		HasTopic:  true,
		Text:      text,
		Date:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// --- scenarios ---

func TestHandle_AuthoritativeMessageAppendsRow(t *testing.T) {
	f := newFixture(t)

	err := f.pipeline.Handle(context.Background(), message(1, labaTopic, "A12345 kat: Premium 3.5 kg batch run"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.sink.appended) != 1 {
		t.Fatalf("expected 1 row, got %d", len(f.sink.appended))
	}

	row := f.sink.appended[0]
	if row[domain.ColLot] != "A12345" {
		t.Errorf("lot: got %q", row[domain.ColLot])
	}
	if row[domain.ColGross] != "3.5" {
		t.Errorf("gross: got %q", row[domain.ColGross])
	}
	if row[domain.ColCategory] != "Premium 3.5 kg batch run" {
		t.Errorf("category: got %q", row[domain.ColCategory])
	}
	if row[domain.ColSection] != "laba" {
		t.Errorf("section: got %q", row[domain.ColSection])
	}
	// Warsaw is UTC+1 on 1 March.
	if row[domain.ColTimestamp] != "01.03.2024 11:00:00" {
		t.Errorf("timestamp: got %q", row[domain.ColTimestamp])
	}
	if len(f.ledger.entries) != 1 {
		t.Fatalf("identity not recorded: %v", f.ledger.entries)
	}
}

func TestHandle_DescriptorExcludesLotAndQuantity(t *testing.T) {
	f := newFixture(t)

	if err := f.pipeline.Handle(context.Background(), message(1, packTopic, "A12345 tyton gruby 12,750 kg")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	row := f.sink.appended[0]
	if row[domain.ColDescriptor] != "tyton gruby  kg" {
		t.Errorf("descriptor: got %q", row[domain.ColDescriptor])
	}
	if row[domain.ColGross] != "12.750" {
		t.Errorf("comma quantity must keep its precision: got %q", row[domain.ColGross])
	}
}

func TestHandle_DropNoLot(t *testing.T) {
	f := newFixture(t)
	if err := f.pipeline.Handle(context.Background(), message(1, labaTopic, "no lot or number here")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.sink.appended) != 0 || len(f.ledger.entries) != 0 {
		t.Fatal("drop must leave no side effects")
	}
}

func TestHandle_DropNoQuantity(t *testing.T) {
	f := newFixture(t)
	if err := f.pipeline.Handle(context.Background(), message(1, labaTopic, "A99999")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.sink.appended) != 0 {
		t.Fatal("expected drop for missing quantity")
	}
}

func TestHandle_DropUnknownSection(t *testing.T) {
	f := newFixture(t)
	msg := message(1, int64(999), "A12345 3.5")
	if err := f.pipeline.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.sink.appended) != 0 || len(f.ledger.entries) != 0 {
		t.Fatal("unknown section must never reach the sink")
	}
}

func TestHandle_Idempotent(t *testing.T) {
	f := newFixture(t)
	msg := message(1, labaTopic, "A12345 kat: Premium 3.5")

	if err := f.pipeline.Handle(context.Background(), msg); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if err := f.pipeline.Handle(context.Background(), msg); err != nil {
		t.Fatalf("second handle: %v", err)
	}
	if len(f.sink.appended) != 1 {
		t.Fatalf("expected exactly 1 row, got %d", len(f.sink.appended))
	}
	if len(f.ledger.entries) != 1 {
		t.Fatalf("expected exactly 1 ledger entry, got %d", len(f.ledger.entries))
	}
}

func TestHandle_SeenIdentitiesSurviveRestart(t *testing.T) {
	sink := newFakeSink()
	ledger := &fakeLedger{entries: []domain.MessageIdentity{{ChatID: testChat, MessageID: 5}}}
	p, err := Build(context.Background(), BootstrapConfig{
		Sink:          sink,
		Ledger:        ledger,
		Resolver:      testResolver(),
		Authoritative: "laba",
		Timezone:      "Europe/Warsaw",
		Logger:        testLogger(),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if err := p.Handle(context.Background(), message(5, labaTopic, "A12345 3.5")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.appended) != 0 {
		t.Fatal("identity loaded from the ledger must still dedup")
	}
}

func TestHandle_CategoryBackfill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Authoritative message teaches the cache.
	if err := f.pipeline.Handle(ctx, message(1, labaTopic, "A12345 kat: Premium 3.5")); err != nil {
		t.Fatalf("authoritative handle: %v", err)
	}
	// Non-authoritative message with the same lot and no explicit category.
	if err := f.pipeline.Handle(ctx, message(2, packTopic, "A12345 7.25 worki")); err != nil {
		t.Fatalf("backfill handle: %v", err)
	}

	row := f.sink.appended[1]
	if row[domain.ColCategory] != "Premium 3.5" {
		t.Fatalf("expected back-filled category, got %q", row[domain.ColCategory])
	}
}

func TestHandle_NonAuthoritativeUnknownLotAppendsEmptyCategory(t *testing.T) {
	f := newFixture(t)
	if err := f.pipeline.Handle(context.Background(), message(1, packTopic, "B77777 4.0 worki")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.sink.appended) != 1 {
		t.Fatal("row must still be appended with empty category")
	}
	if got := f.sink.appended[0][domain.ColCategory]; got != "" {
		t.Fatalf("expected empty category, got %q", got)
	}
}

func TestHandle_AuthoritativeEmptyCategoryDoesNotPoisonCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.pipeline.Handle(ctx, message(1, labaTopic, "A12345 kat: Premium 3.5")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	// Authoritative message without a label leaves the cache entry alone.
	if err := f.pipeline.Handle(ctx, message(2, labaTopic, "A12345 9.9 bez etykiety")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := f.pipeline.Handle(ctx, message(3, packTopic, "A12345 1.0")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if got := f.sink.appended[2][domain.ColCategory]; got != "Premium 3.5" {
		t.Fatalf("cache entry should survive, got %q", got)
	}
}

func TestHandle_AuthoritativeOverwritesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.pipeline.Handle(ctx, message(1, labaTopic, "A12345 kat: Premium 3.5"))
	f.pipeline.Handle(ctx, message(2, labaTopic, "A12345 kat: Standard 4.5"))
	f.pipeline.Handle(ctx, message(3, packTopic, "A12345 1.0"))

	if got := f.sink.appended[2][domain.ColCategory]; got != "Standard 4.5" {
		t.Fatalf("latest authoritative category wins, got %q", got)
	}
}

func TestHandle_SinkFailurePropagatesAndRecordsNothing(t *testing.T) {
	f := newFixture(t)
	f.sink.failNext = errors.New("sheet unavailable")
	msg := message(1, labaTopic, "A12345 3.5")

	if err := f.pipeline.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected sink failure to propagate")
	}
	if len(f.ledger.entries) != 0 {
		t.Fatal("a failed append must not record the identity")
	}

	// Redelivery after the failure succeeds and appends exactly once.
	if err := f.pipeline.Handle(context.Background(), msg); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(f.sink.appended) != 1 || len(f.ledger.entries) != 1 {
		t.Fatalf("expected one row and one entry, got %d/%d", len(f.sink.appended), len(f.ledger.entries))
	}
}

func TestHandle_LedgerFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.ledger.failing = true

	err := f.pipeline.Handle(context.Background(), message(1, labaTopic, "A12345 3.5"))
	if err == nil {
		t.Fatal("expected ledger failure to propagate")
	}
}

func TestHandle_PhotoMarkerInComments(t *testing.T) {
	f := newFixture(t)
	msg := message(1, labaTopic, "A12345 3.5")
	msg.HasPhoto = true

	if err := f.pipeline.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.sink.appended[0][domain.ColComments]; got != "A12345 3.5 photo:yes" {
		t.Fatalf("comments: got %q", got)
	}
}

func TestHandle_CommentsWithoutPhotoAreRawText(t *testing.T) {
	f := newFixture(t)
	msg := message(1, labaTopic, "A12345 3.5 uwagi")

	if err := f.pipeline.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.sink.appended[0][domain.ColComments]; got != "A12345 3.5 uwagi" {
		t.Fatalf("comments: got %q", got)
	}
}
