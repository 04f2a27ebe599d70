package ingest

import (
	"context"
	"testing"

	"lotbot/internal/domain"
)

func TestBuild_MissingRequiredColumnIsFatal(t *testing.T) {
	sink := newFakeSink()
	delete(sink.header, domain.ColGross)

	_, err := Build(context.Background(), BootstrapConfig{
		Sink:          sink,
		Ledger:        &fakeLedger{},
		Resolver:      testResolver(),
		Authoritative: "laba",
		Timezone:      "Europe/Warsaw",
		Logger:        testLogger(),
	})
	if err == nil {
		t.Fatal("expected error for missing required column")
	}
}

func TestBuild_InvalidTimezoneIsFatal(t *testing.T) {
	_, err := Build(context.Background(), BootstrapConfig{
		Sink:          newFakeSink(),
		Ledger:        &fakeLedger{},
		Resolver:      testResolver(),
		Authoritative: "laba",
		Timezone:      "Mars/Olympus",
		Logger:        testLogger(),
	})
	if err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestBuild_SeedsCacheFromExistingRows(t *testing.T) {
	sink := newFakeSink()
	sink.rows = []map[string]string{
		seedRow("laba", "A12345", "Premium"),
		seedRow("pakowanie", "B22222", "Ignored"),
	}

	p, err := Build(context.Background(), BootstrapConfig{
		Sink:          sink,
		Ledger:        &fakeLedger{},
		Resolver:      testResolver(),
		Authoritative: "laba",
		Timezone:      "Europe/Warsaw",
		Logger:        testLogger(),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// A non-authoritative message for the seeded lot resolves its category.
	if err := p.Handle(context.Background(), message(1, packTopic, "A12345 2.5")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := sink.appended[0][domain.ColCategory]; got != "Premium" {
		t.Fatalf("expected seeded category, got %q", got)
	}
}
