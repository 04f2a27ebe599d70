package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestGrossText_KeepsTrailingZeros(t *testing.T) {
	gross, err := decimal.NewFromString("12.750")
	if err != nil {
		t.Fatal(err)
	}
	r := Record{Gross: gross}
	if got := r.GrossText(); got != "12.750" {
		t.Fatalf("expected 12.750, got %q", got)
	}
}

func TestGrossText_Integer(t *testing.T) {
	gross, err := decimal.NewFromString("2")
	if err != nil {
		t.Fatal(err)
	}
	r := Record{Gross: gross}
	if got := r.GrossText(); got != "2" {
		t.Fatalf("expected 2, got %q", got)
	}
}

func TestGrossText_SingleDecimal(t *testing.T) {
	gross, err := decimal.NewFromString("3.5")
	if err != nil {
		t.Fatal(err)
	}
	r := Record{Gross: gross}
	if got := r.GrossText(); got != "3.5" {
		t.Fatalf("expected 3.5, got %q", got)
	}
}
