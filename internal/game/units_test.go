package game

import (
	"math"
	"testing"
)

func TestToSmallest(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"1", 1_000_000_000, false},
		{"1.5", 1_500_000_000, false},
		{"0.000000001", 1, false},
		{"0.0000000019", 1, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"100000000000", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToSmallest(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToSmallest(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ToSmallest(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromSmallest(t *testing.T) {
	if got := FromSmallest(2_500_000_000).String(); got != "2.5" {
		t.Errorf("FromSmallest() = %s, want 2.5", got)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(1_234_500_000_000); got != "1,234.50 OCT" {
		t.Errorf("FormatAmount() = %q", got)
	}
}

func TestMultipliers(t *testing.T) {
	if got := FormatMultiplier(250); got != "2.50x" {
		t.Errorf("FormatMultiplier(250) = %q", got)
	}
	if got := FormatMultiplier(100); got != "1.00x" {
		t.Errorf("FormatMultiplier(100) = %q", got)
	}

	m, err := ParseMultiplier("2.5")
	if err != nil || m != 250 {
		t.Errorf("ParseMultiplier(2.5) = %d, %v", m, err)
	}
	if _, err := ParseMultiplier("0.99"); err == nil {
		t.Error("ParseMultiplier(0.99) should fail")
	}

	if got := ApplyMultiplier(1_000_000_000, 250); got != 2_500_000_000 {
		t.Errorf("ApplyMultiplier() = %d", got)
	}
	if got := ApplyMultiplier(3, 150); got != 4 {
		t.Errorf("ApplyMultiplier() floors, got %d", got)
	}
}

func TestApplyPayout(t *testing.T) {
	tests := []struct {
		name   string
		amount uint64
		payout uint64
		want   uint64
	}{
		{"loss", 1_000_000_000, 0, 0},
		{"royal flush", 1_000_000_000, 800, 800_000_000_000},
		{"saturates", math.MaxUint64 / 2, 800, math.MaxUint64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyPayout(tt.amount, tt.payout); got != tt.want {
				t.Errorf("ApplyPayout(%d, %d) = %d, want %d", tt.amount, tt.payout, got, tt.want)
			}
		})
	}
}
