package game

import "testing"

func TestMultiplierClock_ReachesCrashPointExactly(t *testing.T) {
	clock := NewMultiplierClock(250)

	for i := 1; i < 150; i++ {
		v, crashed := clock.Tick()
		if crashed {
			t.Fatalf("crashed early at tick %d (value %d)", i, v)
		}
		if v != uint64(100+i) {
			t.Fatalf("tick %d: value = %d, want %d", i, v, 100+i)
		}
	}

	v, crashed := clock.Tick()
	if !crashed || v != 250 {
		t.Fatalf("tick 150: got (%d, %v), want (250, true)", v, crashed)
	}

	// stopped clocks stay at the crash point
	for i := 0; i < 10; i++ {
		if v, _ := clock.Tick(); v != 250 {
			t.Fatalf("value after crash = %d, want 250", v)
		}
	}
}

func TestMultiplierClock_NeverOvershoots(t *testing.T) {
	tests := []struct {
		name       string
		crashPoint uint64
	}{
		{"instant crash", 100},
		{"below base", 50},
		{"just above base", 101},
		{"large", 1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewMultiplierClock(tt.crashPoint)
			for i := 0; i < 2000; i++ {
				v, crashed := clock.Tick()
				if v > tt.crashPoint && tt.crashPoint >= BaseMultiplier {
					t.Fatalf("value %d exceeds crash point %d", v, tt.crashPoint)
				}
				if crashed {
					if v != tt.crashPoint {
						t.Fatalf("final value = %d, want %d", v, tt.crashPoint)
					}
					return
				}
			}
			t.Fatal("clock never crashed")
		})
	}
}
