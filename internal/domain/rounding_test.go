package domain

import "testing"

func TestRoundSeconds(t *testing.T) {
	tests := []struct {
		name        string
		increment   int64
		method      RoundingMethod
		rawSeconds  int64
		wantMinutes int64
	}{
		{"zero rounds to zero nearest", 6, RoundNearest, 0, 0},
		{"zero rounds to zero up", 6, RoundUp, 0, 0},
		{"zero rounds to zero down", 6, RoundDown, 0, 0},

		// 1h03m at a 6-minute increment sits exactly on the half boundary
		// and resolves to the even step: 1.0h, not 1.1h.
		{"half boundary resolves even", 6, RoundNearest, 3780, 60},
		// 1h04m12s (1.07h) is past the half and rounds to 1.1h.
		{"past half rounds up", 6, RoundNearest, 3852, 66},

		{"one second rounds up", 6, RoundUp, 1, 6},
		{"one second rounds down to zero", 6, RoundDown, 1, 0},
		{"one second nearest to zero", 6, RoundNearest, 1, 0},

		{"exact multiple unchanged nearest", 15, RoundNearest, 2700, 45},
		{"exact multiple unchanged up", 15, RoundUp, 2700, 45},
		{"exact multiple unchanged down", 15, RoundDown, 2700, 45},

		{"quarter hour up", 15, RoundUp, 901, 30},
		{"quarter hour down", 15, RoundDown, 1799, 15},
		{"half hour nearest below", 30, RoundNearest, 2699, 30},
		{"full hour up", 60, RoundUp, 3601, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRoundingPolicy(tt.increment, tt.method)
			got := p.RoundSeconds(tt.rawSeconds)
			if got != tt.wantMinutes {
				t.Fatalf("RoundSeconds(%d) = %d minutes, want %d", tt.rawSeconds, got, tt.wantMinutes)
			}
		})
	}
}

func TestRoundSecondsAlwaysMultipleOfIncrement(t *testing.T) {
	for _, inc := range ValidIncrements {
		for _, method := range []RoundingMethod{RoundNearest, RoundUp, RoundDown} {
			p := NewRoundingPolicy(inc, method)
			for raw := int64(0); raw < 4*3600; raw += 97 {
				got := p.RoundSeconds(raw)
				if got < 0 {
					t.Fatalf("negative result for raw=%d inc=%d method=%s", raw, inc, method)
				}
				if got%inc != 0 {
					t.Fatalf("result %d not a multiple of %d (raw=%d method=%s)", got, inc, raw, method)
				}
			}
		}
	}
}

func TestRoundSecondsIdempotent(t *testing.T) {
	for _, method := range []RoundingMethod{RoundNearest, RoundUp, RoundDown} {
		p := NewRoundingPolicy(6, method)
		for raw := int64(0); raw < 2*3600; raw += 61 {
			once := p.RoundSeconds(raw)
			twice := p.RoundSeconds(once * 60)
			if once != twice {
				t.Fatalf("not idempotent for raw=%d method=%s: %d then %d", raw, method, once, twice)
			}
		}
	}
}

func TestRoundSecondsMonotonicUpDown(t *testing.T) {
	for _, method := range []RoundingMethod{RoundUp, RoundDown} {
		p := NewRoundingPolicy(15, method)
		prev := int64(0)
		for raw := int64(0); raw < 3*3600; raw += 53 {
			got := p.RoundSeconds(raw)
			if got < prev {
				t.Fatalf("method %s not monotonic: raw=%d gave %d after %d", method, raw, got, prev)
			}
			prev = got
		}
	}
}

func TestRoundHours(t *testing.T) {
	p := NewRoundingPolicy(6, RoundNearest)
	if got := p.RoundHours(1.07); got != 1.1 {
		t.Fatalf("RoundHours(1.07) = %v, want 1.1", got)
	}
	if got := p.RoundHours(0); got != 0 {
		t.Fatalf("RoundHours(0) = %v, want 0", got)
	}
}

func TestRoundingPolicyValidate(t *testing.T) {
	if err := NewRoundingPolicy(6, RoundNearest).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := NewRoundingPolicy(7, RoundNearest).Validate(); err == nil {
		t.Fatal("expected error for invalid increment")
	}
	if err := NewRoundingPolicy(15, RoundingMethod("banker")).Validate(); err == nil {
		t.Fatal("expected error for invalid method")
	}
}
