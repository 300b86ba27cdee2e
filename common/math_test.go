package common

import (
	"math"
	"testing"
)

func TestDecimalToFixed(t *testing.T) {
	cases := []struct {
		in        float64
		precision int
		want      float64
	}{
		{1.23456, 2, 1.23},
		{1.235, 2, 1.24},
		{-1.235, 2, -1.24},
		{12.5, 0, 13},
		{0.00001, 3, 0},
	}
	for _, c := range cases {
		if got := DecimalToFixed(c.in, c.precision); got != c.want {
			t.Errorf("DecimalToFixed(%v, %d) = %v, want %v", c.in, c.precision, got, c.want)
		}
	}
	if got := DecimalToFixed(math.Inf(1), 2); !math.IsInf(got, 1) {
		t.Errorf("want +Inf, got %v", got)
	}
	if got := DecimalToFixed(math.NaN(), 2); !math.IsNaN(got) {
		t.Errorf("want NaN, got %v", got)
	}
}
