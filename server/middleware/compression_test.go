package middleware

import (
	"testing"
	"time"
)

func TestNegotiateEncoding(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"identity", ""},
		{"gzip", "gzip"},
		{"deflate", "deflate"},
		{"gzip, deflate, br", "gzip"},
		{"gzip, zstd", "zstd"},
		{"zstd;q=0.5, gzip", "gzip"},
		{"gzip;q=0, deflate", "deflate"},
		{"*", "zstd"},
		{"*;q=0.1, deflate;q=0.5", "deflate"},
		{"GZIP", "gzip"},
		{"gzip;q=bogus", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := negotiateEncoding(tt.header); got != tt.want {
				t.Errorf("negotiateEncoding(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestFormatServerTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 ms"},
		{999 * time.Microsecond, "0 ms"},
		{12 * time.Millisecond, "12 ms"},
		{3 * time.Second, "3000 ms"},
	}
	for _, tt := range tests {
		if got := formatServerTime(tt.d); got != tt.want {
			t.Errorf("formatServerTime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
