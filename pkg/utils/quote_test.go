package utils

import "testing"

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want, wantAll string
	}{
		{"plain", "plain", "plain"},
		{"a/b/c.txt", "a/b/c.txt", "a%2Fb%2Fc.txt"},
		{"with space", "with%20space", "with%20space"},
		{"q?x=1&y", "q%3Fx%3D1%26y", "q%3Fx%3D1%26y"},
		{"café", "caf%C3%A9", "caf%C3%A9"},
		{"tilde~under_dash-dot.", "tilde~under_dash-dot.", "tilde~under_dash-dot."},
		{"100%", "100%25", "100%25"},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if got := QuoteAll(tt.in); got != tt.wantAll {
			t.Errorf("QuoteAll(%q) = %q, want %q", tt.in, got, tt.wantAll)
		}
	}
}
