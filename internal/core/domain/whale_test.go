package domain

import "testing"

func TestWhaleSubscriptionWatches(t *testing.T) {
	sub := &WhaleAlertSubscription{
		SubscriberID: 1,
		MinAmount:    1000,
		Tokens:       []string{"tokA", "tokB"},
	}

	tests := []struct {
		name    string
		tokenID string
		want    bool
	}{
		{name: "first token", tokenID: "tokA", want: true},
		{name: "second token", tokenID: "tokB", want: true},
		{name: "unwatched token", tokenID: "tokC", want: false},
		{name: "empty token id", tokenID: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sub.Watches(tt.tokenID); got != tt.want {
				t.Errorf("Watches(%q) = %v, want %v", tt.tokenID, got, tt.want)
			}
		})
	}
}

func TestWhaleSubscriptionClone(t *testing.T) {
	orig := &WhaleAlertSubscription{SubscriberID: 1, MinAmount: 1000, Tokens: []string{"tokA"}}
	c := orig.Clone()
	c.MinAmount = 5
	c.Tokens[0] = "tokB"

	if orig.MinAmount != 1000 {
		t.Errorf("MinAmount = %v, want 1000", orig.MinAmount)
	}
	if orig.Tokens[0] != "tokA" {
		t.Errorf("Tokens[0] = %q, want tokA", orig.Tokens[0])
	}
}
