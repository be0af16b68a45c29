package domain

// WhaleAlertSubscription is one subscriber's transfer-size threshold for a
// set of tokens. Identity key is (SubscriberID, token); in practice one
// record is created per token but the shape allows several.
type WhaleAlertSubscription struct {
	SubscriberID int64    `json:"subscriber_id"`
	MinAmount    float64  `json:"min_amount"`
	Tokens       []string `json:"tokens"`
}

// Clone returns a deep copy. The engine hands out and persists clones so
// records mutated under its lock are never read concurrently.
func (s *WhaleAlertSubscription) Clone() *WhaleAlertSubscription {
	c := *s
	c.Tokens = append([]string(nil), s.Tokens...)
	return &c
}

// Watches reports whether the subscription covers the given token.
func (s *WhaleAlertSubscription) Watches(tokenID string) bool {
	for _, t := range s.Tokens {
		if t == tokenID {
			return true
		}
	}
	return false
}
