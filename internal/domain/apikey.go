package domain

import "time"

// SEOAPIKey is one credential for the rank tracking provider. Each key has a
// daily unit budget; lookups claim units before use so a key is never driven
// past its limit.
type SEOAPIKey struct {
	ID         string `json:"id" db:"id"`
	Label      string `json:"label" db:"label"`
	Login      string `json:"login" db:"login"`
	Secret     string `json:"-" db:"secret"`
	DailyLimit int64  `json:"daily_limit" db:"daily_limit"`
	UnitsUsed  int64  `json:"units_used" db:"units_used"`
	Disabled   bool   `json:"disabled" db:"disabled"`

	LastUsedAt *time.Time `json:"last_used_at" db:"last_used_at"`
	ResetAt    time.Time  `json:"reset_at" db:"reset_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Remaining returns the unclaimed unit budget for the current day.
func (k *SEOAPIKey) Remaining() int64 {
	if k.UnitsUsed >= k.DailyLimit {
		return 0
	}
	return k.DailyLimit - k.UnitsUsed
}
