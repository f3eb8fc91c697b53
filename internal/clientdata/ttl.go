package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLYahooHistory = time.Hour        // 1 hour - hourly closes only gain one bar per hour
	TTLYahooQuote   = 10 * time.Minute // 10 minutes - seed prices for batch runs

	// StaleRetention is how long expired entries are kept as a fallback for
	// provider outages before the cleanup job removes them.
	StaleRetention = 7 * 24 * time.Hour
)
