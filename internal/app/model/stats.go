package model

import "time"

const UnknownLocation = "Unknown"

// LinkStats is the aggregated view returned by the stats endpoint.
type LinkStats struct {
	Code         string        `json:"shortcode"`
	URL          string        `json:"originalUrl"`
	TotalClicks  int           `json:"totalClicks"`
	CreatedAt    time.Time     `json:"createdAt"`
	ExpiresAt    time.Time     `json:"expiry"`
	IsExpired    bool          `json:"isExpired"`
	ClickDetails []ClickDetail `json:"clickDetails"`
	Summary      StatsSummary  `json:"summary"`
}

type ClickDetail struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Referrer  string    `json:"referrer"`
	Location  string    `json:"location"`
	UserAgent string    `json:"userAgent"`
	IP        string    `json:"ip"`
}

type StatsSummary struct {
	AverageClicksPerDay float64         `json:"averageClicksPerDay"`
	TopReferrers        []ReferrerCount `json:"topReferrers"`
	TopLocations        []LocationCount `json:"topLocations"`
}

type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int    `json:"count"`
}

type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// StoreCounts reports how many records each store currently holds.
type StoreCounts struct {
	Links     int
	Analytics int
}
