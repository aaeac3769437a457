package model

import "time"

// Link is the live short-link record held in memory.
type Link struct {
	Code      string    `json:"shortcode"`
	URL       string    `json:"originalUrl"`
	ExpiresAt time.Time `json:"expiry"`
	CreatedAt time.Time `json:"createdAt"`
	Clicks    int       `json:"clicks"`
}

// Expired reports whether now is strictly after the link's expiry.
func (l *Link) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Analytics aggregates the clicks recorded for one short link.
// It is created and removed together with its Link.
type Analytics struct {
	Total     int          `json:"total"`
	Details   []ClickEvent `json:"details"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Clone returns a copy that does not share the Details backing array.
func (a *Analytics) Clone() Analytics {
	details := make([]ClickEvent, len(a.Details))
	copy(details, a.Details)
	return Analytics{
		Total:     a.Total,
		Details:   details,
		CreatedAt: a.CreatedAt,
	}
}

// ArchivedLink is the write-only audit row kept for links removed by the sweeper.
type ArchivedLink struct {
	ID        uint      `gorm:"primaryKey"`
	Code      string    `gorm:"size:32;index;not null"`
	URL       string    `gorm:"type:text;not null"`
	Clicks    int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	SweptAt   time.Time `gorm:"index;not null"`
}

// NewArchivedLink builds the archive row for a swept link.
func NewArchivedLink(link Link, sweptAt time.Time) ArchivedLink {
	return ArchivedLink{
		Code:      link.Code,
		URL:       link.URL,
		Clicks:    link.Clicks,
		CreatedAt: link.CreatedAt,
		ExpiresAt: link.ExpiresAt,
		SweptAt:   sweptAt,
	}
}
