package domain

import (
	"errors"
	"time"
)

var (
	// ErrGuideLocationNotFound is returned when no guide location has been stored yet.
	ErrGuideLocationNotFound = errors.New("guide location not found")
	// ErrSessionNotFound is returned for an unknown or reaped tracking session.
	ErrSessionNotFound = errors.New("tracking session not found")
)

// GuideLocation is the stored location of the guide, the alignment target.
type GuideLocation struct {
	ID        string        `json:"id"`
	Location  GeoCoordinate `json:"location"`
	Address   string        `json:"address,omitempty"`
	MapsURL   string        `json:"maps_url,omitempty"`
	Source    string        `json:"source"` // api, telegram, admin
	UpdatedAt time.Time     `json:"updated_at"`
}

// GuideLocationStatus reports whether the stored location is recent enough to trust.
type GuideLocationStatus struct {
	Location *GuideLocation `json:"location"`
	Stale    bool           `json:"stale"`
	Message  string         `json:"message"`
}

// SunEventType is either sunrise or sunset.
type SunEventType string

const (
	SunEventSunrise SunEventType = "sunrise"
	SunEventSunset  SunEventType = "sunset"
)

// SunTimes holds the sun events for a location on one calendar day.
type SunTimes struct {
	Location  GeoCoordinate `json:"location"`
	Date      string        `json:"date"` // YYYY-MM-DD
	Sunrise   time.Time     `json:"sunrise"`
	Sunset    time.Time     `json:"sunset"`
	SolarNoon time.Time     `json:"solar_noon"`
	DayLength string        `json:"day_length,omitempty"`
	Timezone  string        `json:"timezone,omitempty"`
}

// SunEvent is the next sunrise or sunset after a given instant.
type SunEvent struct {
	Type SunEventType `json:"type"`
	At   time.Time    `json:"at"`
}

// NextEvent returns the next sun event strictly after now. Past sunset it
// estimates tomorrow's sunrise as today's plus 24h.
func (s SunTimes) NextEvent(now time.Time) SunEvent {
	switch {
	case now.Before(s.Sunrise):
		return SunEvent{Type: SunEventSunrise, At: s.Sunrise}
	case now.Before(s.Sunset):
		return SunEvent{Type: SunEventSunset, At: s.Sunset}
	default:
		return SunEvent{Type: SunEventSunrise, At: s.Sunrise.Add(24 * time.Hour)}
	}
}
