package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/core/ports"
	"github.com/samirrijal/darshanam/internal/core/usecases"
)

// SunReminder is the next sun event at the guide's location.
type SunReminder struct {
	Type     domain.SunEventType
	At       time.Time
	Location domain.GeoCoordinate
	MapsURL  string
}

// SunReminderActivities holds the activity implementations for the sun reminder workflow.
type SunReminderActivities struct {
	Guide    *usecases.GuideService
	SunTimes *usecases.SunTimesService
	Notifier ports.NotificationService
}

// FetchNextSunEvent looks up the first sunrise or sunset at the guide's
// current location strictly after the given instant.
func (a *SunReminderActivities) FetchNextSunEvent(ctx context.Context, after time.Time) (*SunReminder, error) {
	loc, err := a.Guide.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("guide location: %w", err)
	}
	st, err := a.SunTimes.Get(ctx, loc.Location, after)
	if err != nil {
		return nil, err
	}
	ev := st.NextEvent(after)
	return &SunReminder{
		Type:     ev.Type,
		At:       ev.At,
		Location: loc.Location,
		MapsURL:  loc.MapsURL,
	}, nil
}

// SendReminder notifies the recipient that a sun event is coming up.
func (a *SunReminderActivities) SendReminder(ctx context.Context, recipient string, r SunReminder, lead time.Duration) error {
	title, body := reminderText(r, lead)
	if a.Notifier == nil {
		slog.InfoContext(ctx, "reminder (no notifier)", "recipient", recipient, "title", title)
		return nil
	}
	return a.Notifier.SendPush(ctx, recipient, title, body)
}

func reminderText(r SunReminder, lead time.Duration) (string, string) {
	name := string(r.Type)
	icon := "🌅"
	if r.Type == domain.SunEventSunset {
		icon = "🌇"
	}
	title := fmt.Sprintf("%s %s in %d minutes", icon, strings.ToUpper(name[:1])+name[1:], int(lead.Minutes()))

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s. Time to face the guide.", strings.ToUpper(name[:1])+name[1:], r.At.Format("15:04 MST"))
	if r.MapsURL != "" {
		fmt.Fprintf(&b, "\n🌍 [View on Map](%s)", r.MapsURL)
	}
	return title, b.String()
}
