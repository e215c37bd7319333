package workflows_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/core/usecases"
	"github.com/samirrijal/darshanam/internal/workflows"
)

var mysuru = domain.GeoCoordinate{Latitude: 12.3052, Longitude: 76.6552}

type guideRepo struct {
	loc *domain.GuideLocation
}

func (r *guideRepo) Insert(ctx context.Context, loc *domain.GuideLocation) error {
	r.loc = loc
	return nil
}

func (r *guideRepo) Latest(ctx context.Context) (*domain.GuideLocation, error) {
	if r.loc == nil {
		return nil, domain.ErrGuideLocationNotFound
	}
	return r.loc, nil
}

func (r *guideRepo) History(ctx context.Context, limit int) ([]domain.GuideLocation, error) {
	return nil, nil
}

type sunProvider struct{}

func (sunProvider) Fetch(ctx context.Context, loc domain.GeoCoordinate, date time.Time) (*domain.SunTimes, error) {
	y, m, d := date.UTC().Date()
	return &domain.SunTimes{
		Sunrise: time.Date(y, m, d, 6, 10, 0, 0, time.UTC),
		Sunset:  time.Date(y, m, d, 18, 5, 0, 0, time.UTC),
	}, nil
}

type push struct {
	recipient, title, body string
}

type notifier struct {
	mu     sync.Mutex
	pushes []push
	err    error
}

func (n *notifier) SendPush(ctx context.Context, recipient, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.pushes = append(n.pushes, push{recipient, title, body})
	return nil
}

func newActivities(t *testing.T, withGuide bool, start time.Time) (*workflows.SunReminderActivities, *notifier) {
	t.Helper()
	guide := usecases.NewGuideService(&guideRepo{}, nil, nil, time.Hour)
	if withGuide {
		if _, err := guide.Update(context.Background(), mysuru, "", "https://maps.example/m", "test"); err != nil {
			t.Fatalf("seed guide: %v", err)
		}
	}
	sun := usecases.NewSunTimesService(sunProvider{}, usecases.NewSunTimesCache(), nil).
		WithClock(func() time.Time { return start })
	n := &notifier{}
	return &workflows.SunReminderActivities{Guide: guide, SunTimes: sun, Notifier: n}, n
}

func TestSunReminderWorkflow_SendsSunriseThenSunset(t *testing.T) {
	start := time.Date(2026, 10, 18, 5, 0, 0, 0, time.UTC)
	acts, n := newActivities(t, true, start)

	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.SetStartTime(start)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(workflows.SunReminderWorkflow, workflows.SunReminderInput{
		Recipient:   "42",
		LeadMinutes: 20,
		Reminders:   2,
	})

	if !env.IsWorkflowCompleted() {
		t.Fatal("expected workflow to complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected workflow error: %v", err)
	}

	if len(n.pushes) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(n.pushes))
	}
	if !strings.Contains(n.pushes[0].title, "Sunrise in 20 minutes") {
		t.Errorf("unexpected first title %q", n.pushes[0].title)
	}
	if !strings.Contains(n.pushes[0].body, "06:10") || !strings.Contains(n.pushes[0].body, "maps.example") {
		t.Errorf("unexpected first body %q", n.pushes[0].body)
	}
	if !strings.Contains(n.pushes[1].title, "Sunset") || !strings.Contains(n.pushes[1].body, "18:05") {
		t.Errorf("unexpected second reminder %+v", n.pushes[1])
	}
	if n.pushes[0].recipient != "42" {
		t.Errorf("expected recipient 42, got %q", n.pushes[0].recipient)
	}
}

func TestSunReminderWorkflow_NoGuideFails(t *testing.T) {
	start := time.Date(2026, 10, 18, 5, 0, 0, 0, time.UTC)
	acts, n := newActivities(t, false, start)

	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.SetStartTime(start)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(workflows.SunReminderWorkflow, workflows.SunReminderInput{Recipient: "42", Reminders: 1})

	if !env.IsWorkflowCompleted() {
		t.Fatal("expected workflow to complete")
	}
	if err := env.GetWorkflowError(); err == nil {
		t.Fatal("expected an error without a guide location")
	}
	if len(n.pushes) != 0 {
		t.Errorf("expected no reminders, got %d", len(n.pushes))
	}
}

func TestFetchNextSunEvent(t *testing.T) {
	start := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	acts, _ := newActivities(t, true, start)

	r, err := acts.FetchNextSunEvent(context.Background(), start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Type != domain.SunEventSunset || r.At.Hour() != 18 || r.Location != mysuru {
		t.Errorf("expected sunset at 18:05 for the guide, got %+v", r)
	}
}

func TestSendReminder_NotifierError(t *testing.T) {
	acts, n := newActivities(t, true, time.Now())
	n.err = errors.New("telegram down")

	err := acts.SendReminder(context.Background(), "42", workflows.SunReminder{
		Type: domain.SunEventSunrise,
		At:   time.Date(2026, 10, 18, 6, 10, 0, 0, time.UTC),
	}, 20*time.Minute)
	if err == nil {
		t.Fatal("expected notifier error to propagate")
	}
}
