package alignment_test

import (
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/darshanam/internal/core/alignment"
	"github.com/samirrijal/darshanam/internal/core/domain"
)

const trace = `
{"t":"2026-10-18T06:00:00Z","type":"observer","latitude":12.9716,"longitude":77.5946}
{"t":"2026-10-18T06:00:01Z","type":"target","latitude":12.3052,"longitude":76.6552}
{"t":"2026-10-18T06:00:02Z","type":"heading","heading":200}

{"t":"2026-10-18T06:00:03Z","type":"heading","heading":null}
{"t":"2026-10-18T06:00:04Z","type":"heading","heading":230,"accuracy":-1}
{"t":"2026-10-18T06:00:05Z","type":"threshold","threshold_degrees":40}
{"t":"2026-10-18T06:00:06Z","type":"tilt","beta":5,"gamma":60}
{"t":"2026-10-18T06:00:07Z","type":"observer","lost":true}
`

func TestReplay(t *testing.T) {
	s := alignment.NewSession(alignment.Config{SessionID: "replay"})
	rec := &recorder{}
	s.Subscribe(rec.listen)

	n, err := alignment.Replay(strings.NewReader(trace), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 8 {
		t.Errorf("expected 8 samples, got %d", n)
	}

	// 200 is 34 degrees off; widening to 40 enters, losing the fix exits.
	want := []domain.AlignmentEventType{domain.EventAlignmentEntered, domain.EventAlignmentExited}
	got := rec.types()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if at := rec.events[0].Time; !at.Equal(time.Date(2026, 10, 18, 6, 0, 5, 0, time.UTC)) {
		t.Errorf("expected entered at the threshold sample, got %v", at)
	}

	st := s.State()
	if st.Tracking != domain.TrackingIdle || !st.TiltExcessive || !st.Calibrating {
		t.Errorf("unexpected final state %+v", st)
	}
	if st.Heading == nil || *st.Heading != 200 {
		t.Errorf("expected calibration sample dropped, heading %v", st.Heading)
	}
}

func TestReplay_BadLine(t *testing.T) {
	tests := []struct {
		name  string
		trace string
		want  string
	}{
		{"json", "{\"type\":\"heading\",\"heading\":10}\nnot json\n", "line 2"},
		{"type", `{"type":"compass"}`, "unknown sample type"},
		{"coordinate", `{"type":"target","latitude":100,"longitude":0}`, "invalid coordinate"},
		{"half coordinate", `{"type":"observer","latitude":10}`, "needs latitude and longitude"},
		{"threshold", `{"type":"threshold","threshold_degrees":0}`, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := alignment.NewSession(alignment.Config{})
			_, err := alignment.Replay(strings.NewReader(tt.trace), s)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
