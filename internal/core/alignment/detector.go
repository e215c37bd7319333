package alignment

import (
	"math"

	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/pkg/geospatial"
)

// Evaluation is the result of comparing a heading with a target bearing.
type Evaluation struct {
	Aligned    bool
	Difference float64 // unsigned, [0,180]
	Turn       domain.TurnInstruction
}

// Evaluate compares a smoothed heading with the target bearing. It is
// stateless; edge detection belongs to Session.
func Evaluate(heading, bearing, thresholdDegrees float64) Evaluation {
	diff := geospatial.AbsoluteDelta(bearing, heading)
	ev := Evaluation{
		Aligned:    diff <= thresholdDegrees,
		Difference: diff,
		Turn:       domain.TurnInstruction{Direction: domain.TurnNone},
	}

	d := geospatial.SignedDelta(heading, bearing)
	if math.Abs(d) <= thresholdDegrees {
		return ev
	}
	ev.Turn.MagnitudeDegrees = math.Round(math.Abs(d))
	if d > 0 {
		ev.Turn.Direction = domain.TurnRight
	} else {
		ev.Turn.Direction = domain.TurnLeft
	}
	return ev
}
