package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/core/usecases"
)

type startSessionRequest struct {
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	TargetLatitude   *float64 `json:"target_latitude"`
	TargetLongitude  *float64 `json:"target_longitude"`
	ThresholdDegrees float64  `json:"threshold_degrees"`
	SmoothingAlpha   float64  `json:"smoothing_alpha"`
}

type headingRequest struct {
	// Heading is the raw compass reading; null is a sensor gap.
	Heading  *float64 `json:"heading"`
	Accuracy *float64 `json:"accuracy"`
	// Unavailable reports that the heading source went away.
	Unavailable bool `json:"unavailable"`
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	// Lost reports that the position fix was lost.
	Lost bool `json:"lost"`
}

type tiltRequest struct {
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

type thresholdRequest struct {
	ThresholdDegrees float64 `json:"threshold_degrees"`
}

// optionalCoord builds a coordinate when both halves are present.
func optionalCoord(lat, lon *float64) (*domain.GeoCoordinate, error) {
	if lat == nil || lon == nil {
		return nil, nil
	}
	c, err := domain.NewGeoCoordinate(*lat, *lon)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// StartSessionHandler creates a tracking session.
func StartSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req startSessionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		if req.ThresholdDegrees < 0 || req.ThresholdDegrees > 180 {
			return errBadRequest(c, "threshold_degrees must be in (0, 180]")
		}
		if req.SmoothingAlpha < 0 || req.SmoothingAlpha >= 1 {
			return errBadRequest(c, "smoothing_alpha must be in (0, 1)")
		}

		observer, err := optionalCoord(req.Latitude, req.Longitude)
		if err != nil {
			return errFromDomain(c, err)
		}
		target, err := optionalCoord(req.TargetLatitude, req.TargetLongitude)
		if err != nil {
			return errFromDomain(c, err)
		}

		res, err := deps.Tracking.Start(c.UserContext(), usecases.StartOptions{
			ThresholdDegrees: req.ThresholdDegrees,
			SmoothingAlpha:   req.SmoothingAlpha,
			Observer:         observer,
			Target:           target,
		})
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set(fiber.HeaderLocation, "/v1/sessions/"+res.Snapshot.SessionID)
		return c.Status(fiber.StatusCreated).JSON(res.Snapshot)
	}
}

// GetSessionHandler returns a session snapshot.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Tracking.Snapshot(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(snap)
	}
}

// StopSessionHandler deletes a session.
func StopSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Tracking.Stop(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// HeadingHandler feeds one compass sample.
func HeadingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req headingRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		var (
			res *usecases.IngestResult
			err error
		)
		if req.Unavailable {
			res, err = deps.Tracking.ClearHeading(c.UserContext(), c.Params("id"))
		} else {
			res, err = deps.Tracking.IngestHeading(c.UserContext(), c.Params("id"), req.Heading, req.Accuracy)
		}
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// LocationHandler feeds an observer position fix.
func LocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req locationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		var observer *domain.GeoCoordinate
		if !req.Lost {
			if req.Latitude == nil || req.Longitude == nil {
				return errBadRequest(c, "latitude and longitude are required unless lost is set")
			}
			var err error
			observer, err = optionalCoord(req.Latitude, req.Longitude)
			if err != nil {
				return errFromDomain(c, err)
			}
		}

		res, err := deps.Tracking.IngestObserver(c.UserContext(), c.Params("id"), observer)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// TiltHandler records device pitch and roll.
func TiltHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req tiltRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		res, err := deps.Tracking.IngestTilt(c.UserContext(), c.Params("id"), req.Beta, req.Gamma)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// ThresholdHandler changes a session's alignment cone.
func ThresholdHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req thresholdRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.ThresholdDegrees <= 0 || req.ThresholdDegrees > 180 {
			return errBadRequest(c, "threshold_degrees must be in (0, 180]")
		}
		res, err := deps.Tracking.SetThreshold(c.UserContext(), c.Params("id"), req.ThresholdDegrees)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// SessionEventsHandler lists recorded transitions for a session.
func SessionEventsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		events, total, err := deps.Tracking.Events(c.UserContext(), c.Params("id"), offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		if events == nil {
			events = []domain.AlignmentEvent{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: events, Pagination: pg})
	}
}
