package http

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/darshanam/internal/adapters/telegram"
	"github.com/samirrijal/darshanam/internal/core/alignment"
	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/pkg/geospatial"
)

// GetGuideLocationHandler returns the guide's current location.
func GetGuideLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc, err := deps.Guide.Current(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(loc)
	}
}

// GuideStatusHandler reports whether the guide location is fresh.
func GuideStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, err := deps.Guide.Status(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(status)
	}
}

// GuideHistoryHandler lists recent guide locations.
func GuideHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		locs, err := deps.Guide.History(c.UserContext(), c.QueryInt("limit", 20))
		if err != nil {
			return errFromDomain(c, err)
		}
		if locs == nil {
			locs = []domain.GuideLocation{}
		}
		return c.JSON(locs)
	}
}

type updateGuideRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	// Input is a "lat,lng" pair or a Google Maps link.
	Input   string `json:"input"`
	Address string `json:"address"`
}

// UpdateGuideLocationHandler stores a new guide location.
func UpdateGuideLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !authorized(c, deps.AdminToken) {
			return errUnauthorized(c, "missing or invalid bearer token")
		}

		var req updateGuideRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		var (
			coord   domain.GeoCoordinate
			mapsURL string
			err     error
		)
		switch {
		case req.Input != "":
			coord, err = geospatial.ParseInput(req.Input)
			if strings.HasPrefix(strings.TrimSpace(req.Input), "http") {
				mapsURL = strings.TrimSpace(req.Input)
			}
		case req.Latitude != nil && req.Longitude != nil:
			coord, err = domain.NewGeoCoordinate(*req.Latitude, *req.Longitude)
		default:
			return errBadRequest(c, "latitude and longitude, or input, are required")
		}
		if err != nil {
			return errFromDomain(c, err)
		}
		if mapsURL == "" {
			mapsURL = telegram.MapsURL(coord.Latitude, coord.Longitude)
		}

		loc, err := deps.Guide.Update(c.UserContext(), coord, req.Address, mapsURL, "api")
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(loc)
	}
}

// ParseCoordinatesHandler parses a "lat,lng" pair or a maps link.
func ParseCoordinatesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input := c.Query("input")
		if input == "" {
			return errBadRequest(c, "input query parameter is required")
		}
		if len(input) > 2048 {
			return errBadRequest(c, "input too long (max 2048 characters)")
		}
		coord, err := geospatial.ParseInput(input)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{
			"location": coord,
			"maps_url": telegram.MapsURL(coord.Latitude, coord.Longitude),
		})
	}
}

// BearingResponse is the one-shot geodesy result.
type BearingResponse struct {
	From       domain.GeoCoordinate `json:"from"`
	To         domain.GeoCoordinate `json:"to"`
	Bearing    float64              `json:"bearing"`
	DistanceKm float64              `json:"distance_km"`
	Cardinal   string               `json:"cardinal"`
	// Set when a heading was supplied.
	Aligned *bool                   `json:"aligned,omitempty"`
	Turn    *domain.TurnInstruction `json:"turn,omitempty"`
}

// BearingHandler computes bearing and distance from a point to the guide,
// or to an explicit target. With heading it also evaluates alignment.
func BearingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("from_lat") == "" || c.Query("from_lon") == "" {
			return errBadRequest(c, "from_lat and from_lon are required")
		}
		from, err := domain.NewGeoCoordinate(c.QueryFloat("from_lat"), c.QueryFloat("from_lon"))
		if err != nil {
			return errFromDomain(c, err)
		}

		var to domain.GeoCoordinate
		if c.Query("to_lat") != "" && c.Query("to_lon") != "" {
			to, err = domain.NewGeoCoordinate(c.QueryFloat("to_lat"), c.QueryFloat("to_lon"))
			if err != nil {
				return errFromDomain(c, err)
			}
		} else {
			loc, err := deps.Guide.Current(c.UserContext())
			if err != nil {
				return errFromDomain(c, err)
			}
			to = loc.Location
		}

		b := geospatial.Bearing(from, to)
		resp := BearingResponse{
			From:       from,
			To:         to,
			Bearing:    b,
			DistanceKm: geospatial.DistanceKm(from, to),
			Cardinal:   geospatial.CardinalDirection(b),
		}
		if c.Query("heading") != "" {
			threshold := c.QueryFloat("threshold", alignment.DefaultThresholdDegrees)
			if threshold <= 0 || threshold > 180 {
				return errBadRequest(c, "threshold must be in (0, 180]")
			}
			ev := alignment.Evaluate(geospatial.NormalizeDegrees(c.QueryFloat("heading")), b, threshold)
			resp.Aligned = &ev.Aligned
			resp.Turn = &ev.Turn
		}
		return c.JSON(resp)
	}
}

// SunTimesHandler returns sunrise and sunset for a location (the guide's by
// default) and the next event after now.
func SunTimesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		var loc domain.GeoCoordinate
		if c.Query("lat") != "" && c.Query("lon") != "" {
			var err error
			loc, err = domain.NewGeoCoordinate(c.QueryFloat("lat"), c.QueryFloat("lon"))
			if err != nil {
				return errFromDomain(c, err)
			}
		} else {
			guide, err := deps.Guide.Current(ctx)
			if err != nil {
				return errFromDomain(c, err)
			}
			loc = guide.Location
		}

		day := time.Now()
		if d := c.Query("date"); d != "" {
			parsed, err := time.Parse("2006-01-02", d)
			if err != nil {
				return errBadRequest(c, "date must be YYYY-MM-DD")
			}
			day = parsed
		}

		st, err := deps.SunTimes.Get(ctx, loc, day)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCoordinate) {
				return errFromDomain(c, err)
			}
			LoggerFromCtx(ctx).Warn("sun times lookup failed", "error", err)
			return errUnavailable(c, "sun times are not available right now")
		}
		next := st.NextEvent(time.Now())
		return c.JSON(fiber.Map{
			"sun_times":  st,
			"next_event": next,
		})
	}
}

// authorized checks "Authorization: Bearer <token>". An empty token allows all.
func authorized(c *fiber.Ctx, token string) bool {
	if token == "" {
		return true
	}
	got, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}
