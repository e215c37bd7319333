package sunapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // the API reports IANA zone names

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/darshanam/internal/core/domain"
)

// DefaultBaseURL is the public sunrisesunset.io endpoint.
const DefaultBaseURL = "https://api.sunrisesunset.io"

// ErrUpstream is returned when the API answers with a non-OK status.
var ErrUpstream = errors.New("sun times upstream error")

// Client implements ports.SunTimesProvider against api.sunrisesunset.io.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
}

// New creates a client. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "darshanam",
			MaxConnsPerHost:     16,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

type response struct {
	Results struct {
		Date      string `json:"date"`
		Sunrise   string `json:"sunrise"`
		Sunset    string `json:"sunset"`
		SolarNoon string `json:"solar_noon"`
		DayLength string `json:"day_length"`
		Timezone  string `json:"timezone"`
		UTCOffset int    `json:"utc_offset"`
	} `json:"results"`
	Status string `json:"status"`
}

// Fetch looks up sun times for loc on date's calendar day.
func (c *Client) Fetch(ctx context.Context, loc domain.GeoCoordinate, date time.Time) (*domain.SunTimes, error) {
	day := date.Format("2006-01-02")

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/json")
	args := req.URI().QueryArgs()
	args.Add("lat", strconv.FormatFloat(loc.Latitude, 'f', 6, 64))
	args.Add("lng", strconv.FormatFloat(loc.Longitude, 'f', 6, 64))
	args.Add("date", day)
	args.Add("time_format", "24")
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < timeout {
			timeout = until
		}
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("sun times request: %w", err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstream, code)
	}
	return Parse(resp.Body(), loc, day)
}

// Parse decodes an API response body. Times are local to the location; the
// zone comes from the timezone name, falling back to the UTC offset.
func Parse(body []byte, loc domain.GeoCoordinate, day string) (*domain.SunTimes, error) {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode sun times: %w", err)
	}
	if r.Status != "OK" {
		return nil, fmt.Errorf("%w: status %q", ErrUpstream, r.Status)
	}
	if r.Results.Date != "" {
		day = r.Results.Date
	}

	zone := time.UTC
	if r.Results.Timezone != "" {
		if z, err := time.LoadLocation(r.Results.Timezone); err == nil {
			zone = z
		} else {
			zone = time.FixedZone(r.Results.Timezone, r.Results.UTCOffset*60)
		}
	} else if r.Results.UTCOffset != 0 {
		zone = time.FixedZone("", r.Results.UTCOffset*60)
	}

	sunrise, err := clock(day, r.Results.Sunrise, zone)
	if err != nil {
		return nil, fmt.Errorf("sunrise: %w", err)
	}
	sunset, err := clock(day, r.Results.Sunset, zone)
	if err != nil {
		return nil, fmt.Errorf("sunset: %w", err)
	}
	noon, err := clock(day, r.Results.SolarNoon, zone)
	if err != nil {
		return nil, fmt.Errorf("solar noon: %w", err)
	}

	return &domain.SunTimes{
		Location:  loc,
		Date:      day,
		Sunrise:   sunrise,
		Sunset:    sunset,
		SolarNoon: noon,
		DayLength: r.Results.DayLength,
		Timezone:  zone.String(),
	}, nil
}

var clockLayouts = []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM"}

func clock(day, value string, zone *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range clockLayouts {
		if t, err := time.ParseInLocation("2006-01-02 "+layout, day+" "+value, zone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", value)
}
