package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/darshanam/internal/core/alignment"
	"github.com/samirrijal/darshanam/internal/core/domain"
	"github.com/samirrijal/darshanam/internal/pkg/geospatial"
)

func coordMap(c domain.GeoCoordinate) map[string]interface{} {
	return map[string]interface{}{"latitude": c.Latitude, "longitude": c.Longitude}
}

func guideMap(loc *domain.GuideLocation) map[string]interface{} {
	if loc == nil {
		return nil
	}
	return map[string]interface{}{
		"id":         loc.ID,
		"location":   coordMap(loc.Location),
		"address":    loc.Address,
		"maps_url":   loc.MapsURL,
		"source":     loc.Source,
		"updated_at": loc.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	guideType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GuideLocation",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: coordinateType},
			"address":    &graphql.Field{Type: graphql.String},
			"maps_url":   &graphql.Field{Type: graphql.String},
			"source":     &graphql.Field{Type: graphql.String},
			"updated_at": &graphql.Field{Type: graphql.String},
		},
	})

	guideStatusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GuideStatus",
		Fields: graphql.Fields{
			"location": &graphql.Field{Type: guideType},
			"stale":    &graphql.Field{Type: graphql.Boolean},
			"message":  &graphql.Field{Type: graphql.String},
		},
	})

	turnType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Turn",
		Fields: graphql.Fields{
			"direction": &graphql.Field{Type: graphql.String},
			"magnitude": &graphql.Field{Type: graphql.Float},
		},
	})

	bearingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bearing",
		Fields: graphql.Fields{
			"from":        &graphql.Field{Type: coordinateType},
			"to":          &graphql.Field{Type: coordinateType},
			"bearing":     &graphql.Field{Type: graphql.Float},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"cardinal":    &graphql.Field{Type: graphql.String},
		},
	})

	evaluationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Evaluation",
		Fields: graphql.Fields{
			"aligned":    &graphql.Field{Type: graphql.Boolean},
			"difference": &graphql.Field{Type: graphql.Float},
			"turn":       &graphql.Field{Type: turnType},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"tracking":    &graphql.Field{Type: graphql.String},
			"aligned":     &graphql.Field{Type: graphql.Boolean},
			"heading":     &graphql.Field{Type: graphql.Float},
			"bearing":     &graphql.Field{Type: graphql.Float},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"cardinal":    &graphql.Field{Type: graphql.String},
			"turn":        &graphql.Field{Type: turnType},
		},
	})

	turnMap := func(t domain.TurnInstruction) map[string]interface{} {
		return map[string]interface{}{"direction": string(t.Direction), "magnitude": t.MagnitudeDegrees}
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"guide": &graphql.Field{
				Type:        guideType,
				Description: "The guide's current location",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					loc, err := deps.Guide.Current(p.Context)
					if err != nil {
						return nil, err
					}
					return guideMap(loc), nil
				},
			},
			"guideStatus": &graphql.Field{
				Type:        guideStatusType,
				Description: "Whether the guide's location is fresh",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					st, err := deps.Guide.Status(p.Context)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"location": guideMap(st.Location),
						"stale":    st.Stale,
						"message":  st.Message,
					}, nil
				},
			},
			"bearing": &graphql.Field{
				Type:        bearingType,
				Description: "Bearing and distance from a point to the guide (or to an explicit target)",
				Args: graphql.FieldConfigArgument{
					"fromLat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"fromLon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLat":   &graphql.ArgumentConfig{Type: graphql.Float},
					"toLon":   &graphql.ArgumentConfig{Type: graphql.Float},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from, err := domain.NewGeoCoordinate(p.Args["fromLat"].(float64), p.Args["fromLon"].(float64))
					if err != nil {
						return nil, err
					}
					var to domain.GeoCoordinate
					toLat, okLat := p.Args["toLat"].(float64)
					toLon, okLon := p.Args["toLon"].(float64)
					if okLat && okLon {
						if to, err = domain.NewGeoCoordinate(toLat, toLon); err != nil {
							return nil, err
						}
					} else {
						loc, err := deps.Guide.Current(p.Context)
						if err != nil {
							return nil, err
						}
						to = loc.Location
					}
					b := geospatial.Bearing(from, to)
					return map[string]interface{}{
						"from":        coordMap(from),
						"to":          coordMap(to),
						"bearing":     b,
						"distance_km": geospatial.DistanceKm(from, to),
						"cardinal":    geospatial.CardinalDirection(b),
					}, nil
				},
			},
			"evaluate": &graphql.Field{
				Type:        evaluationType,
				Description: "Compare a heading with a bearing",
				Args: graphql.FieldConfigArgument{
					"heading":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"bearing":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"threshold": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: alignment.DefaultThresholdDegrees},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					ev := alignment.Evaluate(
						geospatial.NormalizeDegrees(p.Args["heading"].(float64)),
						geospatial.NormalizeDegrees(p.Args["bearing"].(float64)),
						p.Args["threshold"].(float64),
					)
					return map[string]interface{}{
						"aligned":    ev.Aligned,
						"difference": ev.Difference,
						"turn":       turnMap(ev.Turn),
					}, nil
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "A tracking session's current state",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					snap, err := deps.Tracking.Snapshot(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"id":          snap.SessionID,
						"tracking":    string(snap.Tracking),
						"aligned":     snap.Aligned,
						"heading":     snap.Heading,
						"bearing":     snap.Bearing,
						"distance_km": snap.DistanceKm,
						"cardinal":    snap.Cardinal,
						"turn":        turnMap(snap.Turn),
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
