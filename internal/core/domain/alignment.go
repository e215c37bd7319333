package domain

import "time"

// TrackingState is the outer state of an alignment session.
type TrackingState string

const (
	// TrackingIdle means the heading or one of the endpoints is not available yet.
	TrackingIdle TrackingState = "idle"
	// TrackingActive means every update is evaluated against the target bearing.
	TrackingActive TrackingState = "tracking"
)

// AlignmentState is the sub-state of TrackingActive.
type AlignmentState string

const (
	AlignmentUnaligned AlignmentState = "unaligned"
	AlignmentAligned   AlignmentState = "aligned"
)

// TurnDirection tells the user which way to rotate to face the target.
type TurnDirection string

const (
	TurnNone  TurnDirection = "none"
	TurnLeft  TurnDirection = "left"
	TurnRight TurnDirection = "right"
)

// TurnInstruction is recomputed on every evaluation and never persisted.
type TurnInstruction struct {
	Direction        TurnDirection `json:"direction"`
	MagnitudeDegrees float64       `json:"magnitude_degrees"`
}

// AlignmentEventType identifies an edge-triggered alignment transition.
type AlignmentEventType string

const (
	EventAlignmentEntered AlignmentEventType = "entered"
	EventAlignmentExited  AlignmentEventType = "exited"
)

// AlignmentEvent is emitted once per alignment transition.
type AlignmentEvent struct {
	ID         string             `json:"id,omitempty"`
	SessionID  string             `json:"session_id"`
	Type       AlignmentEventType `json:"type"`
	Heading    float64            `json:"heading"`
	Bearing    float64            `json:"bearing"`
	DistanceKm float64            `json:"distance_km"`
	Time       time.Time          `json:"time"`
}

// AlignmentSnapshot is the pollable state of a session, used for rendering.
type AlignmentSnapshot struct {
	SessionID     string          `json:"session_id,omitempty"`
	Tracking      TrackingState   `json:"tracking"`
	State         AlignmentState  `json:"state"`
	Heading       *float64        `json:"heading"`
	Bearing       *float64        `json:"bearing"`
	DistanceKm    *float64        `json:"distance_km"`
	Cardinal      string          `json:"cardinal,omitempty"`
	Aligned       bool            `json:"aligned"`
	Turn          TurnInstruction `json:"turn"`
	Threshold     float64         `json:"threshold_degrees"`
	Calibrating   bool            `json:"calibrating"`
	TiltExcessive bool            `json:"tilt_excessive"`
	Observer      *GeoCoordinate  `json:"observer,omitempty"`
	Target        *GeoCoordinate  `json:"target,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
