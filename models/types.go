// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Poll status constants
const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusClosed = "closed"
)

// Request types

type CreatePollRequest struct {
	Title     string     `json:"title"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

type AddOptionRequest struct {
	Label string `json:"label"`
}

// DeviceAttrs are the raw client attributes the dimension resolver maps to a
// device_platform row. Parsing a user-agent string into these fields happens
// upstream; empty fields normalize to "unknown".
type DeviceAttrs struct {
	DeviceType     string `json:"device_type"`
	OS             string `json:"os"`
	OSVersion      string `json:"os_version"`
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	AppVersion     string `json:"app_version"`
}

// GeoAttrs are the raw client attributes the dimension resolver maps to a
// geo_location row. Geo-IP lookup happens upstream.
type GeoAttrs struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

type SubmitImpressionRequest struct {
	SessionID string      `json:"session_id,omitempty"`
	UserID    string      `json:"user_id,omitempty"`
	Device    DeviceAttrs `json:"device"`
	Geo       GeoAttrs    `json:"geo"`
}

type SubmitVoteRequest struct {
	OptionID  string      `json:"option_id"`
	SessionID string      `json:"session_id,omitempty"`
	UserID    string      `json:"user_id,omitempty"`
	Device    DeviceAttrs `json:"device"`
	Geo       GeoAttrs    `json:"geo"`
}

// Response types

type CreatePollResponse struct {
	PollID   string `json:"poll_id"`
	AdminKey string `json:"admin_key"`
}

type AddOptionResponse struct {
	OptionID     string `json:"option_id"`
	DisplayOrder int    `json:"display_order"`
}

type SubmitEventResponse struct {
	Accepted bool `json:"accepted"`
}

// Domain types

type Poll struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Option struct {
	ID           string `json:"id"`
	PollID       string `json:"poll_id"`
	Label        string `json:"label"`
	DisplayOrder int    `json:"display_order"`
}

type PollWithOptions struct {
	Poll    Poll     `json:"poll"`
	Options []Option `json:"options"`
}

// Summary is the poll_summary read served from the maintained rollups.
// OptionVotes carries every option of the poll, zero counts included.
type Summary struct {
	PollID       string           `json:"poll_id"`
	Impressions  int64            `json:"impressions"`
	Votes        int64            `json:"votes"`
	UniqueVoters int64            `json:"unique_voters"`
	OptionVotes  map[string]int64 `json:"option_votes"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
