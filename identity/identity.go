// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import "github.com/google/uuid"

// Sentinel is the resolved stand-in for a missing user or session ID.
// Storing it explicitly (instead of NULL) keeps the dedup uniqueness
// constraint total: two anonymous submissions with the same
// (poll, session, device) collide on purpose, because a session+device
// pair represents one voter when identity is unknown.
var Sentinel = uuid.Nil.String()

// Key is the fixed-width deduplication identity of an event. Two events of
// the same class with equal Keys are the same logical occurrence.
type Key struct {
	PollID           string
	SessionID        string
	DevicePlatformID string
	UserID           string
}

// Resolve derives the dedup identity from an event's components. Missing
// user and session IDs coalesce to the sentinel. Pure function, no errors.
func Resolve(pollID string, sessionID, userID uuid.UUID, devicePlatformID string) Key {
	return Key{
		PollID:           pollID,
		SessionID:        coalesce(sessionID),
		DevicePlatformID: devicePlatformID,
		UserID:           coalesce(userID),
	}
}

// Anonymous reports whether the key carries no real user identity.
// Anonymous keys never contribute to unique voter counts.
func (k Key) Anonymous() bool {
	return k.UserID == Sentinel
}

func coalesce(id uuid.UUID) string {
	if id == uuid.Nil {
		return Sentinel
	}
	return id.String()
}
