// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package identity derives the deduplication identity of an incoming event.

# Identity Keys

An event's identity is the tuple (poll, session, device platform,
user-or-sentinel):

	key := identity.Resolve(pollID, sessionID, userID, devicePlatformID)

Missing user and session IDs are replaced by the zero-UUID sentinel, never
treated as "no constraint". The resolved key maps 1:1 onto the UNIQUE
constraint columns of the impression and vote ledgers.

Resolve is a pure function with no error conditions; every input yields a
usable key.
*/
package identity
