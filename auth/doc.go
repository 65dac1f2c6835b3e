// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides admin key generation/validation and IP hashing.

# Admin Keys

Admin keys are deterministic HMACs of the poll ID, so they can be validated
without storing them:

	key := auth.GenerateAdminKey(pollID, cfg.AdminKeySalt)
	err := auth.ValidateAdminKey(pollID, providedKey, cfg.AdminKeySalt)

Poll authoring endpoints require the key via the X-Admin-Key header.

# IP Hashing

Event rows never store raw client IPs. HashIP produces a salted, truncated
HMAC suitable for submission-noise analytics without being reversible:

	ipHash := auth.HashIP(clientIP, cfg.IPHashSalt)
*/
package auth
