// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models contains request, response and domain types for the PollPulse
analytics API.

# Request Types

Ingestion requests carry the optional identity components and the raw
dimension attributes:

	SubmitImpressionRequest{SessionID, UserID, Device, Geo}
	SubmitVoteRequest{OptionID, SessionID, UserID, Device, Geo}

SessionID and UserID are UUID strings and may be omitted for anonymous
traffic; the engine coalesces missing values to the zero-UUID sentinel.

# Domain Types

Poll and Option mirror their tables. Summary is the rollup read model:

	Summary{Impressions, Votes, UniqueVoters, OptionVotes}

OptionVotes maps option IDs to counts and always lists every option of the
poll, including options with zero votes.

# Poll Lifecycle

Polls progress through three states: draft → active → closed. Events may be
recorded against any existing poll; events outside the active window are
flagged off-window rather than dropped.
*/
package models
