// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration parsing from CLI flags and
environment variables.

# Usage

	cfg, err := cliparse.ParseFlags(os.Args[1:])

CLI flags take precedence; environment variables are the fallback. A .env
file loaded by the caller (main does this via godotenv) feeds the same
environment lookup.

# Settings

Required:

  - DATABASE_URL (-d): Connection string / file path
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC
  - IP_HASH_SALT (--ip-salt): Secret for privacy-preserving IP hashing

Optional:

  - PORT (-p): Server port (default: 3324)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - SUMMARY_CACHE_TTL (--cache-ttl): Hot-summary cache TTL (default: 30s)
  - -v: Debug logging
*/
package cliparse
