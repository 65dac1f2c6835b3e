// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and response helpers.

# Middleware

  - WithLogging: structured request logging (method, path, status, duration)
  - CORS: cross-origin support for embedding frontends

# Helpers

  - JSONResponse / ErrorResponse: JSON encoding with consistent error shape
  - ParseJSONBody: request body decoding
  - GetClientIP: client IP extraction behind load balancers (X-Forwarded-For,
    X-Real-IP, RemoteAddr)

The raw client IP is only ever passed to auth.HashIP before storage.
*/
package middleware
