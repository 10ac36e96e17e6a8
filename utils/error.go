package utils

import "errors"

var (
	ErrorUnauthorized  = errors.New("authentication required")
	ErrorForbidden     = errors.New("admin access required")
	ErrorMissingSecret = errors.New("API_SECRET is not configured")
)
