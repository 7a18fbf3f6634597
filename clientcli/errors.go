package clientcli

import "errors"

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// Errors for configuration validation.
var (
	ErrConfigRequired     = errors.New("config is required")
	ErrSecretRequired     = errors.New("signing secret is required")
	ErrAdminTokenRequired = errors.New("admin token is required")
)

// Errors for input validation.
var (
	ErrEmptyPath = errors.New("path is required")
	ErrNoKeys    = errors.New("no keys provided")
	ErrNoURLs    = errors.New("no urls provided")
)
