package iam

import (
	"net/http"

	"github.com/garagelink/drivescan/pkg/errx"
)

// ============================================================================
// Error Registry
// ============================================================================
//
// Message texts on the 401/403 codes are part of the wire contract consumed
// by existing clients; change them only with a coordinated client release.

var ErrRegistry = errx.NewRegistry("IAM")

var (
	CodeNoToken            = ErrRegistry.Register("NO_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Access denied. No token provided.")
	CodeInvalidToken       = ErrRegistry.Register("INVALID_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid token.")
	CodeTokenExpired       = ErrRegistry.Register("TOKEN_EXPIRED", errx.TypeAuthorization, http.StatusUnauthorized, "Token expired.")
	CodeTokenUserNotFound  = ErrRegistry.Register("TOKEN_USER_NOT_FOUND", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid token. User not found.")
	CodeAccountDeactivated = ErrRegistry.Register("ACCOUNT_DEACTIVATED", errx.TypeAuthorization, http.StatusUnauthorized, "Account is deactivated.")

	CodeForbidden = ErrRegistry.Register("FORBIDDEN", errx.TypeAuthorization, http.StatusForbidden, "Access denied.")

	CodeInvalidCredentials  = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid email or password.")
	CodeUserExists          = ErrRegistry.Register("USER_EXISTS", errx.TypeConflict, http.StatusConflict, "A user with this email already exists.")
	CodeInvalidOrganization = ErrRegistry.Register("INVALID_ORGANIZATION", errx.TypeValidation, http.StatusBadRequest, "Invalid organization.")
	CodeValidation          = ErrRegistry.Register("VALIDATION", errx.TypeValidation, http.StatusBadRequest, "Invalid request.")
	CodeTooManyAttempts     = ErrRegistry.Register("TOO_MANY_ATTEMPTS", errx.TypeBusiness, http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	CodeUserNotFound        = ErrRegistry.Register("USER_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeOrgNotFound         = ErrRegistry.Register("ORG_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Organization not found")
)

// Helper constructors

func ErrNoToken() *errx.Error            { return ErrRegistry.New(CodeNoToken) }
func ErrInvalidToken() *errx.Error       { return ErrRegistry.New(CodeInvalidToken) }
func ErrTokenExpired() *errx.Error       { return ErrRegistry.New(CodeTokenExpired) }
func ErrTokenUserNotFound() *errx.Error  { return ErrRegistry.New(CodeTokenUserNotFound) }
func ErrAccountDeactivated() *errx.Error { return ErrRegistry.New(CodeAccountDeactivated) }

// ErrForbidden builds a 403 with a message naming the unmet requirement.
func ErrForbidden(message string) *errx.Error {
	return ErrRegistry.NewWithMessage(CodeForbidden, message)
}

func ErrInvalidCredentials() *errx.Error  { return ErrRegistry.New(CodeInvalidCredentials) }
func ErrUserExists() *errx.Error          { return ErrRegistry.New(CodeUserExists) }
func ErrInvalidOrganization() *errx.Error { return ErrRegistry.New(CodeInvalidOrganization) }
func ErrTooManyAttempts() *errx.Error     { return ErrRegistry.New(CodeTooManyAttempts) }
func ErrUserNotFound() *errx.Error        { return ErrRegistry.New(CodeUserNotFound) }
func ErrOrgNotFound() *errx.Error         { return ErrRegistry.New(CodeOrgNotFound) }
