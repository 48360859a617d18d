package userservice

import "errors"

// Domain errors for the user service.
var (
	// ErrInsufficientPrivilege is returned when a non-admin caller asks for a repair.
	ErrInsufficientPrivilege = errors.New("insufficient privilege: admin role required")
)
