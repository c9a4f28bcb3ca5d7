package api

import (
	"github.com/hackgods/clinic-appointments/internal/auth"
	"github.com/hackgods/clinic-appointments/internal/clinic"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationResponse struct {
	Errors []clinic.FieldError `json:"errors"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type StatusResponse struct {
	Authenticated bool           `json:"authenticated"`
	User          *auth.Identity `json:"user"`
}
