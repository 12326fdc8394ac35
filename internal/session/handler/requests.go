package handler

import (
	"strings"

	"github.com/asaskevich/govalidator"

	"custodia/internal/identity"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// ConnectRequest is the HTTP request body for POST /auth/connect.
type ConnectRequest struct {
	Address string          `json:"address"`
	Profile *ProfileRequest `json:"profile,omitempty"`

	// Parsed values (populated by Validate)
	parsedAddress id.Address
}

// ProfileRequest carries optional registration attributes for first-time
// callers.
type ProfileRequest struct {
	Name        string `json:"name"`
	Department  string `json:"department"`
	BadgeNumber string `json:"badge_number"`
	Email       string `json:"email"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ConnectRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Address = strings.TrimSpace(r.Address)
	if r.Address == "" {
		return dErrors.New(dErrors.CodeValidation, "address is required")
	}
	addr, err := id.ParseAddress(r.Address)
	if err != nil {
		return err
	}
	r.parsedAddress = addr

	if r.Profile == nil {
		return nil
	}

	r.Profile.Name = strings.TrimSpace(r.Profile.Name)
	r.Profile.Department = strings.TrimSpace(r.Profile.Department)
	r.Profile.BadgeNumber = strings.TrimSpace(r.Profile.BadgeNumber)
	r.Profile.Email = strings.TrimSpace(r.Profile.Email)

	if !govalidator.StringLength(r.Profile.Name, "0", "120") {
		return dErrors.New(dErrors.CodeValidation, "profile.name must be at most 120 characters")
	}
	if !govalidator.StringLength(r.Profile.Department, "0", "120") {
		return dErrors.New(dErrors.CodeValidation, "profile.department must be at most 120 characters")
	}
	if !govalidator.StringLength(r.Profile.BadgeNumber, "0", "40") {
		return dErrors.New(dErrors.CodeValidation, "profile.badge_number must be at most 40 characters")
	}
	if r.Profile.Email != "" && !govalidator.IsEmail(r.Profile.Email) {
		return dErrors.New(dErrors.CodeValidation, "profile.email must be a valid email address")
	}

	return nil
}

// ParsedAddress returns the validated account address.
func (r *ConnectRequest) ParsedAddress() id.Address {
	return r.parsedAddress
}

// ParsedProfile converts the optional profile block into its domain form.
func (r *ConnectRequest) ParsedProfile() *identity.Profile {
	if r.Profile == nil {
		return nil
	}
	return &identity.Profile{
		Name:        r.Profile.Name,
		Department:  r.Profile.Department,
		BadgeNumber: r.Profile.BadgeNumber,
		Email:       r.Profile.Email,
	}
}
