package handler

import (
	"strings"

	"github.com/panelprompt/auth-api/internal/core/domain"
	"github.com/panelprompt/auth-api/internal/core/ports"
)

// errorResponse documents the envelope written by the API error handler.
type errorResponse struct {
	Error   string                  `json:"error"`
	Details []domain.FieldViolation `json:"details,omitempty"`
}

type signupRequest struct {
	Username    string  `json:"username"     validate:"required,min=3,max=30"`
	Password    string  `json:"password"     validate:"required,min=8"`
	Email       string  `json:"email"        validate:"required,email"`
	PhoneNumber string  `json:"phone_number" validate:"required,min=7,max=20"`
	Address     string  `json:"address"      validate:"required,min=5,max=120"`
	Industry    string  `json:"industry"     validate:"required"`
	Profession  string  `json:"profession"   validate:"required"`
	CreditCard  *string `json:"credit_card"  validate:"omitempty,min=4,max=32"`
}

func (r *signupRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.Address = strings.TrimSpace(r.Address)
	if r.CreditCard != nil {
		card := strings.TrimSpace(*r.CreditCard)
		r.CreditCard = &card
	}
}

func (r *signupRequest) toInput() ports.SignupInput {
	return ports.SignupInput{
		Username:    r.Username,
		Password:    r.Password,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Address:     r.Address,
		Industry:    r.Industry,
		Profession:  r.Profession,
		CreditCard:  r.CreditCard,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Password string `json:"password" validate:"required,min=8"`
}

func (r *loginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type signupResponse struct {
	Message    string `json:"message"`
	IdentityID string `json:"identity_id"`
}

type redirectResponse struct {
	Message    string `json:"message"`
	RedirectTo string `json:"redirect_to"`
}
