package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/panelprompt/auth-api/internal/core/domain"
	"github.com/panelprompt/auth-api/internal/core/ports"
)

const (
	DefaultProfileTable = "kyc_profiles"
	DashboardPath       = "/dashboard"
)

// AccountService implements signup and login on top of the external
// identity provider. Every provider failure is converted to a domain error
// here; nothing raw crosses this boundary.
type AccountService struct {
	gateways ports.GatewayBuilder
	table    string
	log      zerolog.Logger
}

func NewAccountService(gateways ports.GatewayBuilder, profileTable string, log zerolog.Logger) *AccountService {
	if profileTable == "" {
		profileTable = DefaultProfileTable
	}
	return &AccountService{gateways: gateways, table: profileTable, log: log}
}

// Signup creates the provider identity, then writes the profile row.
//
// The two writes are not atomic. If the insert fails the identity stays
// registered without a profile; the failure is logged with the identity id.
func (s *AccountService) Signup(ctx context.Context, in ports.SignupInput) (*ports.SignupResult, error) {
	gw, err := s.build(ctx, "signup")
	if err != nil {
		return nil, err
	}

	identity, err := gw.Identity().CreateAccount(ctx, in.Email, in.Password, map[string]any{
		"username":     in.Username,
		"phone_number": in.PhoneNumber,
	})
	if err != nil {
		if kindOf(err) == ports.FailureAlreadyExists {
			return nil, domain.ErrDuplicateAccount
		}
		s.log.Error().Err(err).Str("username", in.Username).Msg("identity creation failed")
		return nil, fmt.Errorf("signup: %w", domain.ErrIdentityProvider)
	}
	if identity == nil || identity.ID == "" {
		s.log.Error().Str("username", in.Username).Msg("identity provider returned no account id")
		return nil, fmt.Errorf("signup: %w", domain.ErrIdentityProvider)
	}

	profile := domain.Profile{
		IdentityID:  identity.ID,
		Username:    in.Username,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Address:     in.Address,
		Industry:    in.Industry,
		Profession:  in.Profession,
		CreditCard:  in.CreditCard,
	}
	if err := gw.Storage().Insert(ctx, s.table, profile); err != nil {
		s.log.Error().Err(err).
			Str("identity_id", identity.ID).
			Str("table", s.table).
			Msg("profile insert failed; identity left without profile")
		if kindOf(err) == ports.FailurePolicyDenied {
			return nil, domain.ErrAuthorizationDenied
		}
		return nil, fmt.Errorf("signup: %w", domain.ErrStorage)
	}

	s.log.Info().Str("identity_id", identity.ID).Msg("account created")
	return &ports.SignupResult{IdentityID: identity.ID}, nil
}

// Login resolves the username to an email through the profile table, then
// verifies the credential with the provider. The order matters: the provider
// has no notion of usernames.
//
// An unknown username and a wrong password both yield ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	gw, err := s.build(ctx, "login")
	if err != nil {
		return nil, err
	}

	rows, err := gw.Storage().SelectEq(ctx, s.table,
		[]string{domain.ProfileColumnEmail}, domain.ProfileColumnUsername, in.Username, 1)
	if err != nil {
		s.log.Error().Err(err).Str("table", s.table).Msg("username lookup failed")
		return nil, fmt.Errorf("login: %w", domain.ErrInternal)
	}
	if len(rows) == 0 {
		return nil, domain.ErrInvalidCredentials
	}

	email, _ := rows[0][domain.ProfileColumnEmail].(string)
	if email == "" {
		s.log.Error().Str("table", s.table).Msg("profile row has no email")
		return nil, fmt.Errorf("login: %w", domain.ErrInternal)
	}

	identity, err := gw.Identity().VerifyCredential(ctx, email, in.Password)
	if err != nil {
		var pe *ports.ProviderError
		switch {
		case !errors.As(err, &pe), pe.Kind == ports.FailureUnavailable:
			s.log.Error().Err(err).Msg("credential verification failed")
			return nil, fmt.Errorf("login: %w", domain.ErrInternal)
		case pe.Kind == ports.FailureEmailUnconfirmed:
			return nil, domain.ErrEmailUnconfirmed
		default:
			s.log.Debug().Err(err).Msg("credential rejected")
			return nil, domain.ErrInvalidCredentials
		}
	}
	if identity == nil || identity.ID == "" {
		return nil, domain.ErrInvalidCredentials
	}

	return &ports.LoginResult{RedirectTo: DashboardPath}, nil
}

func (s *AccountService) build(ctx context.Context, op string) (ports.Gateway, error) {
	gw, err := s.gateways.Build(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			s.log.Error().Err(err).Str("op", op).Msg("provider gateway not configured")
			return nil, err
		}
		s.log.Error().Err(err).Str("op", op).Msg("provider gateway unavailable")
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInternal)
	}
	return gw, nil
}

func kindOf(err error) ports.FailureKind {
	var pe *ports.ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ports.FailureUnknown
}
