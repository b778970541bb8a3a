package ports

import "context"

// SignupInput carries a validated, normalized signup submission.
type SignupInput struct {
	Username    string
	Password    string
	Email       string
	PhoneNumber string
	Address     string
	Industry    string
	Profession  string
	CreditCard  *string // optional
}

// LoginInput carries a validated login submission.
type LoginInput struct {
	Username string
	Password string
}

// SignupResult is returned after the identity and the profile row exist.
type SignupResult struct {
	IdentityID string
}

// LoginResult tells the caller where to go next. No local session is issued.
type LoginResult struct {
	RedirectTo string
}

// AccountService defines the signup and login use cases.
type AccountService interface {
	Signup(ctx context.Context, input SignupInput) (*SignupResult, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
}
