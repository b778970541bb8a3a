package supabase

import (
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/panelprompt/auth-api/internal/core/ports"
)

// PostgreSQL error codes surfaced by PostgREST.
const (
	pgInsufficientPrivilege = "42501"
	pgUniqueViolation       = "23505"
)

// apiError covers both error envelopes: GoTrue ({code, error_code, msg} or
// {error, error_description}) and PostgREST ({code, message, details, hint}).
type apiError struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorName        string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
}

func (e *apiError) code() string {
	switch {
	case e.ErrorCode != "":
		return e.ErrorCode
	case e.Code != nil:
		return fmt.Sprint(e.Code)
	default:
		return e.ErrorName
	}
}

func (e *apiError) message() string {
	for _, m := range []string{e.Msg, e.Message, e.ErrorDescription, e.ErrorName} {
		if m != "" {
			return m
		}
	}
	return ""
}

func transportError(op string, err error) *ports.ProviderError {
	return &ports.ProviderError{Op: op, Kind: ports.FailureUnavailable, Message: err.Error(), Err: err}
}

func responseError(op string, resp *resty.Response, body *apiError) *ports.ProviderError {
	pe := &ports.ProviderError{
		Op:      op,
		Status:  resp.StatusCode(),
		Code:    body.code(),
		Message: body.message(),
	}
	if pe.Message == "" {
		pe.Message = truncate(resp.String(), 200)
	}
	return pe
}

// classifyAuth maps a GoTrue error response to a failure kind.
func classifyAuth(op string, resp *resty.Response, body *apiError) *ports.ProviderError {
	pe := responseError(op, resp, body)
	msg := strings.ToLower(pe.Message)
	switch {
	case pe.Code == "user_already_exists", pe.Code == "email_exists",
		strings.Contains(msg, "user already registered"):
		pe.Kind = ports.FailureAlreadyExists
	case pe.Code == "email_not_confirmed", strings.Contains(msg, "email not confirmed"):
		pe.Kind = ports.FailureEmailUnconfirmed
	case pe.Code == "invalid_credentials", pe.Code == "invalid_grant":
		pe.Kind = ports.FailureUnauthenticated
	}
	return pe
}

// classifyRest maps a PostgREST error response to a failure kind.
func classifyRest(op string, resp *resty.Response, body *apiError) *ports.ProviderError {
	pe := responseError(op, resp, body)
	switch pe.Code {
	case pgInsufficientPrivilege:
		pe.Kind = ports.FailurePolicyDenied
	case pgUniqueViolation:
		pe.Kind = ports.FailureAlreadyExists
	}
	return pe
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
