package authsdk

import (
	"context"
	"net/http"
)

// EnrollMFA starts TOTP enrolment and returns the new secret. Calling it again
// before VerifyMFA replaces the pending secret.
func (s *Session) EnrollMFA(ctx context.Context) (*MFAEnrollResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/auth/mfa/enroll", nil)
	if err != nil {
		return nil, err
	}

	var out MFAEnrollResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFA confirms enrolment with a current code and enables MFA.
func (s *Session) VerifyMFA(ctx context.Context, code string) (*MFAVerifyResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/auth/mfa/verify", MFAVerifyRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var out MFAVerifyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
