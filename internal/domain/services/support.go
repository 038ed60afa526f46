package services

import "context"

// CaptchaData is what the captcha endpoint returns: the challenge image and
// a one-way fingerprint of the expected answer. The fingerprint, not the
// answer, round-trips through the client, so the server holds no captcha
// session state.
type CaptchaData struct {
	Image       []byte `json:"image"`
	Fingerprint string `json:"fingerprint"`
}

// SupportRequest is an anonymous support attempt.
type SupportRequest struct {
	DocumentID    string `json:"-"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	CaptchaAnswer string `json:"captcha"`
	Fingerprint   string `json:"fingerprint"`
}

// SupportService is the anonymous-support double-opt-in state machine:
// captcha issuance, token-backed email validation with a cool-down window,
// and final signature application idempotent per email.
type SupportService interface {
	RequestCaptcha(ctx context.Context) (*CaptchaData, error)

	// RequestSupport verifies the captcha and issues a validation token for
	// the email, triggering the validation mail. Fails with
	// ErrCaptchaMismatch, ErrConflict (already supported), ErrDocumentClosed
	// or ErrPendingValidation.
	RequestSupport(ctx context.Context, req *SupportRequest) error

	// ConfirmSupport consumes a validation token, appending exactly one
	// anonymous support to the referenced document. An unknown or already
	// consumed token fails with ErrNotFound.
	ConfirmSupport(ctx context.Context, token string) (*DocumentView, error)
}
