package models

import (
	"strings"

	dErrors "opencrvs/pkg/domain-errors"
)

// Code bounds: six decimal digits.
const (
	CodeMin = 100000
	CodeMax = 999999
)

var (
	ErrCodeInvalid  = dErrors.New(dErrors.CodeUnauthorized, "sms code invalid")
	ErrCodeExpired  = dErrors.New(dErrors.CodeUnauthorized, "sms code expired")
	ErrCodeNotFound = dErrors.New(dErrors.CodeNotFound, "verification code not found")
)

// DefaultMaxAttempts is how many wrong codes a nonce tolerates before the
// code is discarded.
const DefaultMaxAttempts = 5

var mobileSeparators = strings.NewReplacer(" ", "", "-", "")

// CodeRecord is the stored form of an issued code. CreatedAt is unix millis.
// Attempts counts wrong codes submitted against it.
type CodeRecord struct {
	CodeHash  string `json:"codeHash"`
	Mobile    string `json:"mobile"`
	CreatedAt int64  `json:"createdAt"`
	Attempts  int    `json:"attempts,omitempty"`
}

// SendCodeRequest asks for a code to be sent to Mobile.
type SendCodeRequest struct {
	Mobile string `json:"mobile" validate:"required,e164"`
}

func (r *SendCodeRequest) Normalize() {
	r.Mobile = mobileSeparators.Replace(strings.TrimSpace(r.Mobile))
}

type SendCodeResponse struct {
	Nonce string `json:"nonce"`
}

// VerifyCodeRequest exchanges a received code for a user token.
type VerifyCodeRequest struct {
	Nonce string `json:"nonce" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

func (r *VerifyCodeRequest) Normalize() {
	r.Nonce = strings.TrimSpace(r.Nonce)
	r.Code = strings.TrimSpace(r.Code)
}

type VerifyCodeResponse struct {
	Token string `json:"token"`
}
