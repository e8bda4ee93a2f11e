package models

import (
	"strings"

	dErrors "opencrvs/pkg/domain-errors"
)

// Kind names an SMS template.
type Kind string

const (
	KindRaw               Kind = "sms"
	KindBirthDeclaration  Kind = "birthDeclarationSMS"
	KindBirthRegistration Kind = "birthRegistrationSMS"
	KindDeathDeclaration  Kind = "deathDeclarationSMS"
	KindDeathRegistration Kind = "deathRegistrationSMS"
)

// Path is the endpoint path the notification service serves kind on.
func (k Kind) Path() string {
	return "/" + string(k)
}

// IsDeclaration reports whether kind's template needs a tracking id.
func (k Kind) IsDeclaration() bool {
	return k == KindBirthDeclaration || k == KindDeathDeclaration
}

// SMSRequest sends message verbatim.
type SMSRequest struct {
	Msisdn  string `json:"msisdn" validate:"required,max=20"`
	Message string `json:"message" validate:"required,max=1600"`
}

func (r *SMSRequest) Normalize() {
	r.Msisdn = strings.TrimSpace(r.Msisdn)
}

// DeclarationSMSRequest confirms a new declaration to the informant.
type DeclarationSMSRequest struct {
	TrackingID string `json:"trackingid" validate:"required"`
	Msisdn     string `json:"msisdn" validate:"required,max=20"`
	Name       string `json:"name"`
}

func (r *DeclarationSMSRequest) Normalize() {
	r.TrackingID = strings.ToUpper(strings.TrimSpace(r.TrackingID))
	r.Msisdn = strings.TrimSpace(r.Msisdn)
	r.Name = strings.TrimSpace(r.Name)
}

// RegistrationSMSRequest tells the informant the event was registered.
type RegistrationSMSRequest struct {
	Msisdn string `json:"msisdn" validate:"required,max=20"`
	Name   string `json:"name"`
}

func (r *RegistrationSMSRequest) Normalize() {
	r.Msisdn = strings.TrimSpace(r.Msisdn)
	r.Name = strings.TrimSpace(r.Name)
}

// SendResponse acknowledges an accepted message.
type SendResponse struct {
	Status string `json:"status"`
}

// TemplateData is what message templates render from.
type TemplateData struct {
	Name       string
	TrackingID string
}

// ParseKind maps an endpoint name to a Kind.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.TrimPrefix(strings.TrimSpace(raw), "/"))
	switch k {
	case KindRaw, KindBirthDeclaration, KindBirthRegistration, KindDeathDeclaration, KindDeathRegistration:
		return k, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown notification kind")
}
