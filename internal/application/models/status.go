package models

import (
	"strings"

	dErrors "opencrvs/pkg/domain-errors"
)

// SubmissionStatus tracks an application's journey to the gateway.
type SubmissionStatus string

const (
	StatusDraft      SubmissionStatus = "DRAFT"
	StatusSubmitting SubmissionStatus = "SUBMITTING"
	StatusSubmitted  SubmissionStatus = "SUBMITTED"
	StatusFailed     SubmissionStatus = "FAILED"

	// Server-reported refinements of SUBMITTED.
	StatusDeclared   SubmissionStatus = "DECLARED"
	StatusValidated  SubmissionStatus = "VALIDATED"
	StatusRegistered SubmissionStatus = "REGISTERED"
	StatusRejected   SubmissionStatus = "REJECTED"
	StatusCertified  SubmissionStatus = "CERTIFIED"
)

// SubmissionStatuses lists every submission state.
var SubmissionStatuses = []SubmissionStatus{
	StatusDraft, StatusSubmitting, StatusSubmitted, StatusFailed,
	StatusDeclared, StatusValidated, StatusRegistered, StatusRejected, StatusCertified,
}

func (s SubmissionStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitting, StatusSubmitted, StatusFailed,
		StatusDeclared, StatusValidated, StatusRegistered, StatusRejected, StatusCertified:
		return true
	}
	return false
}

// IsAcknowledged reports whether the gateway has confirmed the application,
// which is what makes download events meaningful.
func (s SubmissionStatus) IsAcknowledged() bool {
	switch s {
	case StatusDeclared, StatusValidated, StatusRegistered, StatusRejected, StatusCertified:
		return true
	}
	return false
}

// DownloadStatus tracks fetching the server copy of an acknowledged application.
type DownloadStatus string

const (
	DownloadNotDownloaded DownloadStatus = "NOT_DOWNLOADED"
	DownloadReady         DownloadStatus = "READY_TO_DOWNLOAD"
	DownloadInProgress    DownloadStatus = "DOWNLOADING"
	DownloadDone          DownloadStatus = "DOWNLOADED"
	DownloadFailed        DownloadStatus = "FAILED"
)

// DownloadStatuses lists every download state.
var DownloadStatuses = []DownloadStatus{
	DownloadNotDownloaded, DownloadReady, DownloadInProgress, DownloadDone, DownloadFailed,
}

func (s DownloadStatus) IsValid() bool {
	switch s {
	case DownloadNotDownloaded, DownloadReady, DownloadInProgress, DownloadDone, DownloadFailed:
		return true
	}
	return false
}

// ParseServerStatus maps a registration status reported by the gateway to a
// submission refinement. Unknown values fall back to SUBMITTED.
func ParseServerStatus(raw string) SubmissionStatus {
	switch s := SubmissionStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusDeclared, StatusValidated, StatusRegistered, StatusRejected, StatusCertified:
		return s
	}
	return StatusSubmitted
}

// ParseSubmissionStatus validates a status supplied by a client.
func ParseSubmissionStatus(raw string) (SubmissionStatus, error) {
	s := SubmissionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown submission status")
	}
	return s, nil
}
