package models

import (
	"strings"

	dErrors "opencrvs/pkg/domain-errors"
)

// Event is an external stimulus applied to an application's status pair.
type Event string

const (
	EventSubmit          Event = "SUBMIT"
	EventSubmitSucceeded Event = "SUBMIT_SUCCEEDED"
	EventSubmitFailed    Event = "SUBMIT_FAILED"
	EventRetrySubmit     Event = "RETRY_SUBMIT"
	EventMarkDeclared    Event = "MARK_DECLARED"
	EventMarkValidated   Event = "MARK_VALIDATED"
	EventMarkRegistered  Event = "MARK_REGISTERED"
	EventMarkRejected    Event = "MARK_REJECTED"
	EventMarkCertified   Event = "MARK_CERTIFIED"

	EventMakeDownloadable  Event = "MAKE_DOWNLOADABLE"
	EventDownload          Event = "DOWNLOAD"
	EventDownloadSucceeded Event = "DOWNLOAD_SUCCEEDED"
	EventDownloadFailed    Event = "DOWNLOAD_FAILED"
	EventRetryDownload     Event = "RETRY_DOWNLOAD"
)

// State is the independent (submission, download) status pair.
type State struct {
	Submission SubmissionStatus
	Download   DownloadStatus
}

type submissionRule map[SubmissionStatus]SubmissionStatus

type downloadRule struct {
	from         map[DownloadStatus]DownloadStatus
	acknowledged bool
}

var reviewable = []SubmissionStatus{StatusSubmitted, StatusDeclared, StatusValidated}

func fromAll(to SubmissionStatus, from ...SubmissionStatus) submissionRule {
	rule := make(submissionRule, len(from))
	for _, f := range from {
		rule[f] = to
	}
	return rule
}

var submissionTable = map[Event]submissionRule{
	EventSubmit:          {StatusDraft: StatusSubmitting},
	EventSubmitSucceeded: {StatusSubmitting: StatusSubmitted},
	EventSubmitFailed:    {StatusSubmitting: StatusFailed},
	EventRetrySubmit:     {StatusFailed: StatusSubmitting},
	EventMarkDeclared:    {StatusSubmitted: StatusDeclared},
	EventMarkValidated:   fromAll(StatusValidated, StatusSubmitted, StatusDeclared),
	EventMarkRegistered:  fromAll(StatusRegistered, reviewable...),
	EventMarkRejected:    fromAll(StatusRejected, reviewable...),
	EventMarkCertified:   {StatusRegistered: StatusCertified},
}

var downloadTable = map[Event]downloadRule{
	EventMakeDownloadable: {
		from:         map[DownloadStatus]DownloadStatus{DownloadNotDownloaded: DownloadReady},
		acknowledged: true,
	},
	EventDownload: {
		from:         map[DownloadStatus]DownloadStatus{DownloadReady: DownloadInProgress},
		acknowledged: true,
	},
	EventDownloadSucceeded: {
		from: map[DownloadStatus]DownloadStatus{DownloadInProgress: DownloadDone},
	},
	EventDownloadFailed: {
		from: map[DownloadStatus]DownloadStatus{DownloadInProgress: DownloadFailed},
	},
	EventRetryDownload: {
		from:         map[DownloadStatus]DownloadStatus{DownloadFailed: DownloadInProgress},
		acknowledged: true,
	},
}

// Events lists every event the table knows.
var Events = []Event{
	EventSubmit, EventSubmitSucceeded, EventSubmitFailed, EventRetrySubmit,
	EventMarkDeclared, EventMarkValidated, EventMarkRegistered, EventMarkRejected, EventMarkCertified,
	EventMakeDownloadable, EventDownload, EventDownloadSucceeded, EventDownloadFailed, EventRetryDownload,
}

// ParseEvent validates an event name supplied by a client.
func ParseEvent(raw string) (Event, error) {
	e := Event(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := submissionTable[e]; ok {
		return e, nil
	}
	if _, ok := downloadTable[e]; ok {
		return e, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown application event")
}

// Transition computes the next state for event. Pairs missing from the table
// leave the state unchanged and report changed=false.
func Transition(current State, event Event) (next State, changed bool) {
	next = current
	if rule, ok := submissionTable[event]; ok {
		if to, ok := rule[current.Submission]; ok {
			next.Submission = to
		}
	}
	if rule, ok := downloadTable[event]; ok {
		if !rule.acknowledged || current.Submission.IsAcknowledged() {
			if to, ok := rule.from[current.Download]; ok {
				next.Download = to
			}
		}
	}
	return next, next != current
}
