package models

import (
	"maps"
	"slices"
	"strings"
	"time"

	id "opencrvs/pkg/domain"
	dErrors "opencrvs/pkg/domain-errors"
)

// Data holds form values as section -> field -> value.
type Data map[string]map[string]any

// Application is one birth or death record being drafted, submitted or printed.
type Application struct {
	ID               id.ApplicationID `json:"id"`
	Event            id.EventType     `json:"event"`
	SubmissionStatus SubmissionStatus `json:"submissionStatus"`
	DownloadStatus   DownloadStatus   `json:"downloadStatus"`
	Data             Data             `json:"data"`
	TrackingID       string           `json:"trackingId,omitempty"`
	CompositionID    string           `json:"compositionId,omitempty"`
	SavedOn          time.Time        `json:"savedOn"`
	ModifiedOn       time.Time        `json:"modifiedOn,omitzero"`
}

// New returns an empty draft.
func New(event id.EventType, now time.Time) Application {
	return Application{
		ID:               id.NewApplicationID(),
		Event:            event,
		SubmissionStatus: StatusDraft,
		DownloadStatus:   DownloadNotDownloaded,
		Data:             Data{},
		SavedOn:          now,
	}
}

func (a Application) State() State {
	return State{Submission: a.SubmissionStatus, Download: a.DownloadStatus}
}

func (a *Application) SetState(s State) {
	a.SubmissionStatus = s.Submission
	a.DownloadStatus = s.Download
}

// Validate checks the fields a client may send. Statuses may be left empty.
func (a Application) Validate() error {
	if a.ID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "application id is required")
	}
	if !a.Event.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "event must be birth or death")
	}
	if a.SubmissionStatus != "" && !a.SubmissionStatus.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown submission status")
	}
	if a.DownloadStatus != "" && !a.DownloadStatus.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown download status")
	}
	return nil
}

// Clone deep-copies the form data so callers cannot mutate registry state.
func (a Application) Clone() Application {
	a.Data = a.Data.Clone()
	return a
}

func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for section, fields := range d {
		copied := make(map[string]any, len(fields))
		for k, v := range fields {
			copied[k] = cloneValue(v)
		}
		out[section] = copied
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// MergeData applies patch over base section by section. A nil field value
// deletes the field, a nil section deletes the whole section, and sections
// left empty are dropped.
func MergeData(base, patch Data) Data {
	out := base.Clone()
	if out == nil {
		out = Data{}
	}
	for section, fields := range patch {
		if fields == nil {
			delete(out, section)
			continue
		}
		merged := out[section]
		if merged == nil {
			merged = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = cloneValue(v)
		}
		if len(merged) == 0 {
			delete(out, section)
			continue
		}
		out[section] = merged
	}
	return out
}

// MergeDownloaded lays server data over the local copy. Server values win
// field by field; local id, timestamps and statuses are kept.
func MergeDownloaded(local Application, server Data) Application {
	merged := local.Clone()
	if merged.Data == nil {
		merged.Data = Data{}
	}
	for section, fields := range server {
		target := merged.Data[section]
		if target == nil {
			target = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			if v != nil {
				target[k] = cloneValue(v)
			}
		}
		if len(target) > 0 {
			merged.Data[section] = target
		}
	}
	return merged
}

// Snapshot is the persisted form of one user's registry.
type Snapshot struct {
	UserID       id.UserID     `json:"userId"`
	Applications []Application `json:"applications"`
}

// Worklist names a filtered view over a registry.
type Worklist string

const (
	WorklistAll            Worklist = "all"
	WorklistInProgress     Worklist = "in-progress"
	WorklistSentForReview  Worklist = "sent-for-review"
	WorklistRequireUpdates Worklist = "require-updates"
	WorklistReadyToPrint   Worklist = "ready-to-print"
	WorklistOutbox         Worklist = "outbox"
)

var worklistStatuses = map[Worklist][]SubmissionStatus{
	WorklistInProgress:     {StatusDraft},
	WorklistSentForReview:  {StatusSubmitted, StatusDeclared, StatusValidated},
	WorklistRequireUpdates: {StatusRejected},
	WorklistReadyToPrint:   {StatusRegistered},
	WorklistOutbox:         {StatusSubmitting, StatusFailed},
}

// ParseWorklist accepts a worklist name; empty means all.
func ParseWorklist(raw string) (Worklist, error) {
	w := Worklist(strings.ToLower(strings.TrimSpace(raw)))
	if w == "" || w == WorklistAll {
		return WorklistAll, nil
	}
	if _, ok := worklistStatuses[w]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown worklist")
	}
	return w, nil
}

// Predicate returns the registry filter for the worklist.
func (w Worklist) Predicate() func(Application) bool {
	statuses, ok := worklistStatuses[w]
	if !ok {
		return func(Application) bool { return true }
	}
	set := make(map[SubmissionStatus]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return func(a Application) bool {
		_, ok := set[a.SubmissionStatus]
		return ok
	}
}

// Sections returns the section names present in d.
func (d Data) Sections() []string {
	return slices.Sorted(maps.Keys(d))
}
