package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	id "opencrvs/pkg/domain"
)

const (
	BirthTrackingIDSystem = "http://opencrvs.org/specs/id/birth-tracking-id"
	DeathTrackingIDSystem = "http://opencrvs.org/specs/id/death-tracking-id"

	CompositionDeathDeclaration = "death-declaration"
	InformantSectionCode        = "informant-details"
	MotherSectionCode           = "mother-details"
	TaskEventDeath              = "DEATH"
)

// ErrInvalidBundle is returned when a bundle has no usable first entry.
var ErrInvalidBundle = errors.New("invalid FHIR bundle")

// Bundle is a FHIR bundle. Resources are kept as raw JSON so a round trip
// preserves every field this package does not read.
type Bundle struct {
	ResourceType string  `json:"resourceType"`
	Type         string  `json:"type,omitempty"`
	Entry        []Entry `json:"entry,omitempty"`
}

type Entry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource"`
}

type coding struct {
	System string `json:"system,omitempty"`
	Code   string `json:"code"`
}

type codeableConcept struct {
	Coding []coding `json:"coding,omitempty"`
}

func (c *codeableConcept) first() string {
	if c == nil || len(c.Coding) == 0 {
		return ""
	}
	return c.Coding[0].Code
}

type identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value"`
}

type reference struct {
	Reference string `json:"reference"`
}

type section struct {
	Code  *codeableConcept `json:"code,omitempty"`
	Entry []reference      `json:"entry,omitempty"`
}

type humanName struct {
	Use    string   `json:"use,omitempty"`
	Given  []string `json:"given,omitempty"`
	Family string   `json:"family,omitempty"`
}

// resource is the subset of Composition, Task, RelatedPerson and Patient
// fields the workflow reads.
type resource struct {
	ResourceType string           `json:"resourceType"`
	Type         *codeableConcept `json:"type,omitempty"`
	Code         *codeableConcept `json:"code,omitempty"`
	Identifier   []identifier     `json:"identifier,omitempty"`
	Section      []section        `json:"section,omitempty"`
	Patient      *reference       `json:"patient,omitempty"`
	Name         []humanName      `json:"name,omitempty"`
}

func (e Entry) view() (resource, bool) {
	var r resource
	if len(e.Resource) == 0 || json.Unmarshal(e.Resource, &r) != nil {
		return resource{}, false
	}
	return r, true
}

func (b *Bundle) first() (resource, bool) {
	if b == nil || len(b.Entry) == 0 {
		return resource{}, false
	}
	return b.Entry[0].view()
}

func (b *Bundle) find(resourceType string) (int, resource, bool) {
	if b == nil {
		return -1, resource{}, false
	}
	for i, e := range b.Entry {
		if r, ok := e.view(); ok && r.ResourceType == resourceType {
			return i, r, true
		}
	}
	return -1, resource{}, false
}

func (b *Bundle) byURL(url string) (resource, bool) {
	if b == nil || url == "" {
		return resource{}, false
	}
	for _, e := range b.Entry {
		if e.FullURL == url {
			return e.view()
		}
	}
	return resource{}, false
}

// EventType reads whether the bundle records a birth or a death from its
// first entry: a Composition's type or a Task's code. Anything but an
// explicit death is a birth.
func EventType(b *Bundle) (id.EventType, error) {
	r, ok := b.first()
	if !ok {
		return "", ErrInvalidBundle
	}
	if r.ResourceType == "Composition" {
		if r.Type.first() == CompositionDeathDeclaration {
			return id.EventDeath, nil
		}
		return id.EventBirth, nil
	}
	if r.Code.first() == TaskEventDeath {
		return id.EventDeath, nil
	}
	return id.EventBirth, nil
}

func isTrackingSystem(system string) bool {
	return system == BirthTrackingIDSystem || system == DeathTrackingIDSystem
}

// TrackingID returns the tracking id recorded on the bundle's Task, or on
// its Composition when there is no Task.
func TrackingID(b *Bundle) (string, bool) {
	for _, rt := range []string{"Task", "Composition"} {
		_, r, ok := b.find(rt)
		if !ok {
			continue
		}
		for _, ident := range r.Identifier {
			if isTrackingSystem(ident.System) && ident.Value != "" {
				return ident.Value, true
			}
		}
	}
	return "", false
}

// SetTrackingID records trackingID on the bundle's Task, or on its
// Composition when there is no Task. An existing tracking id is replaced.
func SetTrackingID(b *Bundle, event id.EventType, trackingID string) error {
	idx, _, ok := b.find("Task")
	if !ok {
		idx, _, ok = b.find("Composition")
	}
	if !ok {
		return ErrInvalidBundle
	}

	var raw map[string]any
	if err := json.Unmarshal(b.Entry[idx].Resource, &raw); err != nil {
		return fmt.Errorf("decode resource: %w", err)
	}
	system := BirthTrackingIDSystem
	if event == id.EventDeath {
		system = DeathTrackingIDSystem
	}

	kept := []any{}
	if existing, ok := raw["identifier"].([]any); ok {
		for _, item := range existing {
			if m, ok := item.(map[string]any); ok {
				if s, _ := m["system"].(string); isTrackingSystem(s) {
					continue
				}
			}
			kept = append(kept, item)
		}
	}
	raw["identifier"] = append(kept, map[string]any{"system": system, "value": trackingID})

	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode resource: %w", err)
	}
	b.Entry[idx].Resource = encoded
	return nil
}

// InformantName follows the Composition's informant section to the
// informant's Patient resource and formats its first name. When there is no
// informant section the mother is used.
func InformantName(b *Bundle) (string, bool) {
	_, comp, ok := b.find("Composition")
	if !ok {
		return "", false
	}
	for _, code := range []string{InformantSectionCode, MotherSectionCode} {
		if name, ok := sectionPersonName(b, comp, code); ok {
			return name, true
		}
	}
	return "", false
}

func sectionPersonName(b *Bundle, comp resource, code string) (string, bool) {
	for _, s := range comp.Section {
		if s.Code.first() != code || len(s.Entry) == 0 {
			continue
		}
		r, ok := b.byURL(s.Entry[0].Reference)
		if !ok {
			return "", false
		}
		if r.ResourceType == "RelatedPerson" && r.Patient != nil {
			if r, ok = b.byURL(r.Patient.Reference); !ok {
				return "", false
			}
		}
		return formatName(r.Name)
	}
	return "", false
}

func formatName(names []humanName) (string, bool) {
	if len(names) == 0 {
		return "", false
	}
	n := names[0]
	parts := append(append([]string{}, n.Given...), n.Family)
	full := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return full, full != ""
}
