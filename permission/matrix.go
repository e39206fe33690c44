package permission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

var (
	// ErrUnknownResource is returned for a resource name outside the six protected resources.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrUnknownAction is returned for an action name other than read, write, delete.
	ErrUnknownAction = errors.New("unknown action")
)

// Resource is one of the protected entity categories.
type Resource uint8

const (
	Cases Resource = iota
	Evidences
	Reports
	Patients
	DentalRecords
	Users
	resourceCount
)

// Action is one of read, write, delete.
type Action uint8

const (
	Read Action = iota
	Write
	Delete
	actionCount
)

var resourceNames = [resourceCount]string{
	Cases:         "cases",
	Evidences:     "evidences",
	Reports:       "reports",
	Patients:      "patients",
	DentalRecords: "dentalRecords",
	Users:         "users",
}

var actionNames = [actionCount]string{
	Read:   "read",
	Write:  "write",
	Delete: "delete",
}

// Resources lists every protected resource in matrix order.
func Resources() []Resource {
	out := make([]Resource, 0, resourceCount)
	for r := Resource(0); r < resourceCount; r++ {
		out = append(out, r)
	}
	return out
}

// Actions lists every action in matrix order.
func Actions() []Action {
	return []Action{Read, Write, Delete}
}

// ParseResource maps a resource name to its enum value.
func ParseResource(name string) (Resource, error) {
	for r := Resource(0); r < resourceCount; r++ {
		if resourceNames[r] == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownResource, name)
}

// ParseAction maps an action name to its enum value.
func ParseAction(name string) (Action, error) {
	for a := Action(0); a < actionCount; a++ {
		if actionNames[a] == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Valid reports whether r names a protected resource.
func (r Resource) Valid() bool { return r < resourceCount }

func (r Resource) String() string {
	if !r.Valid() {
		return fmt.Sprintf("resource(%d)", r)
	}
	return resourceNames[r]
}

// Valid reports whether a is read, write or delete.
func (a Action) Valid() bool { return a < actionCount }

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", a)
	}
	return actionNames[a]
}

// Requirement names a single (resource, action) permission.
type Requirement struct {
	Resource Resource
	Action   Action
}

// String renders the requirement as "<resource>:<action>".
func (r Requirement) String() string {
	return r.Resource.String() + ":" + r.Action.String()
}

// ParseRequirement parses the "<resource>:<action>" form.
func ParseRequirement(s string) (Requirement, error) {
	resource, action, ok := strings.Cut(s, ":")
	if !ok {
		return Requirement{}, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	res, err := ParseResource(resource)
	if err != nil {
		return Requirement{}, err
	}
	act, err := ParseAction(action)
	if err != nil {
		return Requirement{}, err
	}
	return Requirement{Resource: res, Action: act}, nil
}

// Matrix is the total resource × action grid for one user.
type Matrix [resourceCount][actionCount]bool

// Allows reports whether the matrix grants action on resource. Out-of-range values are denied.
func (m Matrix) Allows(resource Resource, action Action) bool {
	if !resource.Valid() || !action.Valid() {
		return false
	}
	return m[resource][action]
}

// Set assigns a single leaf. Out-of-range values are ignored.
func (m *Matrix) Set(resource Resource, action Action, allowed bool) {
	if !resource.Valid() || !action.Valid() {
		return
	}
	m[resource][action] = allowed
}

// Map renders the matrix in its nested {resource:{action:bool}} form.
func (m Matrix) Map() map[string]map[string]bool {
	out := make(map[string]map[string]bool, resourceCount)
	for r := Resource(0); r < resourceCount; r++ {
		leaf := make(map[string]bool, actionCount)
		for a := Action(0); a < actionCount; a++ {
			leaf[actionNames[a]] = m[r][a]
		}
		out[resourceNames[r]] = leaf
	}
	return out
}

// MarshalJSON encodes the nested object form.
func (m Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Map())
}

// UnmarshalJSON decodes the nested object form. Missing leaves decode as false;
// unknown keys are rejected.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var p Partial
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	next, err := ApplyOverride(Matrix{}, p)
	if err != nil {
		return err
	}
	*m = next
	return nil
}

// Partial is a sparse override: only the supplied leaves are applied.
type Partial map[string]map[string]bool

// Validate rejects unknown resource or action keys.
func (p Partial) Validate() error {
	for resource, actions := range p {
		if _, err := ParseResource(resource); err != nil {
			return err
		}
		for action := range actions {
			if _, err := ParseAction(action); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyOverride replaces exactly the leaves present in p and keeps every other leaf of m.
// Nothing is applied when p contains an unknown key.
func ApplyOverride(m Matrix, p Partial) (Matrix, error) {
	if err := p.Validate(); err != nil {
		return m, err
	}
	out := m
	for resource, actions := range p {
		res, _ := ParseResource(resource)
		for action, allowed := range actions {
			act, _ := ParseAction(action)
			out[res][act] = allowed
		}
	}
	return out, nil
}
