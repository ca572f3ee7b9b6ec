package shadow

import (
	"encoding/json"
	"fmt"
)

// State is one device-shadow document as served by GET /api/shadow.
// The zero value has no document and means "still loading".
type State struct {
	Timestamp int64     `json:"timestamp"`
	State     *Document `json:"state,omitempty"`

	raw json.RawMessage
}

// Document holds the reported and desired halves of the shadow.
type Document struct {
	Reported *Reported `json:"reported,omitempty"`
	Desired  *Desired  `json:"desired,omitempty"`
}

// Reported is what the device last reported.
type Reported struct {
	CurrentSetT float64 `json:"current_set_t"`
	CurrentT    float64 `json:"current_t"`
	DisplayT    float64 `json:"display_t"`
	Enable      bool    `json:"enable"`
	HeatCmd     string  `json:"heat_cmd"`
}

// Desired is the configuration the panel asks the device to adopt.
type Desired struct {
	Enable     bool  `json:"enable"`
	DefaultT   int   `json:"default_t"`
	OverrideT  int   `json:"override_t"`
	OverrideEx int64 `json:"override_ex"`
}

// ParseState decodes a shadow payload and keeps the raw bytes.
func ParseState(data []byte) (State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode shadow: %w", err)
	}
	state.raw = append(json.RawMessage(nil), data...)
	return state, nil
}

// Loaded reports whether the payload carried a state document.
func (s State) Loaded() bool {
	return s.State != nil
}

// Reported returns the reported half, or its zero value when absent.
func (s State) Reported() Reported {
	if s.State == nil || s.State.Reported == nil {
		return Reported{}
	}
	return *s.State.Reported
}

// Desired returns the desired half, or its zero value when absent.
func (s State) Desired() Desired {
	if s.State == nil || s.State.Desired == nil {
		return Desired{}
	}
	return *s.State.Desired
}

// Raw returns the payload exactly as received. It is nil for states built
// in code rather than parsed.
func (s State) Raw() json.RawMessage {
	return s.raw
}

// MarshalJSON re-emits the received payload so fields the panel does not
// model (metadata, version, delta) survive a round trip.
func (s State) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	type plain State
	return json.Marshal(plain(s))
}

// Delta is a partial desired state. Only non-nil fields are sent.
type Delta struct {
	Enable     *bool  `json:"enable,omitempty"`
	DefaultT   *int   `json:"default_t,omitempty"`
	OverrideT  *int   `json:"override_t,omitempty"`
	OverrideEx *int64 `json:"override_ex,omitempty"`
}

func EnableDelta(enable bool) Delta {
	return Delta{Enable: &enable}
}

func DefaultTempDelta(temp int) Delta {
	return Delta{DefaultT: &temp}
}

func OverrideTempDelta(temp int) Delta {
	return Delta{OverrideT: &temp}
}

func OverrideExpiryDelta(expiry int64) Delta {
	return Delta{OverrideEx: &expiry}
}

// Empty reports whether no field is set.
func (d Delta) Empty() bool {
	return d.Enable == nil && d.DefaultT == nil && d.OverrideT == nil && d.OverrideEx == nil
}

type updateRequest struct {
	State updateDocument `json:"state"`
}

type updateDocument struct {
	Desired Delta `json:"desired"`
}

type signinRequest struct {
	AccessToken string `json:"access_token"`
}

// SigninResult is the backend's answer to a sign-in attempt.
type SigninResult struct {
	State string `json:"state"`
	Msg   string `json:"msg"`
}

func (r SigninResult) OK() bool {
	return r.State == "OK"
}
