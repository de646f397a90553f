package participant

import (
	"math"
	"sync"
)

// ConditionFunc answers a named CheckCondition call.
type ConditionFunc func(conv Conversation, p *Values) bool

// EventFunc handles a named OnDialogueEvent call.
type EventFunc func(conv Conversation, p *Values) bool

// Values is a map-backed Participant. Unknown values read as zero.
// It is safe for concurrent use; callbacks run without the lock held.
type Values struct {
	name string

	mu         sync.RWMutex
	ints       map[string]int
	floats     map[string]float64
	bools      map[string]bool
	names      map[string]string
	conditions map[string]ConditionFunc
	events     map[string]EventFunc
	fired      []string
}

// NewValues creates an empty participant called name.
func NewValues(name string) *Values {
	return &Values{
		name:       name,
		ints:       make(map[string]int),
		floats:     make(map[string]float64),
		bools:      make(map[string]bool),
		names:      make(map[string]string),
		conditions: make(map[string]ConditionFunc),
		events:     make(map[string]EventFunc),
	}
}

// State is a plain copy of a participant's values.
type State struct {
	Ints   map[string]int     `json:"ints,omitempty"`
	Floats map[string]float64 `json:"floats,omitempty"`
	Bools  map[string]bool    `json:"bools,omitempty"`
	Names  map[string]string  `json:"names,omitempty"`
	Events []string           `json:"events,omitempty"`
}

// FromState creates a participant seeded with the values in s.
func FromState(name string, s State) *Values {
	v := NewValues(name)
	for k, x := range s.Ints {
		v.ints[k] = x
	}
	for k, x := range s.Floats {
		v.floats[k] = x
	}
	for k, x := range s.Bools {
		v.bools[k] = x
	}
	for k, x := range s.Names {
		v.names[k] = x
	}
	return v
}

func (v *Values) ParticipantName() string { return v.name }

func (v *Values) IntValue(name string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ints[name]
}

func (v *Values) FloatValue(name string) float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.floats[name]
}

func (v *Values) BoolValue(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.bools[name]
}

func (v *Values) NameValue(name string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.names[name]
}

func (v *Values) ModifyIntValue(name string, isDelta bool, value int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if isDelta {
		v.ints[name] += value
		return
	}
	v.ints[name] = value
}

func (v *Values) ModifyFloatValue(name string, isDelta bool, value float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if isDelta {
		v.floats[name] += value
		return
	}
	v.floats[name] = value
}

func (v *Values) ModifyBoolValue(name string, value bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bools[name] = value
}

func (v *Values) ModifyNameValue(name string, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.names[name] = value
}

// SetInt, SetFloat, SetBool and SetName are host-side setters.
func (v *Values) SetInt(name string, value int)       { v.ModifyIntValue(name, false, value) }
func (v *Values) SetFloat(name string, value float64) { v.ModifyFloatValue(name, false, value) }
func (v *Values) SetBool(name string, value bool)     { v.ModifyBoolValue(name, value) }
func (v *Values) SetName(name string, value string)   { v.ModifyNameValue(name, value) }

// OnCondition registers the handler for CheckCondition(conditionName).
func (v *Values) OnCondition(conditionName string, fn ConditionFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.conditions[conditionName] = fn
}

// OnEvent registers the handler for OnDialogueEvent(eventName).
func (v *Values) OnEvent(eventName string, fn EventFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events[eventName] = fn
}

// CheckCondition runs the registered handler. Without one it falls back to
// the bool value of the same name.
func (v *Values) CheckCondition(conv Conversation, conditionName string) bool {
	v.mu.RLock()
	fn, ok := v.conditions[conditionName]
	fallback := v.bools[conditionName]
	v.mu.RUnlock()
	if !ok {
		return fallback
	}
	return fn(conv, v)
}

// OnDialogueEvent records the event name and runs the registered handler,
// if any. Unhandled events report false.
func (v *Values) OnDialogueEvent(conv Conversation, eventName string) bool {
	v.mu.Lock()
	v.fired = append(v.fired, eventName)
	fn, ok := v.events[eventName]
	v.mu.Unlock()
	if !ok {
		return false
	}
	return fn(conv, v)
}

// FiredEvents returns the names passed to OnDialogueEvent, oldest first.
func (v *Values) FiredEvents() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.fired...)
}

// Snapshot returns a deep copy of the current values.
func (v *Values) Snapshot() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := State{
		Ints:   make(map[string]int, len(v.ints)),
		Floats: make(map[string]float64, len(v.floats)),
		Bools:  make(map[string]bool, len(v.bools)),
		Names:  make(map[string]string, len(v.names)),
		Events: append([]string(nil), v.fired...),
	}
	for k, x := range v.ints {
		s.Ints[k] = x
	}
	for k, x := range v.floats {
		// NaN does not survive JSON encoding.
		if math.IsNaN(x) {
			continue
		}
		s.Floats[k] = x
	}
	for k, x := range v.bools {
		s.Bools[k] = x
	}
	for k, x := range v.names {
		s.Names[k] = x
	}
	return s
}
