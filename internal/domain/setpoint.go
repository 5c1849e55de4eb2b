package domain

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Defaults used when the setpoint record does not exist yet
const (
	DefaultTempSet = 18.0
	DefaultThSet   = 1.0
	DefaultThOuter = 5.0
)

// Form and payload field names shared by the controller and the dashboard
const (
	FieldTempInner       = "temp_inner"
	FieldTempOuter       = "temp_outer"
	FieldTempSet         = "temp_set"
	FieldThSet           = "th_set"
	FieldThOuter         = "th_outer"
	FieldControllerState = "controller_state"
)

// ControllerState is the on/off status the controller regulates with.
type ControllerState string

const (
	ControllerOn  ControllerState = "on"
	ControllerOff ControllerState = "off"
)

// ParseControllerState accepts "on" or "off", case-insensitively.
func ParseControllerState(s string) (ControllerState, error) {
	switch ControllerState(strings.ToLower(strings.TrimSpace(s))) {
	case ControllerOn:
		return ControllerOn, nil
	case ControllerOff:
		return ControllerOff, nil
	}
	return "", ErrInvalidControllerState
}

// SetpointConfig is the single record of what the controller should
// regulate toward. ControllerState is nil until something sets it.
type SetpointConfig struct {
	ID              int64
	TempSet         float64
	ThSet           float64
	ThOuter         float64
	ControllerState *ControllerState
}

// DefaultSetpoint returns the record created on first access.
func DefaultSetpoint() *SetpointConfig {
	return &SetpointConfig{
		TempSet: DefaultTempSet,
		ThSet:   DefaultThSet,
		ThOuter: DefaultThOuter,
	}
}

// Triple renders "<temp_set>,<th_set>,<th_outer>" in that fixed order.
func (c *SetpointConfig) Triple() string {
	return formatFloat(c.TempSet) + "," + formatFloat(c.ThSet) + "," + formatFloat(c.ThOuter)
}

// ParseSetpointTriple is the inverse of Triple.
func ParseSetpointTriple(s string) (*SetpointConfig, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return nil, &ValidationError{Err: fmt.Errorf("expected 3 comma separated values, got %d", len(parts))}
	}

	names := [3]string{FieldTempSet, FieldThSet, FieldThOuter}
	var vals [3]float64
	for i, p := range parts {
		v, err := parseReal(names[i], p)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	return &SetpointConfig{TempSet: vals[0], ThSet: vals[1], ThOuter: vals[2]}, nil
}

// Demand is what the controller should do about the inner temperature
type Demand string

const (
	DemandIdle Demand = "idle"
	DemandHeat Demand = "heat"
	DemandCool Demand = "cool"
)

// Demand classifies an inner reading against the hysteresis band
// [TempSet-ThSet, TempSet+ThSet]. Readings on the band edge are idle.
func (c *SetpointConfig) Demand(inner float64) Demand {
	switch {
	case inner > c.TempSet+c.ThSet:
		return DemandCool
	case inner < c.TempSet-c.ThSet:
		return DemandHeat
	}
	return DemandIdle
}

// AmbientDeviates reports whether the outer sensor is outside TempSet±ThOuter
func (c *SetpointConfig) AmbientDeviates(outer float64) bool {
	return math.Abs(outer-c.TempSet) > c.ThOuter
}

// SetpointUpdate replaces all three numeric fields at once.
type SetpointUpdate struct {
	TempSet         float64
	ThSet           float64
	ThOuter         float64
	ControllerState *ControllerState
}

// Validate rejects values that are not finite real numbers.
func (u SetpointUpdate) Validate() error {
	checks := []struct {
		field string
		v     float64
	}{
		{FieldTempSet, u.TempSet},
		{FieldThSet, u.ThSet},
		{FieldThOuter, u.ThOuter},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return &ValidationError{Field: c.field, Err: ErrNotANumber}
		}
	}
	if u.ControllerState != nil {
		if _, err := ParseControllerState(string(*u.ControllerState)); err != nil {
			return &ValidationError{Field: FieldControllerState, Err: err}
		}
	}
	return nil
}

// ParseSetpointForm reads temp_set, th_set and th_outer from an operator
// form. It is all-or-nothing: the first missing or unparseable field
// rejects the whole update. controller_state is optional.
func ParseSetpointForm(form url.Values) (SetpointUpdate, error) {
	var vals [3]float64
	for i, field := range []string{FieldTempSet, FieldThSet, FieldThOuter} {
		raw, ok := form[field]
		if !ok || len(raw) == 0 {
			return SetpointUpdate{}, &ValidationError{Field: field, Err: ErrMissingField}
		}
		v, err := parseReal(field, raw[0])
		if err != nil {
			return SetpointUpdate{}, err
		}
		vals[i] = v
	}

	upd := SetpointUpdate{TempSet: vals[0], ThSet: vals[1], ThOuter: vals[2]}

	if raw := strings.TrimSpace(form.Get(FieldControllerState)); raw != "" {
		state, err := ParseControllerState(raw)
		if err != nil {
			return SetpointUpdate{}, &ValidationError{Field: FieldControllerState, Err: err}
		}
		upd.ControllerState = &state
	}

	return upd, nil
}

func parseReal(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &ValidationError{Field: field, Err: ErrMissingField}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: field, Err: ErrNotANumber}
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
