package logic

// TempAdvisor reports the heating/cooling action for the filtered temperature.
// The sensor reads higher as the room gets colder, so a value above the band
// asks for heat.
type TempAdvisor struct {
	target    float64
	tolerance float64
}

// NewTempAdvisor creates an advisor for target ± tolerance.
func NewTempAdvisor(target, tolerance float64) *TempAdvisor {
	return &TempAdvisor{target: target, tolerance: tolerance}
}

// Evaluate returns the report for the current state and filtered reading.
func (a *TempAdvisor) Evaluate(state ActivationState, temp float64) TempReport {
	if state != StateHome {
		return TempInactive
	}
	switch {
	case temp > a.target+a.tolerance:
		return TempHeating
	case temp < a.target-a.tolerance:
		return TempCooling
	default:
		return TempSatisfied
	}
}

// LightAdvisor turns the lights on when the room is too dark while Home.
// Once on they stay on until the system goes Away.
type LightAdvisor struct {
	target float64
	on     bool
}

// NewLightAdvisor creates an advisor with lights off. Brightness readings
// above target mean the room is too dark.
func NewLightAdvisor(target float64) *LightAdvisor {
	return &LightAdvisor{target: target}
}

// Evaluate returns the report for the current state and filtered brightness.
func (a *LightAdvisor) Evaluate(state ActivationState, brightness float64) LightReport {
	if state != StateHome {
		a.on = false
		return LightInactive
	}
	if !a.on && brightness > a.target {
		a.on = true
	}
	if a.on {
		return LightSwitchedOn
	}
	return LightLeftOff
}

// On reports whether the lights-on flag is set.
func (a *LightAdvisor) On() bool {
	return a.on
}

// Status returns the lights-on flag as a display status.
func (a *LightAdvisor) Status() LightStatus {
	if a.on {
		return LightOn
	}
	return LightOff
}
