package types

import "slices"

// String helps with making priority values more readable in logs and reports.
func (p PriorityLevel) String() string {
	switch p {
	case PriorityEmergency:
		return "EMERGENCY"
	case PriorityIoCritical:
		return "IO_CRITICAL"
	case PriorityAuthentication:
		return "AUTHENTICATION"
	case PriorityUiCritical:
		return "UI_CRITICAL"
	case PriorityNormal:
		return "NORMAL"
	case PriorityBackground:
		return "BACKGROUND"
	default:
		return "UNKNOWN"
	}
}

// IsValid checks if the level is one of the six defined priorities.
func (p PriorityLevel) IsValid() bool {
	return p >= PriorityEmergency && p < NumPriorityLevels
}

// MoreUrgentThan reports whether p is strictly more urgent than other.
// Lower numeric values are more urgent.
func (p PriorityLevel) MoreUrgentThan(other PriorityLevel) bool {
	return p < other
}

// String returns the mode name used in logs and diagnostic dumps.
func (m SystemMode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeEmergency:
		return "EMERGENCY"
	case ModeLoadShedding:
		return "LOAD_SHEDDING"
	case ModeMaintenance:
		return "MAINTENANCE"
	default:
		return "UNKNOWN"
	}
}

// IsValid checks if the mode is one of the four defined system modes.
func (m SystemMode) IsValid() bool {
	return m >= ModeNormal && m <= ModeMaintenance
}

// modeTransitions maps the valid system mode transitions. Emergency and
// LoadShedding are entered from and exited to Normal only; Maintenance is
// likewise reachable and leavable from Normal.
var modeTransitions = map[SystemMode][]SystemMode{
	ModeNormal:       {ModeEmergency, ModeLoadShedding, ModeMaintenance},
	ModeEmergency:    {ModeNormal},
	ModeLoadShedding: {ModeNormal},
	ModeMaintenance:  {ModeNormal},
}

// CanTransitionTo checks if a transition from the current mode to the target
// mode is valid. Re-entering the current mode is always allowed (a no-op).
func (m SystemMode) CanTransitionTo(target SystemMode) bool {
	if m == target {
		return true
	}
	validTargets, exists := modeTransitions[m]
	if !exists {
		return false
	}
	return slices.Contains(validTargets, target)
}

// String returns the worker name used in logs and reports.
func (k WorkerKind) String() string {
	switch k {
	case WorkerCritical:
		return "CRITICAL"
	case WorkerNormal:
		return "NORMAL"
	case WorkerBackground:
		return "BACKGROUND"
	default:
		return "UNKNOWN"
	}
}

// IsValid checks if the kind is one of the three defined workers.
func (k WorkerKind) IsValid() bool {
	return k >= WorkerCritical && k < NumWorkerKinds
}

// PriorityRange returns the contiguous priority range [min, max] drained by
// the worker kind.
func (k WorkerKind) PriorityRange() (min, max PriorityLevel) {
	switch k {
	case WorkerCritical:
		return PriorityEmergency, PriorityIoCritical
	case WorkerNormal:
		return PriorityAuthentication, PriorityUiCritical
	default:
		return PriorityNormal, PriorityBackground
	}
}
