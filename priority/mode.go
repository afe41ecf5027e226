package priority

import (
	"time"

	"github.com/ryswick/floodgate/types"
)

// Mode returns the current system mode.
func (m *Manager) Mode() types.SystemMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetMode transitions the system mode. Setting the current mode is a no-op;
// transitions the state machine does not allow return ErrInvalidTransition.
func (m *Manager) SetMode(mode types.SystemMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setModeLocked(mode)
}

func (m *Manager) setModeLocked(mode types.SystemMode) error {
	if !mode.IsValid() {
		return ErrInvalidMode
	}
	if mode == m.mode {
		return nil
	}
	if !m.mode.CanTransitionTo(mode) {
		return ErrInvalidTransition
	}

	old := m.mode
	m.mode = mode

	if old == types.ModeEmergency {
		m.emergencyEnteredAt = time.Time{}
		m.emergencyTimeout = 0
	}

	m.logger.Infow("system mode changed", "from", old.String(), "to", mode.String())
	m.metrics.ObserveModeChange(old, mode)
	return nil
}

// EnterEmergencyMode switches to Emergency mode. A positive timeout arms
// auto-expiry: worker loops revert the mode to Normal once the timeout has
// elapsed. Zero timeout means emergency mode persists until explicitly
// exited.
func (m *Manager) EnterEmergencyMode(timeout time.Duration) error {
	if !m.cfg.EnableEmergencyMode {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.setModeLocked(types.ModeEmergency); err != nil {
		return err
	}
	m.emergencyEnteredAt = m.clock.Now()
	m.emergencyTimeout = timeout
	if m.monitoring.Load() {
		m.stats.emergencyActivations++
	}
	m.logger.Warnw("emergency mode entered", "timeout", timeout)
	return nil
}

// ExitEmergencyMode reverts from Emergency to Normal mode.
func (m *Manager) ExitEmergencyMode() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != types.ModeEmergency {
		return ErrNotInEmergency
	}
	return m.setModeLocked(types.ModeNormal)
}

// SetLoadSheddingEnabled toggles load-shedding mode. Enabling takes effect
// only from Normal mode; disabling only from LoadShedding mode.
func (m *Manager) SetLoadSheddingEnabled(enable bool) error {
	if !m.cfg.EnableLoadShedding {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case enable && m.mode == types.ModeNormal:
		if err := m.setModeLocked(types.ModeLoadShedding); err != nil {
			return err
		}
		if m.monitoring.Load() {
			m.stats.loadSheddingActivations++
		}
	case !enable && m.mode == types.ModeLoadShedding:
		return m.setModeLocked(types.ModeNormal)
	}
	return nil
}

// checkEmergencyExpiry reverts an expired timed emergency to Normal mode.
// Called cooperatively from worker loops; worst-case latency to auto-exit is
// one loop iteration. Reports whether an expiry happened.
func (m *Manager) checkEmergencyExpiry() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != types.ModeEmergency || m.emergencyTimeout == 0 {
		return false
	}
	if m.clock.Now().Sub(m.emergencyEnteredAt) <= m.emergencyTimeout {
		return false
	}

	m.logger.Infow("emergency mode timeout reached, returning to normal")
	if err := m.setModeLocked(types.ModeNormal); err != nil {
		m.logger.Errorw("emergency auto-exit failed", "error", err)
		return false
	}
	return true
}

// SystemLoad returns aggregate queue occupancy as a percentage: total queued
// requests over total configured capacity, capped at 100.
func (m *Manager) SystemLoad() int {
	totalCapacity := m.queues.TotalCapacity()
	if totalCapacity == 0 {
		return 0
	}
	load := m.queues.TotalDepth() * 100 / totalCapacity
	if load > 100 {
		load = 100
	}
	return load
}

// IsHighLoad reports whether the current load exceeds the shedding threshold.
func (m *Manager) IsHighLoad() bool {
	return m.SystemLoad() > m.cfg.LoadSheddingThreshold
}
