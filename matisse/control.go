package matisse

import (
	"strconv"
	"strings"
)

// ScanMode is the direction of the continuous reference cell scan.
type ScanMode int

const (
	// ScanModeUp increases the reference cell position, raising the
	// output wavelength.
	ScanModeUp ScanMode = 0

	// ScanModeDown decreases the reference cell position, lowering the
	// output wavelength.
	ScanModeDown ScanMode = 1
)

// StartScan starts the continuous reference cell scan in the given
// direction.
func (m *Matisse) StartScan(mode ScanMode) error {
	if _, err := m.Query("SCAN:MODE " + strconv.Itoa(int(mode))); err != nil {
		return err
	}
	_, err := m.Query("SCAN:STATUS RUN")
	return err
}

// StopScan halts the continuous reference cell scan.
func (m *Matisse) StopScan() error {
	_, err := m.Query("SCAN:STATUS STOP")
	return err
}

func runStop(enable bool) string {
	if enable {
		return "RUN"
	}
	return "STOP"
}

// SetSlowPiezoControl enables or disables the slow piezo control loop.
func (m *Matisse) SetSlowPiezoControl(enable bool) error {
	_, err := m.Query("SLOWPIEZO:CONTROLSTATUS " + runStop(enable))
	return err
}

// SetFastPiezoControl enables or disables the fast piezo control loop.
func (m *Matisse) SetFastPiezoControl(enable bool) error {
	_, err := m.Query("FASTPIEZO:CONTROLSTATUS " + runStop(enable))
	return err
}

// SetThinEtalonControl enables or disables the thin etalon control loop.
func (m *Matisse) SetThinEtalonControl(enable bool) error {
	_, err := m.Query("THINETALON:CONTROLSTATUS " + runStop(enable))
	return err
}

// SetPiezoEtalonControl enables or disables the piezo etalon control loop.
func (m *Matisse) SetPiezoEtalonControl(enable bool) error {
	_, err := m.Query("PIEZOETALON:CONTROLSTATUS " + runStop(enable))
	return err
}

// AllControlLoopsOn reports whether the slow piezo, thin etalon, piezo
// etalon, and fast piezo control loops are all running.
func (m *Matisse) AllControlLoopsOn() (bool, error) {
	for _, cmd := range []string{
		"SLOWPIEZO:CONTROLSTATUS?",
		"THINETALON:CONTROLSTATUS?",
		"PIEZOETALON:CONTROLSTATUS?",
		"FASTPIEZO:CONTROLSTATUS?",
	} {
		resp, err := m.Query(cmd)
		if err != nil {
			return false, err
		}
		if !strings.Contains(resp, "RUN") {
			return false, nil
		}
	}
	return true, nil
}

// FastPiezoLocked reports whether the fast piezo feedback loop has
// acquired its lock.
func (m *Matisse) FastPiezoLocked() (bool, error) {
	resp, err := m.Query("FASTPIEZO:LOCK?")
	if err != nil {
		return false, err
	}
	return strings.Contains(resp, "TRUE"), nil
}

// LaserLocked reports whether the laser is locked: all control loops
// running and the fast piezo lock acquired.
func (m *Matisse) LaserLocked() (bool, error) {
	on, err := m.AllControlLoopsOn()
	if err != nil || !on {
		return false, err
	}
	return m.FastPiezoLocked()
}

// IsAnyLimitReached reports whether the reference cell, slow piezo, or
// piezo etalon is within the configured offset of one of its travel
// bounds.  Pure predicate; it commands nothing.
func (m *Matisse) IsAnyLimitReached() (bool, error) {
	checks := []struct {
		cmd   string
		limit ActuatorLimit
	}{
		{"SCAN:NOW?", m.cfg.Limits.RefCell},
		{"SLOWPIEZO:NOW?", m.cfg.Limits.SlowPiezo},
		{"PIEZOETALON:BASELINE?", m.cfg.Limits.PiezoEtalon},
	}
	offset := m.cfg.Limits.Offset
	for _, c := range checks {
		pos, err := m.QueryFloat(c.cmd)
		if err != nil {
			return false, err
		}
		if pos <= c.limit.Lower+offset || pos >= c.limit.Upper-offset {
			return true, nil
		}
	}
	return false, nil
}

// ResetStabilizationPiezos returns the piezo etalon, slow piezo, and
// reference cell to their configured neutral positions.  This sacrifices
// lock quality to pull the actuators away from saturation.
func (m *Matisse) ResetStabilizationPiezos() error {
	cmds := []string{
		"PIEZOETALON:BASELINE " + formatFloat(m.cfg.Correction.PiezoEtalonPos),
		"SLOWPIEZO:NOW " + formatFloat(m.cfg.Correction.SlowPiezoPos),
		"SCAN:NOW " + formatFloat(m.cfg.Correction.RefCellPos),
	}
	for _, cmd := range cmds {
		if _, err := m.Query(cmd); err != nil {
			return err
		}
	}
	return nil
}

// AutoCorrections returns how many saturation corrections the
// stabilization loop has performed.
func (m *Matisse) AutoCorrections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoCorrections
}

// OptimizePiezoEtalon would fine-tune the piezo etalon after the motor
// scans.  The tuning policy has not been specified.
func (m *Matisse) OptimizePiezoEtalon() error {
	return ErrNotImplemented
}

// RefCellTransmissionSpectrum would measure the reference cell
// transmission spectrum via the commander's table scan.  Not specified.
func (m *Matisse) RefCellTransmissionSpectrum() error {
	return ErrNotImplemented
}

// RecommendedFastPiezoSetpoint would derive a fast piezo setpoint from
// the reference cell spectrum.  Not specified.
func (m *Matisse) RecommendedFastPiezoSetpoint() (float64, error) {
	return 0, ErrNotImplemented
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
