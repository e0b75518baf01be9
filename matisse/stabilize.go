package matisse

import (
	"log"
	"math"
	"time"

	"github.com/qdotlab/matisse/mathx"
)

// session is one run of a background control loop.  The controller closes
// stop to request shutdown; the loop closes done when it exits, whether
// by request or because a hardware call failed.
type session struct {
	stop chan struct{}
	done chan struct{}
}

func newSession() *session {
	return &session{stop: make(chan struct{}), done: make(chan struct{})}
}

// stopped reports whether a stop has been requested.  Checked once per
// iteration; an iteration's hardware calls always run to completion.
func (s *session) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// alive reports whether the loop goroutine is still running.
func (s *session) alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// StabilizeOn starts the stabilization loop, which keeps the measured
// wavelength within tolerance of the target by scanning the reference
// cell.  Pass zero for tolerance or delay to use the configured values.
// If no target wavelength has been set, the wavemeter's current reading
// is adopted.  Starting while already stabilizing warns and does nothing.
func (m *Matisse) StabilizeOn(tolerance float64, delay time.Duration) error {
	// claim the session slot before any setup so concurrent starts race on
	// the pointer swap, not on a stale IsStabilizing read
	s := newSession()
	m.mu.Lock()
	if m.stabilization != nil && m.stabilization.alive() {
		m.mu.Unlock()
		log.Println("WARNING: already stabilizing laser; call StabilizeOff before trying again")
		return nil
	}
	m.stabilization = s
	m.mu.Unlock()
	if tolerance <= 0 {
		tolerance = m.cfg.Stabilization.Tolerance
	}
	if delay <= 0 {
		delay = m.cfg.Stabilization.Delay()
	}
	target, err := m.ensureTarget()
	if err != nil {
		m.releaseStabilization(s)
		return err
	}
	// stop any running scan just in case, and configure scan speeds
	if err := m.StopScan(); err != nil {
		m.releaseStabilization(s)
		return err
	}
	if _, err := m.Query("SCAN:RISINGSPEED " + formatFloat(m.cfg.Stabilization.RisingSpeed)); err != nil {
		m.releaseStabilization(s)
		return err
	}
	if _, err := m.Query("SCAN:FALLINGSPEED " + formatFloat(m.cfg.Stabilization.FallingSpeed)); err != nil {
		m.releaseStabilization(s)
		return err
	}
	log.Printf("stabilizing laser at %g nm", target)
	go m.stabilize(s, tolerance, delay)
	return nil
}

// releaseStabilization abandons a claimed session whose loop never
// started: the done channel is closed so waiters unblock, and the slot is
// cleared if it still holds this session.
func (m *Matisse) releaseStabilization(s *session) {
	close(s.done)
	m.mu.Lock()
	if m.stabilization == s {
		m.stabilization = nil
	}
	m.mu.Unlock()
}

// stabilize is the loop body runner.  Any hardware error is fatal to the
// loop only: it is logged, the loop exits, and IsStabilizing goes false.
func (m *Matisse) stabilize(s *session, tolerance float64, delay time.Duration) {
	defer close(s.done)
	for {
		if s.stopped() {
			if err := m.StopScan(); err != nil {
				log.Println("stabilization: error stopping scan on shutdown:", err)
			}
			return
		}
		if err := m.stabilizeOnce(tolerance); err != nil {
			log.Println("stabilization loop terminated:", err)
			return
		}
		time.Sleep(delay)
	}
}

// stabilizeOnce performs one iteration of the stabilization state
// machine: measure drift, and either track (scan stopped), correct drift
// (scan up or down), or reset saturated actuators.
func (m *Matisse) stabilizeOnce(tolerance float64) error {
	current, err := m.wavemeter.GetWavelength()
	if err != nil {
		return err
	}
	target, _ := m.TargetWavelength()
	unit := math.Pow(10, -float64(m.cfg.WavemeterPrecision))
	drift := mathx.Round(target-current, unit)
	if math.Abs(drift) <= tolerance {
		// within tolerance, hold the scan stopped
		return m.StopScan()
	}
	limited, err := m.IsAnyLimitReached()
	if err != nil {
		return err
	}
	if limited {
		return m.stabilizationCorrection(current, drift)
	}
	if drift < 0 {
		// measured wavelength is too high
		log.Printf("wavelength high by %g nm, scanning down", -drift)
		return m.StartScan(ScanModeDown)
	}
	log.Printf("wavelength low by %g nm, scanning up", drift)
	return m.StartScan(ScanModeUp)
}

// stabilizationCorrection handles actuator saturation: stop the scan and
// reset the stabilization piezos to their neutral positions.  This is a
// safety fallback, not part of normal tracking.
func (m *Matisse) stabilizationCorrection(current, drift float64) error {
	log.Printf("WARNING: an actuator hit a limit while adjusting the RefCell "+
		"(wavelength %g nm, drift %g nm); resetting stabilization piezos", current, drift)
	if err := m.StopScan(); err != nil {
		return err
	}
	if err := m.ResetStabilizationPiezos(); err != nil {
		return err
	}
	m.mu.Lock()
	m.autoCorrections++
	m.mu.Unlock()
	return nil
}

// StabilizeOff stops the stabilization loop and blocks until its
// goroutine has exited.  A warning is logged if the loop is not running.
func (m *Matisse) StabilizeOff() {
	// take ownership of the session under the lock; only the caller that
	// wins the swap closes the stop channel
	m.mu.Lock()
	s := m.stabilization
	if s == nil || !s.alive() {
		m.mu.Unlock()
		log.Println("WARNING: stabilization loop is not running")
		return
	}
	m.stabilization = nil
	m.mu.Unlock()
	close(s.stop)
	<-s.done
	log.Println("stabilization loop stopped")
}

// IsStabilizing reports whether the stabilization loop is running.  A
// loop that died from a hardware error reports false.
func (m *Matisse) IsStabilizing() bool {
	m.mu.Lock()
	s := m.stabilization
	m.mu.Unlock()
	return s != nil && s.alive()
}
