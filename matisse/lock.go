package matisse

import (
	"log"
	"time"
)

// StartLaserLockCorrection starts the lock-correction loop, which watches
// the laser lock condition and intervenes when the lock has been lost for
// longer than the configured timeout.  Starting while already running
// warns and does nothing.
//
// The only intervention performed is the one configuration exposes: a
// reset of the stabilization piezos to their neutral positions.  A
// smarter policy (driving the fast piezo setpoint from the reference cell
// spectrum) is not specified yet; see RecommendedFastPiezoSetpoint.
func (m *Matisse) StartLaserLockCorrection() {
	// claim the session slot under the lock so concurrent starts cannot
	// both install a loop
	s := newSession()
	m.mu.Lock()
	if m.lockCorrection != nil && m.lockCorrection.alive() {
		m.mu.Unlock()
		log.Println("WARNING: lock correction is already running")
		return
	}
	m.lockCorrection = s
	m.mu.Unlock()
	log.Println("starting laser lock correction")
	go m.lockCorrectionLoop(s, m.cfg.Locking.Timeout(), m.cfg.Locking.Poll())
}

func (m *Matisse) lockCorrectionLoop(s *session, timeout, poll time.Duration) {
	defer close(s.done)
	deadline := time.Now().Add(timeout)
	for {
		if s.stopped() {
			return
		}
		locked, err := m.LaserLocked()
		if err != nil {
			log.Println("lock correction loop terminated:", err)
			return
		}
		if locked {
			deadline = time.Now().Add(timeout)
		} else if time.Now().After(deadline) {
			log.Printf("WARNING: laser failed to lock within %s; resetting stabilization piezos", timeout)
			if err := m.ResetStabilizationPiezos(); err != nil {
				log.Println("lock correction loop terminated:", err)
				return
			}
			deadline = time.Now().Add(timeout)
		}
		time.Sleep(poll)
	}
}

// StopLaserLockCorrection stops the lock-correction loop and blocks until
// its goroutine has exited.  A warning is logged if it is not running.
func (m *Matisse) StopLaserLockCorrection() {
	// take ownership of the session under the lock; only the caller that
	// wins the swap closes the stop channel
	m.mu.Lock()
	s := m.lockCorrection
	if s == nil || !s.alive() {
		m.mu.Unlock()
		log.Println("WARNING: lock correction is not running")
		return
	}
	m.lockCorrection = nil
	m.mu.Unlock()
	close(s.stop)
	<-s.done
}

// IsLockCorrectionOn reports whether the lock-correction loop is running.
func (m *Matisse) IsLockCorrectionOn() bool {
	m.mu.Lock()
	s := m.lockCorrection
	m.mu.Unlock()
	return s != nil && s.alive()
}
