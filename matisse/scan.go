package matisse

import (
	"fmt"
	"math"

	"github.com/qdotlab/matisse/mathx"
)

// extremumKind selects which kind of extremum a filter scan hunts for.
type extremumKind int

const (
	seekMaxima extremumKind = iota
	seekMinima
)

// extremumOrder is the neighborhood half-width for local extremum search:
// a candidate must beat every sample within this many steps on each side.
const extremumOrder = 5

// filterScan describes one sweep of a motorized filter.
type filterScan struct {
	motor     motor
	signalCmd string
	rng       int
	step      int
	window    int
	polyorder int
	kind      extremumKind
	nudge     int
}

// scanWindow produces the positions of one scan pass: the half-open
// interval [center-rng, center+rng) stepped by step.  The whole window
// must lie strictly inside (0, upperLimit).
func scanWindow(center, rng, step, upperLimit int) ([]int, error) {
	lower := center - rng
	upper := center + rng
	if step <= 0 {
		return nil, fmt.Errorf("scan step must be positive, got %d", step)
	}
	if lower <= 0 || upper >= upperLimit || lower >= upper {
		return nil, RangeError{
			What:  "scan window center",
			Value: float64(center),
			Lower: float64(rng),
			Upper: float64(upperLimit - rng),
		}
	}
	positions := make([]int, 0, (upper-lower+step-1)/step)
	for pos := lower; pos < upper; pos += step {
		positions = append(positions, pos)
	}
	return positions, nil
}

// runFilterScan sweeps the motor across its scan window, samples the
// response signal at each step, and moves to the extremum whose measured
// wavelength is closest to the target.  It returns the final position.
//
// A single corrupted sample can shift which neighborhood is judged
// extremal; the smoothing pass is the only mitigation.  There are no
// retries.
func (m *Matisse) runFilterScan(s filterScan) (int, error) {
	target, err := m.ensureTarget()
	if err != nil {
		return 0, err
	}
	center, err := m.QueryInt(s.motor.prefix + ":POS?")
	if err != nil {
		return 0, err
	}
	positions, err := scanWindow(center, s.rng, s.step, s.motor.upperLimit)
	if err != nil {
		return 0, err
	}

	// one full hardware round trip per sample; duration scales with
	// window size over step
	signal := make([]float64, 0, len(positions))
	for _, pos := range positions {
		if err := m.setMotorPos(s.motor, pos); err != nil {
			return 0, err
		}
		v, err := m.QueryFloat(s.signalCmd)
		if err != nil {
			return 0, err
		}
		signal = append(signal, v)
	}
	// return to where we started, in case the analysis below fails
	if err := m.setMotorPos(s.motor, center); err != nil {
		return 0, err
	}

	smoothed, err := mathx.SavitzkyGolay(signal, s.window, s.polyorder)
	if err != nil {
		return 0, err
	}
	var extrema []int
	if s.kind == seekMaxima {
		extrema = mathx.LocalMaxima(smoothed, extremumOrder)
	} else {
		extrema = mathx.LocalMinima(smoothed, extremumOrder)
	}
	if len(extrema) == 0 {
		return 0, fmt.Errorf("%s scan found no local extrema; laser may be misaligned or unpowered", s.motor.name)
	}

	// revisit each candidate and let the wavemeter arbitrate
	bestPos := 0
	bestDiff := math.Inf(1)
	for _, idx := range extrema {
		pos := positions[idx]
		if err := m.setMotorPos(s.motor, pos); err != nil {
			return 0, err
		}
		wl, err := m.wavemeter.GetWavelength()
		if err != nil {
			return 0, err
		}
		if diff := math.Abs(wl - target); diff < bestDiff {
			bestDiff = diff
			bestPos = pos
		}
	}
	// bias off the exact extremum onto the locking flank
	bestPos += s.nudge
	if err := m.setMotorPos(s.motor, bestPos); err != nil {
		return 0, err
	}
	return bestPos, nil
}

// BirefringentFilterScan scans the birefringent filter and moves it to
// the laser-power maximum closest to the target wavelength.  If no target
// has been set, the wavemeter's current reading is adopted.  It returns
// the chosen motor position.
func (m *Matisse) BirefringentFilterScan() (int, error) {
	return m.runFilterScan(filterScan{
		motor:     m.bifiMotor(),
		signalCmd: "DPOW:DC?",
		rng:       m.cfg.BiFi.ScanRange,
		step:      m.cfg.BiFi.ScanStep,
		window:    m.cfg.BiFi.SmoothingWindow,
		polyorder: m.cfg.BiFi.SmoothingPolyorder,
		kind:      seekMaxima,
	})
}

// ThinEtalonScan scans the thin etalon and moves it to the reflex minimum
// closest to the target wavelength, nudged off the minimum so the etalon
// locks on the flank rather than the extremum.  It returns the chosen
// motor position.
func (m *Matisse) ThinEtalonScan() (int, error) {
	return m.runFilterScan(filterScan{
		motor:     m.thinEtalonMotor(),
		signalCmd: "TE:DC?",
		rng:       m.cfg.ThinEtalon.ScanRange,
		step:      m.cfg.ThinEtalon.ScanStep,
		window:    m.cfg.ThinEtalon.SmoothingWindow,
		polyorder: m.cfg.ThinEtalon.SmoothingPolyorder,
		kind:      seekMinima,
		nudge:     m.cfg.ThinEtalon.Nudge,
	})
}
