package matisse

import "log"

// SetWavelength configures the Matisse to output the given wavelength:
//
//  1. Coarse-position the birefringent filter from the commander's
//     wavelength calibration (good to about +-1 nm).
//  2. Scan the BiFi, measuring laser power at each step, and move to the
//     power maximum whose measured wavelength is closest to the target.
//  3. Scan the thin etalon, measuring the reflex at each step, and move
//     to the reflex minimum closest to the target, nudged onto the flank.
//
// A piezo-etalon fine-tuning stage would follow; its policy is not
// specified yet (see OptimizePiezoEtalon).
//
// The target is recorded before any scan runs, so the scans steer toward
// the requested value rather than whatever the wavemeter reads first.
func (m *Matisse) SetWavelength(wl float64) error {
	lo, hi := m.cfg.Wavelength.LowerLimit, m.cfg.Wavelength.UpperLimit
	if wl <= lo || wl >= hi {
		return RangeError{What: "wavelength", Value: wl, Lower: lo, Upper: hi}
	}
	m.setTarget(wl)
	log.Printf("setting BiFi to ~%g nm", wl)
	if err := m.SetBiFiWavelength(wl); err != nil {
		return err
	}
	if _, err := m.BirefringentFilterScan(); err != nil {
		return err
	}
	if _, err := m.ThinEtalonScan(); err != nil {
		return err
	}
	return nil
}
