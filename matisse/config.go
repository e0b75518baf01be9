package matisse

import "time"

// Config holds every tunable the control core reads.  The zero value is
// not usable; start from DefaultConfig and override fields from a config
// file.  All durations are expressed in seconds so the config file reads
// the same way the instrument manual does.
type Config struct {
	// Wavelength bounds the coarse BiFi wavelength command.
	Wavelength WavelengthConfig `yaml:"wavelength" koanf:"wavelength"`

	// BiFi configures the birefringent filter motor and its power scan.
	BiFi FilterConfig `yaml:"bifi" koanf:"bifi"`

	// ThinEtalon configures the thin etalon motor and its reflex scan.
	ThinEtalon FilterConfig `yaml:"thin_etalon" koanf:"thin_etalon"`

	// Stabilization configures the drift-compensation loop.
	Stabilization StabilizationConfig `yaml:"stabilization" koanf:"stabilization"`

	// Correction holds the neutral positions the stabilization actuators
	// are reset to when one of them saturates.
	Correction CorrectionConfig `yaml:"correction" koanf:"correction"`

	// Limits holds the travel bounds of the stabilization actuators.
	Limits LimitsConfig `yaml:"limits" koanf:"limits"`

	// Locking configures the lock-correction loop.
	Locking LockingConfig `yaml:"locking" koanf:"locking"`

	// WavemeterPrecision is the number of decimal places the wavemeter
	// reports; drift is rounded to this precision.
	WavemeterPrecision int `yaml:"wavemeter_precision" koanf:"wavemeter_precision"`
}

// WavelengthConfig bounds requested wavelengths, in nanometers.
type WavelengthConfig struct {
	LowerLimit float64 `yaml:"lower_limit" koanf:"lower_limit"`
	UpperLimit float64 `yaml:"upper_limit" koanf:"upper_limit"`
}

// FilterConfig describes one motorized filter and its scan.
type FilterConfig struct {
	// UpperLimit is the hard bound of the motor's travel; commanded
	// positions must satisfy 0 < pos < UpperLimit.
	UpperLimit int `yaml:"upper_limit" koanf:"upper_limit"`

	// ScanRange is the half-width of the scan window around the current
	// position, and ScanStep the position increment between samples.
	ScanRange int `yaml:"scan_range" koanf:"scan_range"`
	ScanStep  int `yaml:"scan_step" koanf:"scan_step"`

	// SmoothingWindow and SmoothingPolyorder parameterize the
	// Savitzky-Golay filter applied to scan data before extremum search.
	SmoothingWindow    int `yaml:"smoothing_window" koanf:"smoothing_window"`
	SmoothingPolyorder int `yaml:"smoothing_polyorder" koanf:"smoothing_polyorder"`

	// Nudge is added to the chosen position after extremum selection to
	// bias off the exact extremum onto the locking flank.  Only the thin
	// etalon uses it.
	Nudge int `yaml:"nudge" koanf:"nudge"`
}

// StabilizationConfig parameterizes the drift-compensation loop.
type StabilizationConfig struct {
	// RisingSpeed and FallingSpeed are the reference cell scan speeds
	// configured when the loop starts.
	RisingSpeed  float64 `yaml:"rising_speed" koanf:"rising_speed"`
	FallingSpeed float64 `yaml:"falling_speed" koanf:"falling_speed"`

	// Tolerance is the allowed |target - measured| in nanometers.
	Tolerance float64 `yaml:"tolerance" koanf:"tolerance"`

	// DelaySeconds is the pause between loop iterations.
	DelaySeconds float64 `yaml:"delay" koanf:"delay"`
}

// Delay returns the polling delay as a duration.
func (c StabilizationConfig) Delay() time.Duration {
	return secsToDuration(c.DelaySeconds)
}

// CorrectionConfig holds the neutral actuator positions used by the
// saturation correction.
type CorrectionConfig struct {
	PiezoEtalonPos float64 `yaml:"piezo_etalon_pos" koanf:"piezo_etalon_pos"`
	SlowPiezoPos   float64 `yaml:"slow_piezo_pos" koanf:"slow_piezo_pos"`
	RefCellPos     float64 `yaml:"refcell_pos" koanf:"refcell_pos"`
}

// ActuatorLimit is the travel bound of one continuous actuator.
type ActuatorLimit struct {
	Lower float64 `yaml:"lower" koanf:"lower"`
	Upper float64 `yaml:"upper" koanf:"upper"`
}

// LimitsConfig holds the travel bounds of the three stabilization
// actuators and the margin at which they are considered saturated.
type LimitsConfig struct {
	RefCell     ActuatorLimit `yaml:"refcell" koanf:"refcell"`
	SlowPiezo   ActuatorLimit `yaml:"slow_piezo" koanf:"slow_piezo"`
	PiezoEtalon ActuatorLimit `yaml:"piezo_etalon" koanf:"piezo_etalon"`

	// Offset is the distance from a bound at which an actuator counts as
	// having reached it.
	Offset float64 `yaml:"offset" koanf:"offset"`
}

// LockingConfig parameterizes the lock-correction loop.
type LockingConfig struct {
	// TimeoutSeconds is how long the laser may remain unlocked before
	// the loop intervenes.
	TimeoutSeconds float64 `yaml:"timeout" koanf:"timeout"`

	// PollSeconds is the pause between lock checks.
	PollSeconds float64 `yaml:"poll" koanf:"poll"`
}

// Timeout returns the lock timeout as a duration.
func (c LockingConfig) Timeout() time.Duration { return secsToDuration(c.TimeoutSeconds) }

// Poll returns the lock polling delay as a duration.
func (c LockingConfig) Poll() time.Duration { return secsToDuration(c.PollSeconds) }

// DefaultConfig returns the configuration for the laser in its delivered
// state.  Motor limits and scan parameters follow the commissioning
// values for this Matisse; override them from a config file when the
// hardware is re-ranged.
func DefaultConfig() Config {
	return Config{
		Wavelength: WavelengthConfig{LowerLimit: 700, UpperLimit: 800},
		BiFi: FilterConfig{
			UpperLimit:         130000,
			ScanRange:          400,
			ScanStep:           4,
			SmoothingWindow:    31,
			SmoothingPolyorder: 3,
		},
		ThinEtalon: FilterConfig{
			UpperLimit:         45000,
			ScanRange:          2000,
			ScanStep:           20,
			SmoothingWindow:    41,
			SmoothingPolyorder: 3,
			Nudge:              50,
		},
		Stabilization: StabilizationConfig{
			RisingSpeed:  0.005,
			FallingSpeed: 0.005,
			Tolerance:    0.0005,
			DelaySeconds: 0.5,
		},
		Correction: CorrectionConfig{
			PiezoEtalonPos: 0.0,
			SlowPiezoPos:   0.35,
			RefCellPos:     0.35,
		},
		Limits: LimitsConfig{
			RefCell:     ActuatorLimit{Lower: 0, Upper: 0.7},
			SlowPiezo:   ActuatorLimit{Lower: 0, Upper: 0.7},
			PiezoEtalon: ActuatorLimit{Lower: -1, Upper: 1},
			Offset:      0.05,
		},
		Locking: LockingConfig{
			TimeoutSeconds: 7,
			PollSeconds:    1,
		},
		WavemeterPrecision: 3,
	}
}

func secsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
