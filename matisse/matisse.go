/*Package matisse controls a Sirah Matisse ring laser.

The package owns the serialized ASCII command link to the Matisse
commander and layers the wavelength-seeking machinery on top of it:
motorized positioning of the birefringent filter and thin etalon, the
power/reflex extremum scans used to land on a target wavelength, and the
background stabilization and lock-correction loops that hold the
wavelength against drift.

All commands flow through Query, which holds a mutex for the duration of
one command/response exchange; the commander services exactly one request
at a time regardless of how many goroutines are using the handle.
*/
package matisse

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/qdotlab/matisse/comm"
)

// Wavemeter measures the laser's output wavelength independently of the
// Matisse's own diagnostics.
type Wavemeter interface {
	// GetWavelength returns the current wavelength in nanometers.
	GetWavelength() (float64, error)
}

// Matisse is the control handle for one laser.  Create it with New.
// Methods are safe for concurrent use.
type Matisse struct {
	cfg       Config
	link      comm.SendRecver
	wavemeter Wavemeter

	// linkMu serializes command/response exchanges on the link.
	linkMu sync.Mutex

	// poll paces the motor idle-status spin loops so they do not
	// monopolize the link between status reads.
	poll *rate.Limiter

	mu              sync.Mutex // guards the fields below
	target          float64
	haveTarget      bool
	stabilization   *session
	lockCorrection  *session
	autoCorrections int
}

// New returns a Matisse speaking over the given link.  The commander's
// error queue is cleared so the session starts with a clean slate.
func New(cfg Config, link comm.SendRecver, wm Wavemeter) (*Matisse, error) {
	m := &Matisse{
		cfg:       cfg,
		link:      link,
		wavemeter: wm,
		poll:      rate.NewLimiter(rate.Every(motorPollInterval), 1),
	}
	if _, err := m.exchange("ERROR:CLEAR"); err != nil {
		return nil, err
	}
	return m, nil
}

// exchange performs one raw command/response exchange, holding the link
// for its duration.
func (m *Matisse) exchange(cmd string) (string, error) {
	m.linkMu.Lock()
	resp, err := m.link.SendRecv([]byte(cmd))
	m.linkMu.Unlock()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(resp)), nil
}

// Query sends a command to the Matisse and returns the response.
//
// Some commands (like setting the position of a stepper motor) take
// additional time to execute; an "OK" response does not mean the command
// has finished, only that it was accepted.  If the commander reports an
// error, the error codes are fetched, the error queue is cleared, and an
// InstrumentError is returned.
func (m *Matisse) Query(cmd string) (string, error) {
	resp, err := m.exchange(cmd)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(resp, "!ERROR") {
		codes, cerr := m.exchange("ERROR:CODE?")
		if cerr != nil {
			return "", cerr
		}
		if _, cerr = m.exchange("ERROR:CLEAR"); cerr != nil {
			return "", cerr
		}
		return "", InstrumentError{Command: cmd, Codes: codes}
	}
	return resp, nil
}

// QueryFloat sends a command and parses the second field of the response
// as a float, e.g. ":MOTBI:POS: 2000" => 2000.
func (m *Matisse) QueryFloat(cmd string) (float64, error) {
	resp, err := m.Query(cmd)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(resp)
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed response %q to command %q", resp, cmd)
	}
	return strconv.ParseFloat(fields[1], 64)
}

// QueryInt is QueryFloat truncated to an integer.
func (m *Matisse) QueryInt(cmd string) (int, error) {
	f, err := m.QueryFloat(cmd)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// WavemeterWavelength returns the wavelength in nanometers as measured by
// the wavemeter.
func (m *Matisse) WavemeterWavelength() (float64, error) {
	return m.wavemeter.GetWavelength()
}

// TargetWavelength returns the wavelength the control loops steer toward,
// and whether one has been set.
func (m *Matisse) TargetWavelength() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target, m.haveTarget
}

func (m *Matisse) setTarget(wl float64) {
	m.mu.Lock()
	m.target = wl
	m.haveTarget = true
	m.mu.Unlock()
}

// ensureTarget returns the target wavelength, adopting the wavemeter's
// current reading if no target has been set yet.  Scans run outside
// SetWavelength rely on this fallback.
func (m *Matisse) ensureTarget() (float64, error) {
	if wl, ok := m.TargetWavelength(); ok {
		return wl, nil
	}
	wl, err := m.wavemeter.GetWavelength()
	if err != nil {
		return 0, err
	}
	m.setTarget(wl)
	return wl, nil
}
