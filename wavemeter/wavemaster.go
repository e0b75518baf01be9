// Package wavemeter provides a driver for the Coherent WaveMaster
// wavelength meter, used as the independent wavelength reference for the
// Matisse control loops.
package wavemeter

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/qdotlab/matisse/comm"
)

// ErrNoSignal is generated when the meter has no beam to measure.
type ErrNoSignal struct{}

func (ErrNoSignal) Error() string {
	return "wavemeter reports no signal; check beam alignment into the meter"
}

// makeSerConf makes a new serial.Config with correct parity, baud, etc, set.
func makeSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        19200,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 1 * time.Second}
}

// WaveMaster represents a WaveMaster wavelength meter.  It satisfies the
// matisse.Wavemeter interface.
type WaveMaster struct {
	dev *comm.RemoteDevice

	// one exchange at a time; the meter interleaves nothing
	mu sync.Mutex
}

// New returns a new WaveMaster.  addr is a serial port path.
func New(addr string) *WaveMaster {
	return &WaveMaster{dev: comm.NewRemoteDevice(addr, makeSerConf(addr))}
}

// Open connects to the meter.
func (wm *WaveMaster) Open() error {
	return wm.dev.Open()
}

// Close disconnects from the meter.
func (wm *WaveMaster) Close() error {
	return wm.dev.Close()
}

// GetRawValue returns the meter's response to a value query, e.g.
// "VAL, 740.1235" or "NO SIGNAL".
func (wm *WaveMaster) GetRawValue() (string, error) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	resp, err := wm.dev.SendRecv([]byte("VAL?"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(resp)), nil
}

// GetWavelength returns the measured wavelength in nanometers.
// Best-effort: a beamless meter returns ErrNoSignal rather than a value.
func (wm *WaveMaster) GetWavelength() (float64, error) {
	raw, err := wm.GetRawValue()
	if err != nil {
		return 0, err
	}
	return parseValue(raw)
}

func parseValue(raw string) (float64, error) {
	if strings.Contains(raw, "NO SIGNAL") {
		return 0, ErrNoSignal{}
	}
	// responses look like "VAL, 740.1235"; older firmware omits the label
	if idx := strings.LastIndex(raw, ","); idx >= 0 {
		raw = raw[idx+1:]
	}
	raw = strings.TrimSpace(raw)
	wl, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected wavemeter response %q", raw)
	}
	return wl, nil
}
