package matisse

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// mockCommander simulates the commander's ASCII protocol well enough to
// exercise the control core: two stepper motors with position and status
// registers, the diode power and thin etalon reflex signals, the
// continuous scan device, and the stabilization actuators.
type mockCommander struct {
	mu sync.Mutex

	bifiPos int
	tePos   int

	// power and reflex map a motor position to the respective signal
	power  func(pos int) float64
	reflex func(pos int) float64

	// statusQueue returns non-idle statuses before the motor settles
	statusQueue []int

	refCell     float64
	slowPiezo   float64
	piezoEtalon float64

	scanMode     int
	scanStatus   string
	risingSpeed  float64
	fallingSpeed float64

	controlStatus map[string]string
	fastPiezoLock bool

	log []string
}

func newMockCommander() *mockCommander {
	return &mockCommander{
		power:       func(int) float64 { return 0 },
		reflex:      func(int) float64 { return 0 },
		refCell:     0.35,
		slowPiezo:   0.35,
		piezoEtalon: 0,
		scanStatus:  "STOP",
		controlStatus: map[string]string{
			"SLOWPIEZO":   "RUN",
			"THINETALON":  "RUN",
			"PIEZOETALON": "RUN",
			"FASTPIEZO":   "RUN",
		},
		fastPiezoLock: true,
	}
}

func (mc *mockCommander) SendRecv(b []byte) ([]byte, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	cmd := strings.TrimSpace(string(b))
	mc.log = append(mc.log, cmd)
	resp, err := mc.handle(cmd)
	if err != nil {
		return nil, err
	}
	return []byte(resp), nil
}

func (mc *mockCommander) handle(cmd string) (string, error) {
	switch {
	case cmd == "ERROR:CLEAR":
		return "OK", nil
	case cmd == "ERROR:CODE?":
		return ":ERROR:CODE: 27", nil
	case cmd == "MOTBI:POS?":
		return fmt.Sprintf(":MOTBI:POS: %d", mc.bifiPos), nil
	case cmd == "MOTTE:POS?":
		return fmt.Sprintf(":MOTTE:POS: %d", mc.tePos), nil
	case strings.HasPrefix(cmd, "MOTBI:POS "):
		mc.bifiPos = atoi(cmd[len("MOTBI:POS "):])
		return "OK", nil
	case strings.HasPrefix(cmd, "MOTTE:POS "):
		mc.tePos = atoi(cmd[len("MOTTE:POS "):])
		return "OK", nil
	case cmd == "MOTBI:STATUS?" || cmd == "MOTTE:STATUS?":
		status := motorStatusIdle
		if len(mc.statusQueue) > 0 {
			status = mc.statusQueue[0]
			mc.statusQueue = mc.statusQueue[1:]
		}
		return fmt.Sprintf(":%s: %d", strings.TrimSuffix(cmd, "?"), status), nil
	case strings.HasPrefix(cmd, "MOTBI:WAVELENGTH "):
		// the commander's calibration is only good to ~1 nm; the mock's
		// is perfect and the tests offset it where that matters
		return "OK", nil
	case cmd == "DPOW:DC?":
		return fmt.Sprintf(":DPOW:DC: %g", mc.power(mc.bifiPos)), nil
	case cmd == "TE:DC?":
		return fmt.Sprintf(":TE:DC: %g", mc.reflex(mc.tePos)), nil
	case cmd == "SCAN:NOW?":
		return fmt.Sprintf(":SCAN:NOW: %g", mc.refCell), nil
	case strings.HasPrefix(cmd, "SCAN:NOW "):
		mc.refCell = atof(cmd[len("SCAN:NOW "):])
		return "OK", nil
	case cmd == "SLOWPIEZO:NOW?":
		return fmt.Sprintf(":SLOWPIEZO:NOW: %g", mc.slowPiezo), nil
	case strings.HasPrefix(cmd, "SLOWPIEZO:NOW "):
		mc.slowPiezo = atof(cmd[len("SLOWPIEZO:NOW "):])
		return "OK", nil
	case cmd == "PIEZOETALON:BASELINE?":
		return fmt.Sprintf(":PIEZOETALON:BASELINE: %g", mc.piezoEtalon), nil
	case strings.HasPrefix(cmd, "PIEZOETALON:BASELINE "):
		mc.piezoEtalon = atof(cmd[len("PIEZOETALON:BASELINE "):])
		return "OK", nil
	case strings.HasPrefix(cmd, "SCAN:MODE "):
		mc.scanMode = atoi(cmd[len("SCAN:MODE "):])
		return "OK", nil
	case cmd == "SCAN:STATUS RUN":
		mc.scanStatus = "RUN"
		return "OK", nil
	case cmd == "SCAN:STATUS STOP":
		mc.scanStatus = "STOP"
		return "OK", nil
	case strings.HasPrefix(cmd, "SCAN:RISINGSPEED "):
		mc.risingSpeed = atof(cmd[len("SCAN:RISINGSPEED "):])
		return "OK", nil
	case strings.HasPrefix(cmd, "SCAN:FALLINGSPEED "):
		mc.fallingSpeed = atof(cmd[len("SCAN:FALLINGSPEED "):])
		return "OK", nil
	case cmd == "FASTPIEZO:LOCK?":
		if mc.fastPiezoLock {
			return ":FASTPIEZO:LOCK: TRUE", nil
		}
		return ":FASTPIEZO:LOCK: FALSE", nil
	case strings.HasSuffix(cmd, ":CONTROLSTATUS?"):
		sub := strings.TrimSuffix(cmd, ":CONTROLSTATUS?")
		return fmt.Sprintf(":%s:CONTROLSTATUS: %s", sub, mc.controlStatus[sub]), nil
	case strings.Contains(cmd, ":CONTROLSTATUS "):
		pieces := strings.SplitN(cmd, ":CONTROLSTATUS ", 2)
		mc.controlStatus[pieces[0]] = pieces[1]
		return "OK", nil
	}
	return "!ERROR", nil
}

// commands returns a copy of every command received so far.
func (mc *mockCommander) commands() []string {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	out := make([]string, len(mc.log))
	copy(out, mc.log)
	return out
}

// resetLog clears the received-command log.
func (mc *mockCommander) resetLog() {
	mc.mu.Lock()
	mc.log = nil
	mc.mu.Unlock()
}

func (mc *mockCommander) positions() (bifi, te int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.bifiPos, mc.tePos
}

func (mc *mockCommander) actuators() (refCell, slowPiezo, piezoEtalon float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.refCell, mc.slowPiezo, mc.piezoEtalon
}

func (mc *mockCommander) scanState() (mode int, status string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.scanMode, mc.scanStatus
}

func atoi(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

// mockWavemeter satisfies Wavemeter with a closure.
type mockWavemeter struct {
	fn func() (float64, error)
}

func (w mockWavemeter) GetWavelength() (float64, error) { return w.fn() }
