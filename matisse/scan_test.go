package matisse

import (
	"errors"
	"testing"
)

func TestScanWindow(t *testing.T) {
	positions, err := scanWindow(1000, 400, 4, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 200 {
		t.Fatalf("expected 200 positions, got %d", len(positions))
	}
	if positions[0] != 600 {
		t.Errorf("expected first position 600, got %d", positions[0])
	}
	if last := positions[len(positions)-1]; last != 1396 {
		t.Errorf("expected last position 1396, got %d", last)
	}
	for i := 1; i < len(positions); i++ {
		if positions[i]-positions[i-1] != 4 {
			t.Fatalf("positions not evenly stepped at index %d", i)
		}
	}
}

func TestScanWindowRejectsBadGeometry(t *testing.T) {
	cases := []struct {
		name                          string
		center, rng, step, upperLimit int
	}{
		{"below zero", 300, 400, 4, 5000},
		{"above upper limit", 4700, 400, 4, 5000},
		{"zero step", 1000, 400, 0, 5000},
		{"negative step", 1000, 400, -4, 5000},
		{"empty window", 1000, 0, 4, 5000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := scanWindow(tc.center, tc.rng, tc.step, tc.upperLimit); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBirefringentFilterScanFindsPowerMaximum(t *testing.T) {
	mc := newMockCommander()
	mc.bifiPos = 1000
	// diode power peaks at motor position 1100
	mc.power = func(pos int) float64 {
		d := float64(pos - 1100)
		return 1000 - d*d
	}
	wm := mockWavemeter{fn: func() (float64, error) {
		bifi, _ := mc.positions()
		return 740 + float64(bifi-1100)*0.001, nil
	}}
	m := newTestMatisse(t, mc, wm, testConfig())

	pos, err := m.BirefringentFilterScan()
	if err != nil {
		t.Fatal(err)
	}
	if pos != 1100 {
		t.Errorf("expected scan to land at 1100, got %d", pos)
	}
	if bifi, _ := mc.positions(); bifi != 1100 {
		t.Errorf("motor not left at the maximum, got %d", bifi)
	}
}

func TestThinEtalonScanFindsReflexMinimumWithNudge(t *testing.T) {
	mc := newMockCommander()
	mc.tePos = 1000
	// reflex signal dips at motor position 900
	mc.reflex = func(pos int) float64 {
		d := float64(pos - 900)
		return d * d
	}
	wm := mockWavemeter{fn: func() (float64, error) {
		_, te := mc.positions()
		return 740 + float64(te-900)*0.0001, nil
	}}
	m := newTestMatisse(t, mc, wm, testConfig())

	pos, err := m.ThinEtalonScan()
	if err != nil {
		t.Fatal(err)
	}
	// minimum at 900, plus the configured flank nudge
	want := 900 + m.cfg.ThinEtalon.Nudge
	if pos != want {
		t.Errorf("expected scan to land at %d, got %d", want, pos)
	}
	if _, te := mc.positions(); te != want {
		t.Errorf("motor not left on the flank, got %d", te)
	}
}

func TestFilterScanFailsWithoutExtrema(t *testing.T) {
	mc := newMockCommander()
	mc.bifiPos = 1000
	// monotone power has no interior maximum
	mc.power = func(pos int) float64 { return float64(pos) }
	m := newTestMatisse(t, mc, steadyWavemeter(740), testConfig())
	if _, err := m.BirefringentFilterScan(); err == nil {
		t.Error("expected an error when the signal has no local extrema")
	}
	// the motor must be back at the scan center
	if bifi, _ := mc.positions(); bifi != 1000 {
		t.Errorf("motor not restored to scan center, got %d", bifi)
	}
}

func TestFilterScanRejectsWindowNearTravelBound(t *testing.T) {
	mc := newMockCommander()
	mc.bifiPos = 300 // window would cross zero
	m := newTestMatisse(t, mc, steadyWavemeter(740), testConfig())
	_, err := m.BirefringentFilterScan()
	var rerr RangeError
	if !errors.As(err, &rerr) {
		t.Errorf("expected RangeError, got %v", err)
	}
}

func TestSetWavelengthRunsFullSequence(t *testing.T) {
	mc := newMockCommander()
	mc.bifiPos = 1000
	mc.tePos = 1000
	mc.power = func(pos int) float64 {
		d := float64(pos - 1100)
		return 1000 - d*d
	}
	mc.reflex = func(pos int) float64 {
		d := float64(pos - 900)
		return d * d
	}
	m := newTestMatisse(t, mc, steadyWavemeter(740.5), testConfig())

	if err := m.SetWavelength(740.5); err != nil {
		t.Fatal(err)
	}
	if wl, ok := m.TargetWavelength(); !ok || wl != 740.5 {
		t.Errorf("target not recorded: %g %v", wl, ok)
	}
	bifi, te := mc.positions()
	if bifi != 1100 {
		t.Errorf("birefringent filter not at power maximum, got %d", bifi)
	}
	if want := 900 + m.cfg.ThinEtalon.Nudge; te != want {
		t.Errorf("thin etalon not on the reflex flank, got %d want %d", te, want)
	}
}

func TestSetWavelengthRejectsOutOfRange(t *testing.T) {
	mc := newMockCommander()
	m := newTestMatisse(t, mc, steadyWavemeter(740), testConfig())
	err := m.SetWavelength(900)
	var rerr RangeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RangeError, got %v", err)
	}
	if _, ok := m.TargetWavelength(); ok {
		t.Error("rejected request must not set a target")
	}
	if cmds := mc.commands(); len(cmds) != 0 {
		t.Errorf("rejected request must not touch the hardware, got %v", cmds)
	}
}
