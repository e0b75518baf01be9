package matisse

import (
	"errors"
	"reflect"
	"testing"
)

func TestSetMotorPosRejectsOutOfRangeBeforeCommanding(t *testing.T) {
	mc := newMockCommander()
	m := newTestMatisse(t, mc, steadyWavemeter(740), testConfig())
	for _, pos := range []int{0, -100, 5000, 6000} {
		err := m.SetBiFiMotorPos(pos)
		var rerr RangeError
		if !errors.As(err, &rerr) {
			t.Errorf("position %d: expected RangeError, got %v", pos, err)
		}
	}
	if cmds := mc.commands(); len(cmds) != 0 {
		t.Errorf("rejected moves must not touch the hardware, got %v", cmds)
	}
}

func TestSetMotorPosWaitsBeforeAndAfter(t *testing.T) {
	mc := newMockCommander()
	m := newTestMatisse(t, mc, steadyWavemeter(740), testConfig())
	if err := m.SetBiFiMotorPos(1200); err != nil {
		t.Fatal(err)
	}
	want := []string{"MOTBI:STATUS?", "MOTBI:POS 1200", "MOTBI:STATUS?"}
	if cmds := mc.commands(); !reflect.DeepEqual(cmds, want) {
		t.Errorf("expected %v, got %v", want, cmds)
	}
	if bifi, _ := mc.positions(); bifi != 1200 {
		t.Errorf("motor did not land at 1200, got %d", bifi)
	}
}

func TestSetMotorPosPollsUntilIdle(t *testing.T) {
	mc := newMockCommander()
	m := newTestMatisse(t, mc, steadyWavemeter(740), testConfig())
	mc.statusQueue = []int{0x00, 0x13}
	if err := m.SetThinEtalonMotorPos(800); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"MOTTE:STATUS?", // busy
		"MOTTE:STATUS?", // still busy
		"MOTTE:STATUS?", // idle
		"MOTTE:POS 800",
		"MOTTE:STATUS?",
	}
	if cmds := mc.commands(); !reflect.DeepEqual(cmds, want) {
		t.Errorf("expected %v, got %v", want, cmds)
	}
}

func TestMotorStatusMasksHighBits(t *testing.T) {
	mc := newMockCommander()
	m := newTestMatisse(t, mc, steadyWavemeter(740), testConfig())
	// upper bits carry unrelated flags; 0x102 & 0xff == idle
	mc.statusQueue = []int{0x102}
	if err := m.SetBiFiMotorPos(1200); err != nil {
		t.Fatal(err)
	}
	if cmds := mc.commands(); len(cmds) != 3 {
		t.Errorf("high status bits must be ignored, got %v", cmds)
	}
}

func TestSetBiFiWavelengthBounds(t *testing.T) {
	mc := newMockCommander()
	m := newTestMatisse(t, mc, steadyWavemeter(740), testConfig())
	for _, wl := range []float64{699.9, 700, 800, 850} {
		err := m.SetBiFiWavelength(wl)
		var rerr RangeError
		if !errors.As(err, &rerr) {
			t.Errorf("wavelength %g: expected RangeError, got %v", wl, err)
		}
	}
	if err := m.SetBiFiWavelength(740); err != nil {
		t.Errorf("in-range wavelength rejected: %v", err)
	}
}
