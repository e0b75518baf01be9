package matisse

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	// motorStatusIdle is the idle value of the low byte of a motor status
	// register.  The commander reports the same value when the motor is
	// ready to accept a command and when a move has finished, which is
	// why the same wait is used on both sides of a move.
	motorStatusIdle = 0x02

	// motorPollInterval paces the idle spin-wait so status reads do not
	// monopolize the shared link.
	motorPollInterval = 50 * time.Millisecond
)

// motor identifies one of the two stepper-driven filter elements.
type motor struct {
	name       string
	prefix     string // command subsystem, MOTBI or MOTTE
	upperLimit int
}

func (m *Matisse) bifiMotor() motor {
	return motor{name: "birefringent filter", prefix: "MOTBI", upperLimit: m.cfg.BiFi.UpperLimit}
}

func (m *Matisse) thinEtalonMotor() motor {
	return motor{name: "thin etalon", prefix: "MOTTE", upperLimit: m.cfg.ThinEtalon.UpperLimit}
}

// motorStatus returns the low 8 bits of the motor's status register.
func (m *Matisse) motorStatus(mot motor) (int, error) {
	v, err := m.QueryInt(mot.prefix + ":STATUS?")
	if err != nil {
		return 0, err
	}
	return v & 0xff, nil
}

// waitMotorIdle blocks the calling goroutine until the motor reports
// idle.  Polls are paced; the link is free for other callers between
// status reads.
func (m *Matisse) waitMotorIdle(mot motor) error {
	for {
		if err := m.poll.Wait(context.Background()); err != nil {
			return err
		}
		status, err := m.motorStatus(mot)
		if err != nil {
			return err
		}
		if status == motorStatusIdle {
			return nil
		}
	}
}

// setMotorPos drives a motor to an absolute position, waiting for it to
// be ready before the move and to be finished after it.  Positions
// outside (0, upperLimit) are rejected before any command is issued.
func (m *Matisse) setMotorPos(mot motor, pos int) error {
	if pos <= 0 || pos >= mot.upperLimit {
		return RangeError{
			What:  mot.name + " motor position",
			Value: float64(pos),
			Lower: 0,
			Upper: float64(mot.upperLimit),
		}
	}
	if err := m.waitMotorIdle(mot); err != nil {
		return err
	}
	if _, err := m.Query(fmt.Sprintf("%s:POS %d", mot.prefix, pos)); err != nil {
		return err
	}
	return m.waitMotorIdle(mot)
}

// SetBiFiMotorPos drives the birefringent filter motor to pos.
func (m *Matisse) SetBiFiMotorPos(pos int) error {
	return m.setMotorPos(m.bifiMotor(), pos)
}

// SetThinEtalonMotorPos drives the thin etalon motor to pos.
func (m *Matisse) SetThinEtalonMotorPos(pos int) error {
	return m.setMotorPos(m.thinEtalonMotor(), pos)
}

// BiFiMotorPos reads the current birefringent filter motor position.
func (m *Matisse) BiFiMotorPos() (int, error) {
	return m.QueryInt("MOTBI:POS?")
}

// ThinEtalonMotorPos reads the current thin etalon motor position.
func (m *Matisse) ThinEtalonMotorPos() (int, error) {
	return m.QueryInt("MOTTE:POS?")
}

// SetBiFiWavelength coarse-positions the birefringent filter from the
// commander's built-in wavelength calibration.  Good to roughly +-1 nm;
// follow with BirefringentFilterScan for anything finer.
func (m *Matisse) SetBiFiWavelength(wl float64) error {
	lo, hi := m.cfg.Wavelength.LowerLimit, m.cfg.Wavelength.UpperLimit
	if wl <= lo || wl >= hi {
		return RangeError{What: "wavelength", Value: wl, Lower: lo, Upper: hi}
	}
	mot := m.bifiMotor()
	if err := m.waitMotorIdle(mot); err != nil {
		return err
	}
	if _, err := m.Query("MOTBI:WAVELENGTH " + strconv.FormatFloat(wl, 'f', -1, 64)); err != nil {
		return err
	}
	return m.waitMotorIdle(mot)
}
