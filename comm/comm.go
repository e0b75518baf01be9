/*Package comm provides the connection layer for lab hardware links.

A RemoteDevice wraps a single connection to an instrument, reachable over
TCP or RS-232.  It frames outgoing commands with a transmission terminator
and strips the receipt terminator from responses.  It deliberately holds
exactly one connection: the devices this package talks to (the Matisse
commander in particular) cannot service more than one request at a time,
so concurrency control belongs to the owner of the device, not to a
connection pool.
*/
package comm

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

var (
	// ErrNotConnected is generated when Send or Recv is called before Open.
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not
	// found in a response.
	ErrTerminatorNotFound = errors.New("termination byte not found")
)

// SendRecver sends a command and returns the device's reply.
type SendRecver interface {
	SendRecv([]byte) ([]byte, error)
}

// RemoteDevice is a single connection to a remote instrument.  The zero
// value is not usable; create one with NewRemoteDevice.
type RemoteDevice struct {
	// Addr is the network address (host:port) or serial port path.
	Addr string

	// Serial holds the serial port configuration.  If nil, the connection
	// is made over TCP to Addr.
	Serial *serial.Config

	// Tx and Rx are the transmission and receipt terminators.
	Tx byte
	Rx byte

	conn io.ReadWriteCloser
}

// NewRemoteDevice returns a RemoteDevice with carriage return terminators
// on both sides.  Pass a non-nil serial config for an RS-232 device.
func NewRemoteDevice(addr string, sc *serial.Config) *RemoteDevice {
	return &RemoteDevice{Addr: addr, Serial: sc, Tx: '\r', Rx: '\r'}
}

// Open establishes the connection.  Dials are retried with exponential
// backoff; devices behind terminal servers tend to drop the first dial
// after an unclean shutdown.
func (rd *RemoteDevice) Open() error {
	op := func() error {
		conn, err := rd.dial()
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "refused") {
				return backoff.Permanent(err)
			}
			return err
		}
		rd.conn = conn
		return nil
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	return errors.Wrapf(err, "open %s", rd.Addr)
}

func (rd *RemoteDevice) dial() (io.ReadWriteCloser, error) {
	if rd.Serial != nil {
		return serial.OpenPort(rd.Serial)
	}
	return TCPSetup(rd.Addr, 3*time.Second)
}

// Close closes the connection.
func (rd *RemoteDevice) Close() error {
	if rd.conn == nil {
		return nil
	}
	err := rd.conn.Close()
	if err == nil {
		rd.conn = nil
	}
	return err
}

// Send writes a command to the remote, appending the Tx terminator.
func (rd *RemoteDevice) Send(b []byte) error {
	if rd.conn == nil {
		return ErrNotConnected
	}
	b = append(b, rd.Tx)
	_, err := rd.conn.Write(b)
	return err
}

// Recv reads one response from the remote and strips the Rx terminator.
func (rd *RemoteDevice) Recv() ([]byte, error) {
	if rd.conn == nil {
		return nil, ErrNotConnected
	}
	buf, err := bufio.NewReader(rd.conn).ReadBytes(rd.Rx)
	if err != nil {
		return nil, err
	}
	if bytes.HasSuffix(buf, []byte{rd.Rx}) {
		return buf[:len(buf)-1], nil
	}
	return buf, ErrTerminatorNotFound
}

// SendRecv sends a command and returns the response.  It does not
// serialize callers; the owner must ensure only one exchange is in
// flight at a time.
func (rd *RemoteDevice) SendRecv(b []byte) ([]byte, error) {
	err := rd.Send(b)
	if err != nil {
		return nil, err
	}
	return rd.Recv()
}

// SetConn replaces the underlying connection.  It exists for tests and
// for callers that establish the connection by other means.
func (rd *RemoteDevice) SetConn(conn io.ReadWriteCloser) {
	rd.conn = conn
}

// TCPSetup opens a new TCP connection and sets a timeout on connect,
// read, and write.
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}
