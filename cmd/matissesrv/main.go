// Command matissesrv exposes a Sirah Matisse laser over HTTP.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/tarm/serial"

	yml "gopkg.in/yaml.v2"

	"github.com/qdotlab/matisse/comm"
	"github.com/qdotlab/matisse/matisse"
	"github.com/qdotlab/matisse/wavemeter"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "matissesrv.yml"
	k              = koanf.New(".")
)

// Config holds the server configuration: where to listen, where the
// hardware lives, and the laser's control parameters.
type Config struct {
	// Addr is the address:port to listen for requests at.
	Addr string `koanf:"addr" yaml:"addr"`

	// URLStem is the prefix all routes are served under.
	URLStem string `koanf:"urlStem" yaml:"urlStem"`

	// Commander is the address of the Matisse commander: host:port for a
	// terminal server, or a serial port path for a direct connection.
	Commander string `koanf:"commander" yaml:"commander"`

	// Wavemeter is the serial port path of the wavelength meter.
	Wavemeter string `koanf:"wavemeter" yaml:"wavemeter"`

	// Laser holds the wavelength limits, scan, stabilization, and locking
	// parameters.
	Laser matisse.Config `koanf:"laser" yaml:"laser"`
}

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr:      ":8000",
		URLStem:   "/omc/matisse/",
		Commander: "192.168.100.201:30000",
		Wavemeter: "/dev/ttyS0",
		Laser:     matisse.DefaultConfig()}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `matissesrv communicates with a Sirah Matisse laser and exposes an HTTP
interface to it.  This enables a server-client architecture, and the
clients can leverage the excellent HTTP libraries for any programming
language.

Usage:
	matissesrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `matissesrv is amenable to configuration via its .yaml file.  For a primer
on YAML, see https://yaml.org/start.html

The commander field takes either host:port for a commander behind a
terminal server, or a serial port path (e.g. /dev/ttyUSB0) for a direct
RS-232 connection.

The wavemeter field is always a serial port path; the meter speaks
19200 8N1.

The laser section holds the wavelength limits of the installed mirror
set, the motor scan parameters, and the stabilization and locking
parameters.  Run mkconf to write a file with the defaults and edit from
there.  The defaults suit a 700-800 nm mirror set.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("matissesrv version %v\n", Version)
}

// commanderSerConf makes a new serial.Config for a direct connection to
// the commander.
func commanderSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        115200,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 10 * time.Second}
}

func run() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}

	var sc *serial.Config
	if !strings.Contains(c.Commander, ":") {
		sc = commanderSerConf(c.Commander)
	}
	link := comm.NewRemoteDevice(c.Commander, sc)
	if err := link.Open(); err != nil {
		log.Fatalf("could not connect to the Matisse commander: %v", err)
	}
	defer link.Close()

	wm := wavemeter.New(c.Wavemeter)
	if err := wm.Open(); err != nil {
		log.Fatalf("could not connect to the wavemeter: %v", err)
	}
	defer wm.Close()

	m, err := matisse.New(c.Laser, link, wm)
	if err != nil {
		log.Fatalf("could not initialize the Matisse: %v", err)
	}

	stem := c.URLStem
	if !strings.HasPrefix(stem, "/") {
		stem = "/" + stem
	}
	if !strings.HasSuffix(stem, "/") {
		stem = stem + "/"
	}
	w := matisse.NewHTTPWrapper(stem, m)
	log.Println("now listening for requests at ", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, w.Mux()))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
