// Command matissectl is a command line client for matissesrv.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/theckman/yacspin"

	"github.com/qdotlab/matisse/server"
)

var (
	addr = flag.String("addr", "http://localhost:8000", "base URL of matissesrv")
	stem = flag.String("stem", "/omc/matisse/", "URL stem the routes are served under")
)

func usage() {
	str := `matissectl drives a Matisse laser through a running matissesrv.

Usage:
	matissectl [flags] <command> [args]

Commands:
	wavelength                read the wavemeter, nm
	set-wavelength <nm>       drive the laser to a wavelength (slow; scans motors)
	scan-bifi                 scan the birefringent filter
	scan-thin-etalon          scan the thin etalon
	stabilize on|off|status   control the stabilization loop
	lock-correction on|off|status
	status                    lock state, limit state, and correction count

Flags:`
	fmt.Println(str)
	flag.PrintDefaults()
}

func url(route string) string {
	return strings.TrimSuffix(*addr, "/") + *stem + route
}

// getJSON issues a GET and decodes the response body into out.
func getJSON(route string, out interface{}) error {
	resp, err := http.Get(url(route))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// postJSON issues a POST with an optional JSON body and discards the
// response body.
func postJSON(route string, body interface{}) error {
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	resp, err := http.Post(url(route), "application/json", rdr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := ioutil.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return nil
}

// spin runs fn under a spinner with the given message.  Motor scans take
// tens of seconds; the spinner is the only sign of life.
func spin(msg string, fn func() error) error {
	s, err := yacspin.New(yacspin.Config{
		Frequency:     100 * time.Millisecond,
		CharSet:       yacspin.CharSets[59],
		Suffix:        " " + msg,
		StopCharacter: "done",
	})
	if err != nil {
		// a broken spinner is no reason not to run the command
		return fn()
	}
	s.Start()
	err = fn()
	if err != nil {
		s.StopFail()
		return err
	}
	s.Stop()
	return nil
}

func wavelength() error {
	f := server.FloatT{}
	if err := getJSON("wavelength", &f); err != nil {
		return err
	}
	fmt.Printf("%.4f nm\n", f.F64)
	return nil
}

func setWavelength(arg string) error {
	wl, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return fmt.Errorf("could not parse wavelength %q: %v", arg, err)
	}
	return spin(fmt.Sprintf("driving laser to %g nm", wl), func() error {
		return postJSON("wavelength", server.FloatT{F64: wl})
	})
}

func scan(route, what string) error {
	i := server.IntT{}
	err := spin("scanning the "+what, func() error {
		resp, err := http.Post(url(route), "application/json", nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := ioutil.ReadAll(resp.Body)
			return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return json.NewDecoder(resp.Body).Decode(&i)
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s motor at %d\n", what, i.Int)
	return nil
}

func loop(name, route, action string) error {
	switch action {
	case "on":
		return postJSON(route+"/on", nil)
	case "off":
		return postJSON(route+"/off", nil)
	case "status":
		b := server.BoolT{}
		if err := getJSON(route, &b); err != nil {
			return err
		}
		state := "off"
		if b.Bool {
			state = "on"
		}
		fmt.Printf("%s: %s\n", name, state)
		return nil
	}
	return fmt.Errorf("unknown action %q; want on, off, or status", action)
}

func status() error {
	locked := server.BoolT{}
	if err := getJSON("locked", &locked); err != nil {
		return err
	}
	limited := server.BoolT{}
	if err := getJSON("limit-reached", &limited); err != nil {
		return err
	}
	corrections := server.IntT{}
	if err := getJSON("auto-corrections", &corrections); err != nil {
		return err
	}
	target := server.FloatT{}
	targetLine := "target wavelength: not set"
	if err := getJSON("target-wavelength", &target); err == nil {
		targetLine = fmt.Sprintf("target wavelength: %.4f nm", target.F64)
	}
	fmt.Println(targetLine)
	fmt.Println("locked:", locked.Bool)
	fmt.Println("limit reached:", limited.Bool)
	fmt.Println("auto corrections:", corrections.Int)
	return nil
}

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		return
	}
	var err error
	switch strings.ToLower(args[0]) {
	case "wavelength":
		err = wavelength()
	case "set-wavelength":
		if len(args) < 2 {
			log.Fatal("set-wavelength needs a wavelength in nm")
		}
		err = setWavelength(args[1])
	case "scan-bifi":
		err = scan("scan/bifi", "birefringent filter")
	case "scan-thin-etalon":
		err = scan("scan/thin-etalon", "thin etalon")
	case "stabilize":
		if len(args) < 2 {
			log.Fatal("stabilize needs an action: on, off, or status")
		}
		err = loop("stabilization", "stabilize", args[1])
	case "lock-correction":
		if len(args) < 2 {
			log.Fatal("lock-correction needs an action: on, off, or status")
		}
		err = loop("lock correction", "lock-correction", args[1])
	case "status":
		err = status()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}
