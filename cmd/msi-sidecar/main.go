// msi-sidecar is the privileged helper that talks to the embedded
// controller. It reads commands as JSON lines on stdin and answers with
// JSON lines on stdout; the host daemon launches it through pkexec and
// owns its lifetime.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/desingh-rajan/msi-fan-control/internal/ecio"
	"github.com/desingh-rajan/msi-fan-control/internal/kmod"
	"github.com/desingh-rajan/msi-fan-control/internal/protocol"
	"github.com/desingh-rajan/msi-fan-control/internal/sidecar"
)

func main() {
	var (
		ecPath string
		mockEC bool
	)
	flag.StringVar(&ecPath, "path", ecio.DefaultPath, "EC debugfs interface")
	flag.BoolVar(&mockEC, "mock", false, "serve an in-memory EC instead of hardware")
	flag.Parse()

	// Diagnostics go to stderr; stdout carries protocol lines only.
	log.SetOutput(os.Stderr)
	log.SetPrefix("msi-sidecar: ")

	var dev ecio.Device
	if mockEC {
		dev = ecio.NewMemory()
	} else {
		boot := kmod.Bootstrap{}
		if err := boot.Ensure(ecPath); err != nil {
			log.Printf("ec_sys bootstrap: %v", err)
		} else if err := boot.Persist(); err != nil {
			log.Printf("ec_sys persist: %v", err)
		}

		f, err := ecio.OpenFile(ecPath)
		if err != nil {
			fatal(fmt.Sprintf("open EC interface %s: %v", ecPath, err))
		}
		dev = f
	}

	engine := sidecar.New(ecio.NewController(dev), os.Stdin, os.Stdout)
	if err := engine.Run(); err != nil {
		fatal(err.Error())
	}
}

// fatal reports the failure on the protocol channel so the host sees a
// well-formed error line, then exits nonzero.
func fatal(message string) {
	line, err := json.Marshal(protocol.Error(message))
	if err == nil {
		fmt.Fprintln(os.Stdout, string(line))
	}
	os.Exit(1)
}
