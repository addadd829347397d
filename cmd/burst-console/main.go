//go:build !tinygo

// Command burst-console attaches to a device running the UART bridge and
// prints the telemetry frames it emits. An interactive prompt filters the
// stream:
//
//	filter pulse/report   show only topics with this prefix
//	filter                clear the filter
//	raw on|off            dump payload bytes instead of text
//	ports                 list serial ports
//	quit
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/shlex"
	"go.bug.st/serial"
)

func main() {
	portName := flag.String("port", "", "serial port, e.g. /dev/ttyACM0")
	baud := flag.Int("baud", 115200, "baud rate")
	flag.Parse()

	if *portName == "" {
		listPorts()
		fmt.Fprintln(os.Stderr, "burst-console: -port required")
		os.Exit(1)
	}

	port, err := serial.Open(*portName, &serial.Mode{BaudRate: *baud})
	if err != nil {
		fmt.Fprintf(os.Stderr, "burst-console: open %s: %v\n", *portName, err)
		os.Exit(1)
	}
	defer port.Close()

	var st state
	go readFrames(port, &st)

	sc := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for sc.Scan() {
		if !runCommand(sc.Text(), &st) {
			return
		}
		fmt.Print("> ")
	}
}

type state struct {
	mu     sync.Mutex
	filter string
	raw    bool
}

// runCommand returns false when the console should exit.
func runCommand(line string, st *state) bool {
	args, err := shlex.Split(line)
	if err != nil {
		fmt.Println("parse error:", err)
		return true
	}
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "quit", "exit":
		return false
	case "filter":
		st.mu.Lock()
		if len(args) > 1 {
			st.filter = args[1]
		} else {
			st.filter = ""
		}
		st.mu.Unlock()
	case "raw":
		st.mu.Lock()
		st.raw = len(args) > 1 && args[1] == "on"
		st.mu.Unlock()
	case "ports":
		listPorts()
	default:
		fmt.Println("unknown command:", args[0])
	}
	return true
}

// readFrames consumes the bridge framing: a 2-byte big-endian length, then
// topic, NUL, JSON payload.
func readFrames(r io.Reader, st *state) {
	br := bufio.NewReader(r)
	for {
		var hdr [2]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			fmt.Fprintln(os.Stderr, "burst-console: read:", err)
			return
		}
		n := int(hdr[0])<<8 | int(hdr[1])
		frame := make([]byte, n)
		if _, err := io.ReadFull(br, frame); err != nil {
			fmt.Fprintln(os.Stderr, "burst-console: read:", err)
			return
		}
		topic, body, ok := splitFrame(frame)
		if !ok {
			continue
		}

		st.mu.Lock()
		filter, raw := st.filter, st.raw
		st.mu.Unlock()
		if filter != "" && !strings.HasPrefix(topic, filter) {
			continue
		}
		if raw {
			fmt.Printf("%s %s\n", topic, hex.EncodeToString(body))
		} else {
			fmt.Printf("%s %s\n", topic, body)
		}
	}
}

func splitFrame(frame []byte) (topic string, body []byte, ok bool) {
	for i, c := range frame {
		if c == 0 {
			return string(frame[:i]), frame[i+1:], true
		}
	}
	return "", nil, false
}

func listPorts() {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Fprintln(os.Stderr, "burst-console: list ports:", err)
		return
	}
	for _, p := range ports {
		fmt.Println(p)
	}
}
