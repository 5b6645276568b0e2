/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Stdio is a fairly simple Couplings that uses stdin for input and
// stdout for output.
//
// Each input line is a JSON event.  Each emitted event is written as
// a line of JSON.
type Stdio struct {
	// In is coupled to engine input.
	In io.Reader

	// Out is coupled to engine output.
	Out io.Writer

	// ShellExpand enables input to include inline shell commands
	// delimited by '<<' and '>>'.  Use at your own risk, of
	// course!
	ShellExpand bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "emit", "result", "config").
	Tags bool

	// PadTags adds some padding to tags used in output.
	PadTags bool

	// PrintResults writes a line with the event and whether it
	// was consumed.
	PrintResults bool

	// PrintConfiguration writes the engine's configuration after
	// each input.
	PrintConfiguration bool

	// InputEOF is closed when input ends.
	InputEOF chan bool

	WG sync.WaitGroup
}

// maxLine is the longest input line Stdio accepts.
const maxLine = 1 << 20

// NewStdio creates a new Stdio.
//
// ShellExpand enables input to include inline shell commands
// delimited by '<<' and '>>'.  Use at your own risk, of course!
//
// In and Out are initialized with os.Stdin and os.Stdout
// respectively.
func NewStdio(shellExpand bool) *Stdio {
	return &Stdio{
		In:          os.Stdin,
		Out:         os.Stdout,
		ShellExpand: shellExpand,
		InputEOF:    make(chan bool),
	}
}

// Start does nothing.
func (s *Stdio) Start(ctx context.Context) error {
	return nil
}

// Stop waits until IO is complete or was terminated via its context.
func (s *Stdio) Stop(ctx context.Context) error {
	s.WG.Wait()
	return nil
}

func (s *Stdio) printf(tag, format string, args ...interface{}) {
	if s.PadTags {
		tag = fmt.Sprintf("% 8s", tag)
	}
	if s.Tags {
		format = tag + " " + format
	}
	if s.Timestamps {
		ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
		format = ts + " " + format
	}

	fmt.Fprintf(s.Out, format, args...)
}

// IO starts reading lines from In and writing Results to Out.
func (s *Stdio) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	var (
		in   = make(chan interface{})
		out  = make(chan *Result)
		done = make(chan bool)
	)
	if s.InputEOF == nil {
		s.InputEOF = make(chan bool)
	}

	s.WG.Add(2)
	go s.readLoop(ctx, in, done)
	go s.writeLoop(ctx, out)

	return in, out, done, nil
}

// readLoop parses each line as JSON and sends it to in.  Blank lines
// and lines starting with '#' are skipped.  The loop ends at EOF or
// at a line that is just "quit".
func (s *Stdio) readLoop(ctx context.Context, in chan interface{}, done chan bool) {
	defer s.WG.Done()
	defer func() {
		close(done)
		close(s.InputEOF)
	}()

	sc := bufio.NewScanner(s.In)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "quit" {
			return
		}
		if s.EchoInput {
			s.printf("input", "%s\n", line)
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if s.ShellExpand {
			var err error
			if line, err = ShellExpand(line); err != nil {
				log.Printf("Stdio %s", err)
				continue
			}
		}

		var x interface{}
		if err := json.Unmarshal([]byte(line), &x); err != nil {
			log.Printf("Stdio bad input: %s", err)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case in <- x:
		}
	}
	if err := sc.Err(); err != nil {
		log.Printf("Stdio input error %s", err)
	}
}

// writeLoop writes each Result until it gets a nil one.
func (s *Stdio) writeLoop(ctx context.Context, out chan *Result) {
	defer s.WG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-out:
			if r == nil {
				return
			}
			s.write(r)
		}
	}
}

func (s *Stdio) write(r *Result) {
	for _, x := range r.Emitted {
		s.printf("emit", "%s\n", JS(x))
	}
	if s.PrintResults {
		s.printf("result", "%s\n", JS(map[string]interface{}{
			"event":    r.Event,
			"consumed": r.Consumed,
		}))
	}
	if r.Err != "" {
		s.printf("error", "%s\n", JS(r.Err))
	}
	if s.PrintConfiguration {
		s.printf("config", "%s\n", JS(r.Configuration))
	}
}
