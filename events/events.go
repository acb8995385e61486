package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log"
	"strings"
)

// Action names accepted on the command stream.
const (
	Focus  = "focus"
	Input  = "input"
	Apply  = "apply"
	Reset  = "reset"
	Toggle = "toggle"
)

// Command represents one user-interface event on the range controls.
type Command struct {
	Action string `json:"action"`
	Min    Bound  `json:"min,omitempty"`
	Max    Bound  `json:"max,omitempty"`
}

// Bound is raw input text. It decodes from either a JSON string or number so
// that malformed values reach validation unchanged.
type Bound string

func (b *Bound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = Bound(s)
		return nil
	}
	if string(data) == "null" {
		*b = ""
		return nil
	}
	*b = Bound(data)
	return nil
}

// Read consumes newline-delimited JSON commands, emitting them onto out.
// It drops commands if the channel is full to avoid blocking the main loop.
// out is closed when r is exhausted.
func Read(r io.Reader, out chan<- Command) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var c Command
		if err := json.Unmarshal(line, &c); err != nil {
			log.Printf("command parse: %v", err)
			continue
		}
		c.Action = strings.ToLower(strings.TrimSpace(c.Action))
		select {
		case out <- c:
		default:
			// drop if full
		}
	}
	if err := sc.Err(); err != nil {
		log.Printf("command scanner: %v", err)
	}
}
