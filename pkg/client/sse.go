package client

import (
	"bufio"
	"io"
	"strings"
)

// streamEvent is one server-sent event.
type streamEvent struct {
	ID   string
	Type string
	Data string
}

// eventReader splits a text/event-stream body into events. Comment lines
// (keepalives) and unknown fields are skipped; multi-line data is joined
// with newlines.
type eventReader struct {
	r       *bufio.Reader
	current streamEvent
	err     error
}

func newEventReader(r io.Reader) *eventReader {
	return &eventReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next reads up to the next complete event. It returns false at the end
// of the stream; Err tells a clean end from a failure.
func (e *eventReader) Next() bool {
	var (
		event streamEvent
		data  []string
	)
	for {
		line, err := e.r.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				e.err = err
			}
			// a partial event at EOF is dropped
			return false
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(data) == 0 {
				event = streamEvent{}
				continue
			}
			event.Data = strings.Join(data, "\n")
			e.current = event
			return true
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			event.ID = value
		case "event":
			event.Type = value
		case "data":
			data = append(data, value)
		}
	}
}

// Event returns the event read by the last successful Next.
func (e *eventReader) Event() streamEvent {
	return e.current
}

// Err returns the read error that ended the stream, if any.
func (e *eventReader) Err() error {
	return e.err
}
