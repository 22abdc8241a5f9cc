package sse

import (
	"bufio"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DoneSentinel is the data payload some backends send to close a stream.
const DoneSentinel = "[DONE]"

// Record is one dispatched server-sent event.
type Record struct {
	ID    string
	Event string
	Data  string
	// Extra holds fields other than id, event and data, last value wins.
	Extra map[string]string
}

// Type returns the "type" member of a JSON payload, or the event name when
// the payload has none.
func (r *Record) Type() string {
	if t := gjson.Get(r.Data, "type"); t.Exists() {
		return t.String()
	}
	return r.Event
}

// TypedData returns the JSON payload with a "type" member, copied from the
// event name when the object has none. Other payloads are returned as is.
func (r *Record) TypedData() []byte {
	data := []byte(r.Data)
	if r.Event == "" || !gjson.Valid(r.Data) || !gjson.Parse(r.Data).IsObject() {
		return data
	}
	if gjson.Get(r.Data, "type").Exists() {
		return data
	}
	out, err := sjson.SetBytes(data, "type", r.Type())
	if err != nil {
		return data
	}
	return out
}

// Reader reads SSE records from an io.Reader.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a new SSE reader.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next record with a non-empty data field. It returns
// nil, io.EOF at end of input or when the [DONE] sentinel arrives.
func (r *Reader) Next() (*Record, error) {
	var (
		rec     Record
		data    []string
		hasData bool
	)
	dispatch := func() *Record {
		if !hasData {
			rec = Record{}
			return nil
		}
		out := rec
		out.Data = strings.Join(data, "\n")
		rec, data, hasData = Record{}, nil, false
		return &out
	}

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")
		if line == "" {
			if out := dispatch(); out != nil {
				if out.Data == DoneSentinel {
					return nil, io.EOF
				}
				if strings.TrimSpace(out.Data) == "" {
					continue
				}
				return out, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			rec.Event = value
		case "id":
			rec.ID = value
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[field] = value
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if out := dispatch(); out != nil && out.Data != DoneSentinel && strings.TrimSpace(out.Data) != "" {
		return out, nil
	}
	return nil, io.EOF
}
