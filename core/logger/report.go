package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *structpb.Struct)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var rawEntry json.RawMessage
		if err := decoder.Decode(&rawEntry); err != nil {
			return err
		}

		var logEntry structpb.Struct
		if err := protojson.Unmarshal(rawEntry, &logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

func field(le *structpb.Struct, name string) *structpb.Value {
	if v, ok := le.GetFields()[name]; ok {
		return v
	}
	return structpb.NewNullValue()
}

func firstArg(le *structpb.Struct) string {
	list := field(le, "argv").GetListValue().GetValues()
	if len(list) == 0 {
		return ""
	}
	return list[0].GetStringValue()
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`
	Sessions       StrCounter `json:"sessions"`

	Spawns   SpawnReport  `json:"spawn_report"`
	Exits    ExitReport   `json:"exit_report"`
	Builtins StrCounter   `json:"builtin_counts"`
	NotFound StrCounter   `json:"not_found_counts"`
	Redirect StrCounter   `json:"redirect_modes"`
	Errors   *PathCounter `json:"errors"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		Errors: NewPathCounter("op", "error"),
	}
}

func (r *Report) Update(le *structpb.Struct) {
	r.LogEntries++
	r.Sessions.Increment(field(le, "session_id").GetStringValue())

	switch kind := field(le, "kind").GetStringValue(); kind {
	case KindSpawn:
		r.Spawns.update(le)
	case KindExit:
		r.Exits.update(le)
	case KindBuiltin:
		r.Builtins.Increment(firstArg(le))
	case KindNotFound:
		r.NotFound.Increment(field(le, "command").GetStringValue())
	case KindRedirect:
		r.Redirect.Increment(field(le, "mode").GetStringValue())
	case KindError:
		if r.Errors == nil {
			r.Errors = NewPathCounter("op", "error")
		}
		r.Errors.Increment(field(le, "op").GetStringValue(), field(le, "error").GetStringValue())
	default:
		r.InvalidEntries.Increment(fmt.Sprintf("%q", kind))
	}
}

type SpawnReport struct {
	// Counts of each process creation strategy.
	Strategies StrCounter `json:"strategies"`
	// Counts of each spawned command name.
	CommandNames StrCounter `json:"command_names"`
}

func (r *SpawnReport) update(le *structpb.Struct) {
	r.Strategies.Increment(field(le, "strategy").GetStringValue())
	if name := firstArg(le); name != "" {
		r.CommandNames.Increment(name)
	}
}

type ExitReport struct {
	Statuses StrCounter `json:"statuses"`
	// Commands that exited with a non-zero status.
	Failures StrCounter `json:"failures"`
}

func (r *ExitReport) update(le *structpb.Struct) {
	status := int(field(le, "status").GetNumberValue())
	r.Statuses.Increment(fmt.Sprint(status))
	if status != 0 {
		r.Failures.Increment(field(le, "command").GetStringValue())
	}
}

type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns the number of times key was added.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implemnts custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of string tuples seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Count returns the number of times the tuple was added.
func (ctr *PathCounter) Count(vals ...string) int {
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON implemnts custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	var out []Count
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
