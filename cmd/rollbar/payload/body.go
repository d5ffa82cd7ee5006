package payload

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// BodyKind identifies which variant a Body holds.
type BodyKind int

const (
	KindCrashReport BodyKind = iota + 1
	KindMessage
	KindTrace
	KindTraceChain
)

func (k BodyKind) String() string {
	switch k {
	case KindCrashReport:
		return "crash_report"
	case KindMessage:
		return "message"
	case KindTrace:
		return "trace"
	case KindTraceChain:
		return "trace_chain"
	default:
		return fmt.Sprintf("BodyKind(%d)", int(k))
	}
}

// Body is the error description of a report. It holds exactly one of a raw
// crash report, a message, a single trace or a chain of traces, and does not
// change after construction.
type Body struct {
	kind    BodyKind
	raw     string
	message *Message
	traces  []Trace
}

// NewCrashReportBody returns a body carrying raw crash text.
func NewCrashReportBody(raw string) (*Body, error) {
	if isBlank(raw) {
		return nil, blank("crash report")
	}
	return &Body{kind: KindCrashReport, raw: raw}, nil
}

// NewMessageBody returns a body carrying a copy of m. The message body must
// not be blank.
func NewMessageBody(m *Message) (*Body, error) {
	if m == nil {
		return nil, missing("message")
	}
	if isBlank(m.Body()) {
		return nil, blank("message body")
	}
	return &Body{kind: KindMessage, message: m.clone()}, nil
}

// NewTraceBody returns a body describing err. An error whose cause chain or
// aggregate children flatten to more than one entry produces a trace chain.
func NewTraceBody(err error) (*Body, error) {
	if err == nil {
		return nil, missing("error")
	}
	traces := FlattenTraces(err)
	if len(traces) == 0 {
		// aggregate without children
		traces = []Trace{newTrace(err)}
	}
	return traceBody(traces), nil
}

// NewTraceChainBody returns a body describing independent failures, such as
// the results of a fan-out. A collection holding a single error is reported
// exactly as NewTraceBody would report it. Nil entries are ignored.
func NewTraceChainBody(errs []error) (*Body, error) {
	if errs == nil {
		return nil, missing("errors")
	}
	errs = lo.Filter(errs, func(err error, _ int) bool {
		return err != nil
	})
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: errors", ErrEmptyCollection)
	}
	if len(errs) == 1 {
		return NewTraceBody(errs[0])
	}
	return &Body{kind: KindTraceChain, traces: lo.FlatMap(errs, func(err error, _ int) []Trace {
		if traces := FlattenTraces(err); len(traces) > 0 {
			return traces
		}
		return []Trace{newTrace(err)}
	})}, nil
}

func traceBody(traces []Trace) *Body {
	if len(traces) == 1 {
		return &Body{kind: KindTrace, traces: traces}
	}
	return &Body{kind: KindTraceChain, traces: traces}
}

// Kind reports the variant held by b.
func (b *Body) Kind() BodyKind {
	return b.kind
}

// CrashReport returns the raw crash text when b is a crash report.
func (b *Body) CrashReport() (string, bool) {
	return b.raw, b.kind == KindCrashReport
}

// Message returns a copy of the message when b is a message body.
func (b *Body) Message() (*Message, bool) {
	if b.kind != KindMessage {
		return nil, false
	}
	return b.message.clone(), true
}

// Traces returns a copy of the trace entries. A trace body holds one entry.
func (b *Body) Traces() []Trace {
	return slices.Clone(b.traces)
}

type crashReport struct {
	Raw string `json:"raw"`
}

type wireBody struct {
	CrashReport *crashReport    `json:"crash_report,omitempty"`
	Message     json.RawMessage `json:"message,omitempty"`
	Trace       *Trace          `json:"trace,omitempty"`
	TraceChain  []Trace         `json:"trace_chain,omitempty"`
}

func (b *Body) MarshalJSON() ([]byte, error) {
	switch b.kind {
	case KindCrashReport:
		return json.Marshal(map[string]crashReport{"crash_report": {Raw: b.raw}})
	case KindMessage:
		return json.Marshal(map[string]*Message{"message": b.message})
	case KindTrace:
		return json.Marshal(map[string]Trace{"trace": b.traces[0]})
	case KindTraceChain:
		return json.Marshal(map[string][]Trace{"trace_chain": b.traces})
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidBody, b.kind)
	}
}

// UnmarshalJSON accepts an object holding exactly one of the four body keys.
// A trace decoded without frames gets an empty frame list, so it re-encodes
// with "frames":[].
func (b *Body) UnmarshalJSON(data []byte) error {
	var w wireBody
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}

	present := lo.Compact([]BodyKind{
		lo.Ternary(w.CrashReport != nil, KindCrashReport, 0),
		lo.Ternary(len(w.Message) > 0, KindMessage, 0),
		lo.Ternary(w.Trace != nil, KindTrace, 0),
		lo.Ternary(w.TraceChain != nil, KindTraceChain, 0),
	})
	if len(present) != 1 {
		return fmt.Errorf("%w: found %d variants", ErrInvalidBody, len(present))
	}

	var decoded *Body
	var err error
	switch present[0] {
	case KindCrashReport:
		decoded, err = NewCrashReportBody(w.CrashReport.Raw)
	case KindMessage:
		m := new(Message)
		if err := json.Unmarshal(w.Message, m); err != nil {
			return err
		}
		decoded, err = NewMessageBody(m)
	case KindTrace:
		decoded = &Body{kind: KindTrace, traces: []Trace{*w.Trace}}
	case KindTraceChain:
		if len(w.TraceChain) == 0 {
			return fmt.Errorf("%w: trace_chain", ErrEmptyCollection)
		}
		decoded = &Body{kind: KindTraceChain, traces: w.TraceChain}
	}
	if err != nil {
		return err
	}
	for i := range decoded.traces {
		if decoded.traces[i].Frames == nil {
			decoded.traces[i].Frames = []Frame{}
		}
	}
	*b = *decoded
	return nil
}
