package payload

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/samber/lo"
)

// Describer is implemented by errors that carry a longer description than
// their message.
type Describer interface {
	Description() string
}

type stackFramer interface {
	StackFrames() []goerrors.StackFrame
}

type callerser interface {
	Callers() []uintptr
}

type aggregate interface {
	Unwrap() []error
}

const (
	maxTraces     = 256
	maxAggregates = 32
)

// FlattenTraces turns err into Trace entries ordered outermost first.
//
// Each link of an Unwrap() error chain yields one entry. An aggregate
// (Unwrap() []error, as returned by errors.Join) yields no entry of its own;
// each of its children is flattened in order instead. A *goerrors.Error and
// the error it wraps are reported as a single entry carrying the captured
// stack.
func FlattenTraces(err error) []Trace {
	return appendTraces(nil, err, 0)
}

func appendTraces(out []Trace, err error, depth int) []Trace {
	if depth > maxAggregates {
		return out
	}
	for err != nil && len(out) < maxTraces {
		if agg, ok := err.(aggregate); ok {
			for _, child := range agg.Unwrap() {
				if child != nil {
					out = appendTraces(out, child, depth+1)
				}
			}
			return out
		}
		out = append(out, newTrace(err))
		err = cause(err)
	}
	return out
}

func cause(err error) error {
	ge, ok := err.(*goerrors.Error)
	if !ok {
		return errors.Unwrap(err)
	}
	if _, ok := ge.Err.(aggregate); ok {
		return ge.Err
	}
	return errors.Unwrap(ge.Err)
}

func newTrace(err error) Trace {
	t := Trace{
		Frames: framesOf(err),
		Exception: Exception{
			Class:   className(err),
			Message: err.Error(),
		},
	}
	described := err
	if ge, ok := err.(*goerrors.Error); ok {
		described = ge.Err
	}
	if d, ok := described.(Describer); ok {
		t.Exception.Description = d.Description()
	}
	return t
}

func className(err error) string {
	if ge, ok := err.(*goerrors.Error); ok {
		return strings.TrimPrefix(ge.TypeName(), "*")
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// framesOf returns the frames recorded on err, oldest call first. Errors
// without a recorded stack yield an empty, non-nil slice.
func framesOf(err error) []Frame {
	var frames []Frame
	switch e := err.(type) {
	case stackFramer:
		frames = lo.Map(e.StackFrames(), func(sf goerrors.StackFrame, _ int) Frame {
			return Frame{
				Filename: sf.File,
				Line:     sf.LineNumber,
				Method:   qualify(sf.Package, sf.Name),
			}
		})
	case callerser:
		frames = resolveCallers(e.Callers())
	}
	if frames == nil {
		return []Frame{}
	}
	slices.Reverse(frames)
	return frames
}

func resolveCallers(pcs []uintptr) []Frame {
	if len(pcs) == 0 {
		return nil
	}
	out := make([]Frame, 0, len(pcs))
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		out = append(out, Frame{
			Filename: fr.File,
			Line:     fr.Line,
			Method:   fr.Function,
		})
		if !more {
			break
		}
	}
	return out
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}
