package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"testing"

	goerrors "github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

//go:noinline
func throwOops() error {
	return goerrors.New("Oops")
}

type describedError struct{ msg string }

func (e *describedError) Error() string       { return e.msg }
func (e *describedError) Description() string { return "long form of " + e.msg }

type callersError struct{ pcs []uintptr }

func (e *callersError) Error() string      { return "captured" }
func (e *callersError) Callers() []uintptr { return e.pcs }

//go:noinline
func newCallersError() error {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(1, pcs)
	return &callersError{pcs: pcs[:n]}
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	out, err := json.Marshal(v)
	require.NoError(t, err)
	return string(out)
}

func assertOnlyKey(t *testing.T, doc string, key string) {
	t.Helper()
	for _, k := range []string{"crash_report", "message", "trace", "trace_chain"} {
		assert.Equal(t, k == key, gjson.Get(doc, k).Exists(), "key %s", k)
	}
}

func TestNewCrashReportBody(t *testing.T) {
	t.Run("Should render the raw text under crash_report", func(t *testing.T) {
		body, err := NewCrashReportBody("Crash happened")
		require.NoError(t, err)

		assert.Equal(t, `{"crash_report":{"raw":"Crash happened"}}`, marshal(t, body))
		assert.Equal(t, KindCrashReport, body.Kind())
	})

	t.Run("Should reject blank text", func(t *testing.T) {
		for _, raw := range []string{"", "    \t\n"} {
			body, err := NewCrashReportBody(raw)
			assert.ErrorIs(t, err, ErrBlankInput)
			assert.Nil(t, body)
		}
	})
}

func TestNewMessageBody(t *testing.T) {
	t.Run("Should render body and extra fields under message", func(t *testing.T) {
		msg, err := NewMessage("Body of the message")
		require.NoError(t, err)
		msg.Set("key", "value")

		body, err := NewMessageBody(msg)
		require.NoError(t, err)
		doc := marshal(t, body)

		assert.Equal(t, `{"message":{"body":"Body of the message","key":"value"}}`, doc)
		assertOnlyKey(t, doc, "message")
	})

	t.Run("Should reject a nil message", func(t *testing.T) {
		body, err := NewMessageBody(nil)
		assert.ErrorIs(t, err, ErrMissingInput)
		assert.Nil(t, body)
	})

	t.Run("Should reject a blank message body", func(t *testing.T) {
		msg, err := NewMessage(" \n")
		assert.ErrorIs(t, err, ErrBlankInput)
		assert.Nil(t, msg)
	})

	t.Run("Should reject a zero message built without NewMessage", func(t *testing.T) {
		body, err := NewMessageBody(&Message{})
		assert.ErrorIs(t, err, ErrBlankInput)
		assert.Nil(t, body)
	})

	t.Run("Should not be changed through the original or the returned message", func(t *testing.T) {
		msg, err := NewMessage("hello")
		require.NoError(t, err)
		body, err := NewMessageBody(msg)
		require.NoError(t, err)

		msg.Set("after", true)
		got, ok := body.Message()
		require.True(t, ok)
		got.Set("leak", 1)

		assert.Equal(t, `{"message":{"body":"hello"}}`, marshal(t, body))
		assert.Equal(t, "hello", got.Body())
	})

	t.Run("Should report no message for other variants", func(t *testing.T) {
		got, ok := crashBody(t).Message()
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}

func TestNewTraceBody(t *testing.T) {
	t.Run("Should render a plain error as a single trace", func(t *testing.T) {
		body, err := NewTraceBody(errors.New("Oops"))
		require.NoError(t, err)
		doc := marshal(t, body)

		assertOnlyKey(t, doc, "trace")
		assert.Equal(t, "errors.errorString", gjson.Get(doc, "trace.exception.class").String())
		assert.Equal(t, "Oops", gjson.Get(doc, "trace.exception.message").String())
		assert.True(t, gjson.Get(doc, "trace.frames").IsArray())
		assert.False(t, gjson.Get(doc, "trace.exception.description").Exists())
	})

	t.Run("Should carry frames captured by go-errors with the newest call last", func(t *testing.T) {
		body, err := NewTraceBody(throwOops())
		require.NoError(t, err)
		doc := marshal(t, body)

		assertOnlyKey(t, doc, "trace")
		frames := gjson.Get(doc, "trace.frames").Array()
		require.NotEmpty(t, frames)
		last := frames[len(frames)-1]
		assert.True(t, strings.HasSuffix(last.Get("method").String(), "payload.throwOops"))
		assert.True(t, strings.HasSuffix(last.Get("filename").String(), "body_test.go"))
		assert.Positive(t, last.Get("lineno").Int())
		assert.Equal(t, "Oops", gjson.Get(doc, "trace.exception.message").String())
	})

	t.Run("Should resolve program counters from Callers", func(t *testing.T) {
		body, err := NewTraceBody(newCallersError())
		require.NoError(t, err)

		traces := body.Traces()
		require.Len(t, traces, 1)
		require.NotEmpty(t, traces[0].Frames)
		last := traces[0].Frames[len(traces[0].Frames)-1]
		assert.True(t, strings.HasSuffix(last.Method, "payload.newCallersError"))
	})

	t.Run("Should include the description when the error provides one", func(t *testing.T) {
		body, err := NewTraceBody(&describedError{msg: "disk full"})
		require.NoError(t, err)
		doc := marshal(t, body)

		assert.Equal(t, "payload.describedError", gjson.Get(doc, "trace.exception.class").String())
		assert.Equal(t, "long form of disk full", gjson.Get(doc, "trace.exception.description").String())

		wrapped, err := NewTraceBody(goerrors.Wrap(&describedError{msg: "disk full"}, 0))
		require.NoError(t, err)
		doc = marshal(t, wrapped)
		assert.Equal(t, "long form of disk full", gjson.Get(doc, "trace.exception.description").String())
	})

	t.Run("Should report a go-errors wrapper and its wrapped error as one entry", func(t *testing.T) {
		body, err := NewTraceBody(goerrors.Wrap(io.EOF, 0))
		require.NoError(t, err)
		doc := marshal(t, body)

		assertOnlyKey(t, doc, "trace")
		assert.Equal(t, "errors.errorString", gjson.Get(doc, "trace.exception.class").String())
		assert.Equal(t, "EOF", gjson.Get(doc, "trace.exception.message").String())
	})

	t.Run("Should walk the cause chain outermost first", func(t *testing.T) {
		body, err := NewTraceBody(fmt.Errorf("load config: %w", io.EOF))
		require.NoError(t, err)
		doc := marshal(t, body)

		assertOnlyKey(t, doc, "trace_chain")
		chain := gjson.Get(doc, "trace_chain").Array()
		require.Len(t, chain, 2)
		assert.Equal(t, "fmt.wrapError", chain[0].Get("exception.class").String())
		assert.Equal(t, "load config: EOF", chain[0].Get("exception.message").String())
		assert.Equal(t, "EOF", chain[1].Get("exception.message").String())
	})

	t.Run("Should flatten joined errors into a chain", func(t *testing.T) {
		body, err := NewTraceBody(errors.Join(errors.New("first"), errors.New("second")))
		require.NoError(t, err)

		assert.Equal(t, KindTraceChain, body.Kind())
		traces := body.Traces()
		require.Len(t, traces, 2)
		assert.Equal(t, "first", traces[0].Exception.Message)
		assert.Equal(t, "second", traces[1].Exception.Message)
	})

	t.Run("Should reject a nil error", func(t *testing.T) {
		body, err := NewTraceBody(nil)
		assert.ErrorIs(t, err, ErrMissingInput)
		assert.Nil(t, body)
	})
}

func TestNewTraceChainBody(t *testing.T) {
	t.Run("Should render one entry per independent error", func(t *testing.T) {
		body, err := NewTraceChainBody([]error{throwOops(), throwOops()})
		require.NoError(t, err)
		doc := marshal(t, body)

		assertOnlyKey(t, doc, "trace_chain")
		chain := gjson.Get(doc, "trace_chain").Array()
		require.Len(t, chain, 2)
		for _, entry := range chain {
			frames := entry.Get("frames").Array()
			require.NotEmpty(t, frames)
			assert.True(t, strings.HasSuffix(frames[len(frames)-1].Get("method").String(), "payload.throwOops"))
		}
	})

	t.Run("Should flatten each error's own cause chain in order", func(t *testing.T) {
		body, err := NewTraceChainBody([]error{
			fmt.Errorf("worker 1: %w", io.ErrUnexpectedEOF),
			errors.New("worker 2"),
		})
		require.NoError(t, err)

		traces := body.Traces()
		require.Len(t, traces, 3)
		assert.Equal(t, "worker 1: unexpected EOF", traces[0].Exception.Message)
		assert.Equal(t, "unexpected EOF", traces[1].Exception.Message)
		assert.Equal(t, "worker 2", traces[2].Exception.Message)
	})

	t.Run("Should fall back to a single trace for one error", func(t *testing.T) {
		oops := errors.New("Oops")
		chain, err := NewTraceChainBody([]error{oops})
		require.NoError(t, err)
		single, err := NewTraceBody(oops)
		require.NoError(t, err)

		assert.Equal(t, KindTrace, chain.Kind())
		assert.Equal(t, marshal(t, single), marshal(t, chain))
		assertOnlyKey(t, marshal(t, chain), "trace")
	})

	t.Run("Should ignore nil entries", func(t *testing.T) {
		body, err := NewTraceChainBody([]error{nil, errors.New("only"), nil})
		require.NoError(t, err)
		assert.Equal(t, KindTrace, body.Kind())
	})

	t.Run("Should reject a nil collection", func(t *testing.T) {
		body, err := NewTraceChainBody(nil)
		assert.ErrorIs(t, err, ErrMissingInput)
		assert.Nil(t, body)
	})

	t.Run("Should reject an empty collection", func(t *testing.T) {
		for _, errs := range [][]error{{}, {nil, nil}} {
			body, err := NewTraceChainBody(errs)
			assert.ErrorIs(t, err, ErrEmptyCollection)
			assert.Nil(t, body)
		}
	})
}

func TestBody_Traces(t *testing.T) {
	t.Run("Should not expose internal state", func(t *testing.T) {
		body, err := NewTraceBody(errors.New("Oops"))
		require.NoError(t, err)

		traces := body.Traces()
		traces[0].Exception.Message = "changed"

		assert.Equal(t, "Oops", body.Traces()[0].Exception.Message)
	})
}

func TestBody_UnmarshalJSON(t *testing.T) {
	t.Run("Should decode every variant back to the same JSON", func(t *testing.T) {
		docs := []string{
			`{"crash_report":{"raw":"Crash happened"}}`,
			`{"message":{"body":"Body of the message","key":"value","n":7}}`,
			`{"trace":{"frames":[{"filename":"main.go","lineno":3,"method":"main.main"}],"exception":{"class":"E","message":"m"}}}`,
			`{"trace_chain":[{"frames":[],"exception":{"class":"A","message":"a"}},{"frames":[],"exception":{"class":"B","message":"b","description":"d"}}]}`,
		}
		for _, doc := range docs {
			var body Body
			require.NoError(t, json.Unmarshal([]byte(doc), &body))
			assert.JSONEq(t, doc, marshal(t, &body))
		}
	})

	t.Run("Should write an empty frame list when frames are missing", func(t *testing.T) {
		var body Body
		require.NoError(t, json.Unmarshal([]byte(`{"trace":{"exception":{"class":"E","message":"m"}}}`), &body))

		assert.Equal(t, `{"trace":{"frames":[],"exception":{"class":"E","message":"m"}}}`, marshal(t, &body))
	})

	t.Run("Should reject objects holding zero or several variants", func(t *testing.T) {
		for _, doc := range []string{
			`{}`,
			`{"crash_report":{"raw":"x"},"message":{"body":"y"}}`,
		} {
			var body Body
			assert.ErrorIs(t, json.Unmarshal([]byte(doc), &body), ErrInvalidBody)
		}
	})

	t.Run("Should apply constructor validation", func(t *testing.T) {
		var body Body
		assert.ErrorIs(t, json.Unmarshal([]byte(`{"crash_report":{"raw":"  "}}`), &body), ErrBlankInput)
		assert.ErrorIs(t, json.Unmarshal([]byte(`{"message":{"body":""}}`), &body), ErrBlankInput)
		assert.ErrorIs(t, json.Unmarshal([]byte(`{"trace_chain":[]}`), &body), ErrEmptyCollection)
	})
}

func TestBody_ConcurrentMarshal(t *testing.T) {
	t.Run("Should serialize the same body from many goroutines", func(t *testing.T) {
		body, err := NewTraceChainBody([]error{throwOops(), errors.New("second")})
		require.NoError(t, err)
		want := marshal(t, body)

		var wg sync.WaitGroup
		results := make([]string, 16)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				out, err := json.Marshal(body)
				if err == nil {
					results[i] = string(out)
				}
			}(i)
		}
		wg.Wait()

		for _, got := range results {
			assert.Equal(t, want, got)
		}
	})
}
