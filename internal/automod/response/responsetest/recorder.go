// Package responsetest provides a recording response.Actions for tests.
package responsetest

import (
	"context"
	"sync"
	"time"

	"github.com/robalyx/warden/internal/automod/response"
)

// Call is one recorded collaborator invocation.
type Call struct {
	Method string
	Args   []any
}

// Recorder implements response.Actions by recording every call. Each method returns
// the result configured for it, or success.
type Recorder struct {
	mu      sync.Mutex
	calls   []Call
	reports []*response.Report
	results map[string]response.ActionResult
	panicOn string
}

var _ response.Actions = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{results: make(map[string]response.ActionResult)}
}

// SetResult configures the result returned by method.
func (r *Recorder) SetResult(method string, res response.ActionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[method] = res
}

// PanicOn makes method panic when called.
func (r *Recorder) PanicOn(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panicOn = method
}

// Methods returns the names of the recorded calls in order.
func (r *Recorder) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Method
	}
	return out
}

// Last returns the most recent call of method.
func (r *Recorder) Last(method string) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].Method == method {
			return r.calls[i], true
		}
	}
	return Call{}, false
}

// Reports returns every posted report.
func (r *Recorder) Reports() []*response.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*response.Report(nil), r.reports...)
}

func (r *Recorder) record(method string, args ...any) response.ActionResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if method == r.panicOn {
		panic(method + " exploded")
	}

	r.calls = append(r.calls, Call{Method: method, Args: args})
	return r.results[method]
}

func (r *Recorder) Ban(_ context.Context, guildID uint64, source string, userID uint64, purgeDays int, reason string, notify bool) response.ActionResult {
	return r.record("Ban", guildID, source, userID, purgeDays, reason, notify)
}

func (r *Recorder) Kick(_ context.Context, guildID uint64, source string, userID uint64, reason string, notify bool) response.ActionResult {
	return r.record("Kick", guildID, source, userID, reason, notify)
}

func (r *Recorder) SetTimeout(_ context.Context, guildID uint64, source string, userID uint64, duration time.Duration, reason string, notify bool) response.ActionResult {
	return r.record("SetTimeout", guildID, source, userID, duration, reason, notify)
}

func (r *Recorder) AddNote(_ context.Context, guildID uint64, source string, userID uint64, text string) response.ActionResult {
	return r.record("AddNote", guildID, source, userID, text)
}

func (r *Recorder) AddWarn(_ context.Context, guildID uint64, source string, userID uint64, text string) response.ActionResult {
	return r.record("AddWarn", guildID, source, userID, text)
}

func (r *Recorder) AddRole(_ context.Context, guildID, userID, roleID uint64, reason string) response.ActionResult {
	return r.record("AddRole", guildID, userID, roleID, reason)
}

func (r *Recorder) RemoveRole(_ context.Context, guildID, userID, roleID uint64, reason string) response.ActionResult {
	return r.record("RemoveRole", guildID, userID, roleID, reason)
}

func (r *Recorder) DeleteMessage(_ context.Context, channelID, messageID uint64, reason string) response.ActionResult {
	return r.record("DeleteMessage", channelID, messageID, reason)
}

func (r *Recorder) SendChannel(_ context.Context, channelID uint64, text string) response.ActionResult {
	return r.record("SendChannel", channelID, text)
}

func (r *Recorder) SendDM(_ context.Context, userID uint64, text string) response.ActionResult {
	return r.record("SendDM", userID, text)
}

func (r *Recorder) PostReport(_ context.Context, channelID uint64, report *response.Report) response.ActionResult {
	r.mu.Lock()
	r.reports = append(r.reports, report)
	r.mu.Unlock()
	return r.record("PostReport", channelID)
}
