// Package appctltest provides a scripted appctl.Runner for tests.
package appctltest

import (
    "context"
    "strings"
    "sync"

    "github.com/amirimatin/ovsdb-cluster/pkg/ovsdb/appctl"
)

type Response struct {
    Out string
    Err error
}

type rule struct {
    match string
    resp  []Response
}

// Runner answers commands from rules registered with On. A rule matches when
// its text occurs in the space-joined command line; the first match wins.
// Queued responses are consumed in order and the last one repeats.
type Runner struct {
    mu    sync.Mutex
    rules []*rule
    calls [][]string
}

func New() *Runner { return &Runner{} }

// On queues a response for commands containing match.
func (r *Runner) On(match, out string, err error) *Runner {
    r.mu.Lock()
    defer r.mu.Unlock()
    for _, ru := range r.rules {
        if ru.match == match {
            ru.resp = append(ru.resp, Response{Out: out, Err: err})
            return r
        }
    }
    r.rules = append(r.rules, &rule{match: match, resp: []Response{{Out: out, Err: err}}})
    return r
}

// Fail queues a non-zero exit with the given output.
func (r *Runner) Fail(match, out string) *Runner {
    return r.On(match, out, &appctl.CommandError{Args: strings.Fields(match), Output: out, ExitCode: 1})
}

func (r *Runner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    argv := append([]string{name}, args...)
    r.calls = append(r.calls, argv)
    line := strings.Join(argv, " ")
    for _, ru := range r.rules {
        if !strings.Contains(line, ru.match) { continue }
        resp := ru.resp[0]
        if len(ru.resp) > 1 { ru.resp = ru.resp[1:] }
        if resp.Err != nil {
            if ce, ok := resp.Err.(*appctl.CommandError); ok {
                cp := *ce
                cp.Args = argv
                return []byte(resp.Out), &cp
            }
        }
        return []byte(resp.Out), resp.Err
    }
    return nil, &appctl.CommandError{Args: argv, Output: "unexpected command", ExitCode: 127}
}

// Calls returns every command line run so far.
func (r *Runner) Calls() [][]string {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := make([][]string, len(r.calls))
    copy(out, r.calls)
    return out
}

// Count returns how many commands contained match.
func (r *Runner) Count(match string) int {
    n := 0
    for _, c := range r.Calls() {
        if strings.Contains(strings.Join(c, " "), match) { n++ }
    }
    return n
}
