package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/xraph/gatekeeper/pagination"
)

type widget struct {
	ID   string
	Name string
}

func widgetKey(w widget) string { return w.ID }

type httpErr struct {
	code int
	msg  string
}

func (e *httpErr) Error() string         { return "transport: request failed" }
func (e *httpErr) StatusCode() int       { return e.code }
func (e *httpErr) ServerMessage() string { return e.msg }

func newTestStore(t *testing.T) (*Store[widget], *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(time.Now())
	s := NewStore[widget]("widgets", widgetKey, WithClock(clk))
	t.Cleanup(s.Close)
	return s, clk
}

// waitFor polls cond until it holds or a second passes. Test clock timers
// deliver their callbacks on a separate goroutine.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTransitions(t *testing.T) {
	s, _ := newTestStore(t)

	if s.Status(OpCreate).Phase() != Idle {
		t.Fatal("expected idle before dispatch")
	}
	s.Begin(OpCreate)
	if st := s.Status(OpCreate); !st.Pending || st.Phase() != Pending {
		t.Fatalf("expected pending, got %+v", st)
	}
	s.SucceedUpsert(OpCreate, widget{ID: "w1", Name: "one"})
	if st := s.Status(OpCreate); st.Pending || !st.Succeeded || st.Phase() != Succeeded {
		t.Fatalf("expected succeeded, got %+v", st)
	}

	s.Begin(OpUpdate)
	s.Fail(OpUpdate, &httpErr{code: 409, msg: "name already exists"})
	st := s.Status(OpUpdate)
	if st.Phase() != Failed || st.Error != "name already exists" || !st.Conflict() {
		t.Fatalf("expected conflict failure, got %+v", st)
	}
}

func TestAutoClearAfterDelay(t *testing.T) {
	s, clk := newTestStore(t)

	s.Begin(OpCreate)
	s.SucceedUpsert(OpCreate, widget{ID: "w1"})
	if !s.Status(OpCreate).Succeeded {
		t.Fatal("succeeded should be visible immediately")
	}

	clk.Advance(DefaultClearDelay - time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if !s.Status(OpCreate).Succeeded {
		t.Fatal("succeeded cleared before the delay elapsed")
	}

	clk.Advance(time.Millisecond)
	waitFor(t, func() bool { return s.Status(OpCreate).Phase() == Idle })

	if len(s.Items()) != 1 {
		t.Fatal("auto-clear must not touch data")
	}
}

func TestFailureAutoClears(t *testing.T) {
	s, clk := newTestStore(t)

	s.Begin(OpDelete)
	s.Fail(OpDelete, errors.New("connection refused"))
	if s.Status(OpDelete).Error != "connection refused" {
		t.Fatalf("unexpected error text %q", s.Status(OpDelete).Error)
	}

	clk.Advance(DefaultClearDelay)
	waitFor(t, func() bool { return s.Status(OpDelete).Error == "" })
}

func TestNextDispatchClearsSignalsOfKind(t *testing.T) {
	s, clk := newTestStore(t)

	s.Begin(OpCreate)
	s.SucceedUpsert(OpCreate, widget{ID: "w1"})
	s.Begin(OpDelete)
	s.Fail(OpDelete, errors.New("boom"))

	s.Begin(OpFetch)
	if s.Status(OpCreate).Succeeded || s.Status(OpDelete).Error != "" {
		t.Fatal("dispatch should clear transient signals of every operation")
	}

	// The stale timers must not clear the fresh fetch outcome.
	s.SucceedList(OpFetch, []widget{{ID: "w2"}}, pagination.NewPage(1, 10, 1))
	clk.Advance(DefaultClearDelay / 2)
	time.Sleep(5 * time.Millisecond)
	if !s.Status(OpFetch).Succeeded {
		t.Fatal("fetch signal cleared early")
	}
}

func TestRedispatchInvalidatesOldTimer(t *testing.T) {
	s, clk := newTestStore(t)

	s.Begin(OpUpdate)
	s.Succeed(OpUpdate)
	clk.Advance(DefaultClearDelay / 2)

	s.Begin(OpUpdate)
	s.Succeed(OpUpdate)
	clk.Advance(DefaultClearDelay/2 + time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if !s.Status(OpUpdate).Succeeded {
		t.Fatal("first timer cleared the second success")
	}

	clk.Advance(DefaultClearDelay / 2)
	waitFor(t, func() bool { return !s.Status(OpUpdate).Succeeded })
}

func TestDataTransitions(t *testing.T) {
	s, _ := newTestStore(t)

	s.Begin(OpFetch)
	s.SucceedList(OpFetch, []widget{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}, pagination.NewPage(1, 10, 2))
	if got := s.Items(); len(got) != 2 || s.Page().TotalItems != 2 {
		t.Fatalf("unexpected list after fetch: %+v", got)
	}

	s.Begin(OpUpdate)
	s.SucceedUpsert(OpUpdate, widget{ID: "a", Name: "A2"})
	if w, _ := s.Find("a"); w.Name != "A2" || len(s.Items()) != 2 {
		t.Fatal("update should replace in place")
	}

	s.Begin(OpCreate)
	s.SucceedUpsert(OpCreate, widget{ID: "c", Name: "C"})
	if len(s.Items()) != 3 || s.Page().TotalItems != 3 {
		t.Fatal("create should append and bump totals")
	}

	s.Begin(OpGet)
	s.SucceedDetail(OpGet, widget{ID: "b", Name: "B2"})
	if d, ok := s.Detail(); !ok || d.Name != "B2" {
		t.Fatal("detail not set")
	}
	if w, _ := s.Find("b"); w.Name != "B2" {
		t.Fatal("detail should refresh the listed entry")
	}

	s.Begin(OpDelete)
	s.SucceedRemove(OpDelete, "b")
	if _, ok := s.Find("b"); ok {
		t.Fatal("delete should prune")
	}
	if _, ok := s.Detail(); ok {
		t.Fatal("delete should drop a matching detail")
	}
	if s.Page().TotalItems != 2 {
		t.Fatalf("expected total 2, got %d", s.Page().TotalItems)
	}
}

func TestListenersAndIndependentFlags(t *testing.T) {
	s, _ := newTestStore(t)

	var snaps []Snapshot[widget]
	cancel := s.Subscribe(func(snap Snapshot[widget]) { snaps = append(snaps, snap) })

	s.Begin(OpFetch)
	s.Begin(OpDelete)
	if !s.Status(OpFetch).Pending || !s.Status(OpDelete).Pending || !s.Busy() {
		t.Fatal("operations should be pending independently")
	}
	s.SucceedRemove(OpDelete, "missing")
	if !s.Status(OpFetch).Pending {
		t.Fatal("finishing delete must not settle fetch")
	}
	if len(snaps) != 3 || !snaps[2].Ops[OpDelete].Succeeded {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}

	cancel()
	s.Reset(OpFetch)
	if len(snaps) != 3 {
		t.Fatal("listener called after unsubscribe")
	}
	if s.Busy() {
		t.Fatal("reset should settle fetch")
	}
}

func TestHoldDefersListeners(t *testing.T) {
	s, _ := newTestStore(t)

	var snaps []Snapshot[widget]
	s.Subscribe(func(snap Snapshot[widget]) { snaps = append(snaps, snap) })

	release := s.Hold()
	inner := s.Hold()
	s.Begin(OpUpdate)
	s.SucceedUpsert(OpUpdate, widget{ID: "w1", Name: "one"})
	if st := s.Status(OpUpdate); !st.Succeeded {
		t.Fatalf("held transitions must still apply, got %+v", st)
	}
	inner()
	if len(snaps) != 0 {
		t.Fatal("listeners ran while an outer hold was active")
	}
	release()
	release()
	if len(snaps) != 1 {
		t.Fatalf("expected one coalesced notification, got %d", len(snaps))
	}
	if st := snaps[0].Ops[OpUpdate]; !st.Succeeded || len(snaps[0].Items) != 1 {
		t.Fatalf("notification should carry the final state, got %+v", snaps[0])
	}

	quiet := s.Hold()
	quiet()
	if len(snaps) != 1 {
		t.Fatal("releasing a hold without changes must not notify")
	}
}

func TestErrorMessageFallbacks(t *testing.T) {
	if got := ErrorMessage(&httpErr{code: 500, msg: "db down"}); got != "db down" {
		t.Fatalf("expected server message, got %q", got)
	}
	if got := ErrorMessage(&httpErr{code: 500}); got != "transport: request failed" {
		t.Fatalf("expected transport text, got %q", got)
	}
	if got := ErrorMessage(errors.New("")); got != GenericMessage {
		t.Fatalf("expected generic message, got %q", got)
	}
	if ErrorCode(errors.New("x")) != 0 {
		t.Fatal("plain errors carry no code")
	}
}
