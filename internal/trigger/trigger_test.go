package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"snapvault/internal/config"
)

func TestNewIntervalDisabled(t *testing.T) {
	if NewInterval(0, nil) != nil {
		t.Fatal("zero period should disable the interval trigger")
	}
	var i *Interval
	if err := i.Run(context.Background(), make(chan Event, 1)); err == nil {
		t.Fatal("expected error from nil interval trigger")
	}
}

func TestIntervalEmitsAndCoalesces(t *testing.T) {
	i := NewInterval(5*time.Millisecond, nil)
	out := make(chan Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- i.Run(ctx, out) }()

	select {
	case ev := <-out:
		if ev.Source != SourceInterval || ev.At.IsZero() {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no tick received")
	}

	// Leave the loop "busy" for several periods; the buffer holds one event.
	time.Sleep(30 * time.Millisecond)
	if len(out) != 1 {
		t.Fatalf("expected one pending event, got %d", len(out))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNewNetlink(t *testing.T) {
	if NewNetlink(config.Trigger{}, nil) != nil {
		t.Fatal("expected nil when udev is disabled")
	}
	n := NewNetlink(config.Trigger{UdevEnabled: true, UdevSubsystem: "input", UdevAction: "add"}, nil)
	if n == nil || n.Name() != SourceUdev {
		t.Fatal("expected configured netlink trigger")
	}
}

func TestNetlinkMatcher(t *testing.T) {
	n := NewNetlink(config.Trigger{UdevEnabled: true, UdevSubsystem: "input", UdevAction: "add"}, nil)
	matcher := n.matcher()

	cases := []struct {
		name  string
		event netlink.UEvent
		want  bool
	}{
		{"matching add", netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "input"}}, true},
		{"other action", netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"SUBSYSTEM": "input"}}, false},
		{"other subsystem", netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "block"}}, false},
		{"subsystem prefix only", netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "input_ext"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := matcher.Evaluate(tc.event); got != tc.want {
				t.Fatalf("Evaluate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNetlinkEventDeviceFilter(t *testing.T) {
	n := NewNetlink(config.Trigger{UdevEnabled: true, UdevSubsystem: "input", UdevAction: "add", UdevDevname: "/dev/input/event3"}, nil)
	n.now = func() time.Time { return time.Unix(100, 0) }

	if _, ok := n.event(netlink.UEvent{Env: map[string]string{"DEVNAME": "/dev/input/event1"}}); ok {
		t.Fatal("expected other device to be ignored")
	}
	ev, ok := n.event(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"DEVNAME": "input/event3"}})
	if !ok {
		t.Fatal("expected configured device to match")
	}
	if ev.Source != SourceUdev || ev.Detail != "/dev/input/event3" || !ev.At.Equal(time.Unix(100, 0)) {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestDeviceName(t *testing.T) {
	cases := map[string]netlink.UEvent{
		"/dev/sr0":    {Env: map[string]string{"DEVNAME": "/dev/sr0"}},
		"/dev/event2": {Env: map[string]string{"DEVPATH": "/devices/virtual/input/input5/event2"}},
		"":            {Env: map[string]string{}},
		"/dev/video0": {Env: map[string]string{"DEVNAME": "video0"}},
	}
	for want, ev := range cases {
		if got := deviceName(ev); got != want {
			t.Errorf("deviceName(%v) = %q, want %q", ev.Env, got, want)
		}
	}
}
