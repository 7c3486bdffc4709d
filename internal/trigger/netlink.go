package trigger

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"snapvault/internal/config"
	"snapvault/internal/logging"
)

// SourceUdev names events from the netlink monitor.
const SourceUdev = "udev"

// Netlink turns matching udev uevents into capture events.
type Netlink struct {
	subsystem string
	action    string
	devname   string
	logger    *slog.Logger
	now       func() time.Time
}

// NewNetlink returns nil unless udev triggers are enabled.
func NewNetlink(cfg config.Trigger, logger *slog.Logger) *Netlink {
	if !cfg.UdevEnabled || strings.TrimSpace(cfg.UdevSubsystem) == "" {
		return nil
	}
	return &Netlink{
		subsystem: cfg.UdevSubsystem,
		action:    cfg.UdevAction,
		devname:   cfg.UdevDevname,
		logger:    logging.NewComponentLogger(logger, "trigger-netlink"),
		now:       time.Now,
	}
}

func (n *Netlink) Name() string { return SourceUdev }

// Run listens on the kernel uevent socket. Failing to connect is reported to
// the caller; the daemon keeps its other triggers.
func (n *Netlink) Run(ctx context.Context, out chan<- Event) error {
	if n == nil {
		return errors.New("udev trigger not configured")
	}
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(n.logger, "netlink connect failed", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon may open netlink sockets"),
			logging.String(logging.FieldImpact, "udev-triggered captures unavailable"),
		)
		return err
	}
	defer conn.Close()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, n.matcher())
	defer close(quit)

	n.logger.Info("netlink trigger started",
		logging.String("subsystem", n.subsystem),
		logging.String("action", n.action),
		logging.String("devname", n.devname),
		logging.String(logging.FieldEventType, "trigger_started"),
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case uevent := <-queue:
			if ev, ok := n.event(uevent); ok {
				if !offer(out, ev) {
					n.logger.Debug("capture still pending, uevent coalesced")
				}
			}
		case err := <-errs:
			logging.WarnWithContext(n.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "udev events may be missed"),
			)
		}
	}
}

// matcher accepts uevents whose action and subsystem equal the configured ones.
func (n *Netlink) matcher() netlink.Matcher {
	action := "^" + regexp.QuoteMeta(n.action) + "$"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "^" + regexp.QuoteMeta(n.subsystem) + "$",
		},
	})
	return rules
}

// event filters on the device name, which the rule set cannot express when
// the kernel only reports DEVPATH.
func (n *Netlink) event(uevent netlink.UEvent) (Event, bool) {
	dev := deviceName(uevent)
	if n.devname != "" && dev != n.devname {
		n.logger.Debug("ignoring uevent for other device",
			logging.String("device", dev),
			logging.String("configured_device", n.devname),
		)
		return Event{}, false
	}
	n.logger.Info("uevent matched",
		logging.String("device", dev),
		logging.String("action", string(uevent.Action)),
		logging.String(logging.FieldEventType, "netlink_trigger"),
	)
	return Event{Source: SourceUdev, Detail: dev, At: n.now()}, true
}

func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			return "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
