package limiters

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumenadmin/authcore/internal/rate"
)

// DenyReason identifies which SMS send limit was violated. The first failing
// check in order (interval, daily, IP) wins for the caller-facing message.
type DenyReason string

const (
	// DenyNone means the send is allowed.
	DenyNone DenyReason = ""
	// DenyMobileInterval: one send per mobile per 60 seconds.
	DenyMobileInterval DenyReason = "mobile_interval"
	// DenyMobileDaily: at most 10 sends per mobile per 24 hours.
	DenyMobileDaily DenyReason = "mobile_daily"
	// DenyIPHourly: at most 5 sends per IP per hour.
	DenyIPHourly DenyReason = "ip_hourly"
)

// SMSGateConfig tunes the verification-code send limits.
type SMSGateConfig struct {
	MobileInterval time.Duration // min spacing between sends to one mobile
	DailyWindow    time.Duration
	DailyCap       int64
	IPWindow       time.Duration
	IPCap          int64
}

// SMSGate enforces verification-code send limits across three independent
// counters: mobile send interval, mobile daily cap, and per-IP hourly cap.
type SMSGate struct {
	counter *rate.Counter
	config  SMSGateConfig
}

// NewSMSGate creates a gate backed by the given Redis client.
func NewSMSGate(redisClient redis.UniversalClient, cfg SMSGateConfig) *SMSGate {
	return &SMSGate{
		counter: rate.NewCounter(redisClient),
		config:  cfg,
	}
}

func mobileIntervalKey(mobile string) string {
	return "auth:code_sent:mobile:" + mobile
}

func mobileDailyKey(mobile string) string {
	return "auth:code_sent:daily:" + mobile
}

func ipKey(ip string) string {
	return "auth:code_sent:ip:" + ip
}

// CanSend reports whether a verification code may be sent to the mobile from
// the given client IP. All three checks are evaluated in order; the first
// violation decides the reason.
func (g *SMSGate) CanSend(ctx context.Context, mobile, ip string) (bool, DenyReason, error) {
	interval, err := g.counter.Peek(ctx, mobileIntervalKey(mobile))
	if err != nil {
		return false, DenyNone, err
	}
	if interval > 0 {
		return false, DenyMobileInterval, nil
	}

	daily, err := g.counter.Peek(ctx, mobileDailyKey(mobile))
	if err != nil {
		return false, DenyNone, err
	}
	if daily >= g.config.DailyCap {
		return false, DenyMobileDaily, nil
	}

	perIP, err := g.counter.Peek(ctx, ipKey(ip))
	if err != nil {
		return false, DenyNone, err
	}
	if perIP >= g.config.IPCap {
		return false, DenyIPHourly, nil
	}

	return true, DenyNone, nil
}

// RecordSent updates all three counters after a code was actually sent.
// Each counter keeps its own window; the atomic increment primitive sets the
// TTL only on window creation.
func (g *SMSGate) RecordSent(ctx context.Context, mobile, ip string) error {
	if _, err := g.counter.IncrWithWindow(ctx, mobileIntervalKey(mobile), g.config.MobileInterval); err != nil {
		return err
	}
	if _, err := g.counter.IncrWithWindow(ctx, mobileDailyKey(mobile), g.config.DailyWindow); err != nil {
		return err
	}
	if _, err := g.counter.IncrWithWindow(ctx, ipKey(ip), g.config.IPWindow); err != nil {
		return err
	}
	return nil
}
