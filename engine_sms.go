package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumenadmin/authcore/internal/limiters"
	"github.com/lumenadmin/authcore/internal/stores"
)

// SendLoginCode generates an SMS login code for a registered mobile and
// hands it to the SMS gateway. Send limits: one per mobile per interval,
// a daily per-mobile cap, and an hourly per-IP cap, IP taken from the
// context.
func (e *Engine) SendLoginCode(ctx context.Context, mobile string) error {
	if mobile == "" {
		return ErrValidation
	}
	if e.sms == nil {
		return ErrEngineNotReady
	}

	if _, err := e.directory.GetByMobile(ctx, mobile); err != nil {
		return err
	}

	return e.sendCode(ctx, stores.PurposeLogin, mobile)
}

// AuthenticateSMS performs the first authentication step with a mobile and
// a previously sent login code. An account whose second factor is SMS goes
// straight to a session: the login code already proved control of the
// phone.
func (e *Engine) AuthenticateSMS(ctx context.Context, mobile, code string) (*LoginResult, error) {
	if mobile == "" || code == "" {
		return nil, ErrValidation
	}

	locked, err := e.guard.IsLocked(ctx, mobile)
	if err != nil {
		return nil, err
	}
	if locked {
		e.metricInc(MetricLoginLocked)
		return nil, ErrAccountLocked
	}

	user, err := e.directory.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, e.recordFailure(ctx, mobile)
		}
		return nil, err
	}

	ok, err := e.smsCodes.Verify(ctx, stores.PurposeLogin, mobile, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.recordFailure(ctx, mobile)
	}

	if !user.Active {
		if _, gerr := e.guard.RecordFailure(ctx, mobile); gerr != nil {
			return nil, gerr
		}
		e.metricInc(MetricLoginFailure)
		return nil, ErrAccountDisabled
	}

	if err := e.smsCodes.Delete(ctx, stores.PurposeLogin, mobile); err != nil {
		return nil, err
	}
	if err := e.guard.Reset(ctx, mobile); err != nil {
		return nil, err
	}

	return e.finishLogin(ctx, user, user.MFAType == FactorSMS)
}

// sendCode runs the send limits, generates a code in the purpose slot, and
// delivers it. The counters only move after the gateway accepted the send.
func (e *Engine) sendCode(ctx context.Context, purpose stores.CodePurpose, mobile string) error {
	ip := clientIPFromContext(ctx)

	allowed, reason, err := e.smsGate.CanSend(ctx, mobile, ip)
	if err != nil {
		return err
	}
	if !allowed {
		e.metricInc(MetricSMSRateLimited)
		return fmt.Errorf("%w: %s", ErrSMSRateLimited, denyMessage(reason))
	}

	code, err := e.smsCodes.Generate(ctx, purpose, mobile, e.config.SMS.CodeDigits)
	if err != nil {
		return err
	}
	if err := e.sms.Send(ctx, mobile, code); err != nil {
		return err
	}
	if err := e.smsGate.RecordSent(ctx, mobile, ip); err != nil {
		return err
	}

	e.metricInc(MetricSMSSent)
	return nil
}

func denyMessage(reason limiters.DenyReason) string {
	switch reason {
	case limiters.DenyMobileInterval:
		return "wait before requesting another code"
	case limiters.DenyMobileDaily:
		return "daily code limit reached for this number"
	case limiters.DenyIPHourly:
		return "too many code requests from this address"
	default:
		return "code sending temporarily limited"
	}
}
