package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/lumenadmin/authcore/internal/stores"
)

// SendMFACode delivers a second-factor SMS code for a pending challenge.
// The challenge stays valid; only the code slot is rewritten. Rejected for
// challenges whose factor is not SMS.
func (e *Engine) SendMFACode(ctx context.Context, mfaToken string) error {
	if mfaToken == "" {
		return ErrValidation
	}
	if e.sms == nil {
		return ErrEngineNotReady
	}

	challenge, err := e.challenges.Resolve(ctx, mfaToken)
	if err != nil {
		if errors.Is(err, stores.ErrChallengeNotFound) {
			return ErrMFAChallengeInvalid
		}
		return err
	}
	if challenge.Factor != FactorSMS.String() {
		return ErrMFAChallengeInvalid
	}

	user, err := e.directory.GetByID(ctx, challenge.UserID)
	if err != nil {
		return err
	}
	if user.Mobile == "" {
		return ErrMFANotEnabled
	}

	return e.sendCode(ctx, stores.PurposeMFA, user.Mobile)
}

// VerifyMFA completes a pending login with the second-factor code. The
// challenge token is single-use: it is consumed on success, and a code for
// one factor kind never satisfies a challenge of the other. Unknown and
// expired tokens and wrong codes all return the same error; the caller
// restarts login either way.
func (e *Engine) VerifyMFA(ctx context.Context, mfaToken, code string) (*LoginResult, error) {
	if mfaToken == "" || code == "" {
		return nil, ErrValidation
	}

	challenge, err := e.challenges.Resolve(ctx, mfaToken)
	if err != nil {
		if errors.Is(err, stores.ErrChallengeNotFound) {
			e.metricInc(MetricMFAFailure)
			return nil, ErrMFAChallengeInvalid
		}
		return nil, err
	}

	user, err := e.directory.GetByID(ctx, challenge.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	if user.MFAType == FactorNone {
		return nil, ErrMFANotEnabled
	}
	if challenge.Factor != user.MFAType.String() {
		e.metricInc(MetricMFAFailure)
		return nil, ErrMFAChallengeInvalid
	}

	ok, err := e.verifySecondFactor(ctx, user, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.metricInc(MetricMFAFailure)
		return nil, ErrMFAChallengeInvalid
	}

	if err := e.challenges.Consume(ctx, mfaToken); err != nil {
		return nil, err
	}
	e.metricInc(MetricMFASuccess)

	return e.finishLogin(ctx, user, true)
}

func (e *Engine) verifySecondFactor(ctx context.Context, user *UserRecord, code string) (bool, error) {
	switch user.MFAType {
	case FactorTOTP:
		return e.totp.Verify(user.TOTPSecret, code, time.Now())
	case FactorSMS:
		ok, err := e.smsCodes.Verify(ctx, stores.PurposeMFA, user.Mobile, code)
		if err != nil || !ok {
			return false, err
		}
		// Codes are single-use too.
		if err := e.smsCodes.Delete(ctx, stores.PurposeMFA, user.Mobile); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, ErrMFANotEnabled
	}
}
