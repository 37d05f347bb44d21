package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"aide/internal/service"
)

// OTPLength is the number of digit slots.
const OTPLength = 4

// ErrorIndicatorDuration is how long the error indicator stays raised.
const ErrorIndicatorDuration = time.Second

// verifiedMessage is compared case-insensitively with the validation response.
const verifiedMessage = "otp verified"

var (
	// ErrIncompleteOTP is returned by Submit when a slot is empty. No request is made.
	ErrIncompleteOTP = &ValidationError{Title: "Incomplete OTP", Detail: "Please enter the 4-digit OTP"}

	// ErrInvalidDigit is returned by SetDigit for anything but one ASCII digit.
	ErrInvalidDigit = &ValidationError{Title: "Invalid Input", Detail: "Please enter a single digit (0-9)."}

	// ErrResendDisabled is returned by Resend while the countdown runs.
	ErrResendDisabled = errors.New("resend is not available yet")
)

var validate = validator.New()

// Navigation is what a verified session carries forward to the next step.
type Navigation struct {
	Email string
	OTP   string
	Key   string
}

// OTPResult is the outcome of Submit. Next is set only on Success.
type OTPResult struct {
	Result
	Next *Navigation
}

// OTPSession is the state behind one code-entry screen for one email address.
type OTPSession struct {
	svc   service.Service
	email string
	log   logrus.FieldLogger

	// IndicatorDuration overrides ErrorIndicatorDuration (for testing).
	IndicatorDuration time.Duration

	mu        sync.Mutex
	slots     [OTPLength]string
	errorOn   bool
	errorGen  int
	countdown *Countdown
}

// NewOTPSession starts a session for email. The resend countdown starts immediately.
func NewOTPSession(svc service.Service, email string, log logrus.FieldLogger, now func() time.Time) (*OTPSession, error) {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, &ValidationError{Title: "Invalid email", Detail: email}
	}
	return &OTPSession{
		svc:               svc,
		email:             email,
		log:               log,
		IndicatorDuration: ErrorIndicatorDuration,
		countdown:         NewCountdown(ResendCooldown, now),
	}, nil
}

// Email returns the address the session verifies.
func (s *OTPSession) Email() string { return s.email }

// SetDigit sets slot i. v must be empty or a single digit; otherwise the slot is unchanged.
func (s *OTPSession) SetDigit(i int, v string) error {
	if i < 0 || i >= OTPLength {
		return ErrInvalidDigit
	}
	if len(v) > 1 || (v != "" && (v[0] < '0' || v[0] > '9')) {
		return ErrInvalidDigit
	}
	s.mu.Lock()
	s.slots[i] = v
	s.mu.Unlock()
	return nil
}

// Enter fills the slots from code, one character per slot, left to right.
// Stops at the first invalid character and returns ErrInvalidDigit.
func (s *OTPSession) Enter(code string) error {
	s.Clear()
	for i, r := range code {
		if i >= OTPLength {
			return ErrInvalidDigit
		}
		if err := s.SetDigit(i, string(r)); err != nil {
			return err
		}
	}
	return nil
}

// Slots returns a copy of the digit slots.
func (s *OTPSession) Slots() [OTPLength]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots
}

// Clear empties every slot.
func (s *OTPSession) Clear() {
	s.mu.Lock()
	s.slots = [OTPLength]string{}
	s.mu.Unlock()
}

// ErrorShown reports whether the error indicator is raised.
func (s *OTPSession) ErrorShown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorOn
}

// ResendIn returns the seconds left before Resend is allowed; 0 means allowed.
func (s *OTPSession) ResendIn() int {
	return s.countdown.Remaining()
}

// Submit validates the entered code with the backend.
// Returns ErrIncompleteOTP without a request when fewer than four digits are entered.
func (s *OTPSession) Submit(ctx context.Context) (OTPResult, error) {
	s.mu.Lock()
	code := strings.Join(s.slots[:], "")
	s.mu.Unlock()

	if len(code) != OTPLength {
		s.raiseError()
		return OTPResult{}, ErrIncompleteOTP
	}

	resp, err := s.svc.ValidateOTP(ctx, s.email, code)
	if err != nil {
		s.log.WithError(err).Error("error verifying OTP")
		s.fail()
		return OTPResult{Result: Result{Outcome: Transport, Message: "Network error. Please try again.", Err: err}}, nil
	}
	s.log.WithField("message", resp.Message).Debug("OTP verification response")

	if !strings.EqualFold(resp.Message, verifiedMessage) {
		s.fail()
		return OTPResult{Result: Result{Outcome: Rejected, Message: "Invalid OTP. Please try again."}}, nil
	}

	s.mu.Lock()
	s.errorOn = false
	s.errorGen++
	s.mu.Unlock()
	return OTPResult{
		Result: Result{Outcome: Success, Message: "OTP verified successfully!"},
		Next:   &Navigation{Email: s.email, OTP: code, Key: resp.Key},
	}, nil
}

// Resend requests a new code. The slots are cleared and the countdown restarts
// whatever the backend answers. Returns ErrResendDisabled while the countdown runs.
func (s *OTPSession) Resend(ctx context.Context) (Result, error) {
	if !s.countdown.Take() {
		return Result{}, ErrResendDisabled
	}
	s.Clear()

	sent, err := s.svc.SendOTP(ctx, s.email)
	if err != nil {
		s.log.WithError(err).Error("error resending OTP")
		return Result{Outcome: Transport, Message: "Failed to resend OTP. Please check your connection.", Err: err}, nil
	}
	if !sent {
		return Result{Outcome: Rejected, Message: "Failed to resend OTP"}, nil
	}
	return Result{Outcome: Success, Message: "OTP resent successfully"}, nil
}

// fail clears the slots and raises the error indicator.
func (s *OTPSession) fail() {
	s.Clear()
	s.raiseError()
}

// raiseError shows the indicator and schedules its reset. A later raise
// supersedes the pending reset of an earlier one.
func (s *OTPSession) raiseError() {
	s.mu.Lock()
	s.errorOn = true
	s.errorGen++
	gen := s.errorGen
	d := s.IndicatorDuration
	s.mu.Unlock()

	time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.errorGen == gen {
			s.errorOn = false
		}
	})
}

// SendCode requests the first code for email, before a session exists.
func SendCode(ctx context.Context, svc service.Service, email string, log logrus.FieldLogger) (Result, error) {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return Result{}, &ValidationError{Title: "Invalid email", Detail: email}
	}
	sent, err := svc.SendOTP(ctx, email)
	if err != nil {
		log.WithError(err).Error("error sending OTP")
		return Result{Outcome: Transport, Message: "Failed to send OTP. Please check your connection.", Err: err}, nil
	}
	if !sent {
		return Result{Outcome: Rejected, Message: "Failed to send OTP"}, nil
	}
	return Result{Outcome: Success, Message: "OTP sent to " + email}, nil
}
