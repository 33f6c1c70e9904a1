package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/HARINII2415/femina360/server/logger"
	"github.com/HARINII2415/femina360/server/models"
)

var logg = logger.NewLogger()

const (
	CODE_LENGTH = 6
	CODE_TTL    = 10 * time.Minute
)

// Messenger sends the OTP text. The twilio client wrapper satisfies this.
type Messenger interface {
	SendMessage(to, msg string) error
}

// Service issues and verifies one-time passcodes sent over SMS. Codes are
// single use, scoped to a phone number and purpose, and expire after
// CODE_TTL. In dev mode the code is surfaced in the issue result instead
// of relying on a real SMS delivery.
type Service struct {
	messenger Messenger
	devMode   bool
}

func NewService(messenger Messenger, devMode bool) *Service {
	return &Service{messenger: messenger, devMode: devMode}
}

// IssueResult reports a successful send. Code is only populated in dev
// mode; production clients never see it.
type IssueResult struct {
	ExpiresAt time.Time
	Code      string
}

// Issue generates a fresh code for the phone number and texts it out.
// Any pending code of the same type is invalidated.
func (s *Service) Issue(phoneNumber, typ string) (IssueResult, error) {
	code, err := generateCode()
	if err != nil {
		return IssueResult{}, err
	}

	record := &models.Otp{
		PhoneNumber: phoneNumber,
		Code:        code,
		Typ:         typ,
		ExpiresAt:   time.Now().Add(CODE_TTL),
	}
	if err := models.CreateOtp(record); err != nil {
		return IssueResult{}, err
	}

	msg := fmt.Sprintf("Your Femina360 verification code is %v. It expires in %v minutes.", code, int(CODE_TTL.Minutes()))
	if err := s.messenger.SendMessage(phoneNumber, msg); err != nil {
		return IssueResult{}, err
	}

	result := IssueResult{ExpiresAt: record.ExpiresAt}
	if s.devMode {
		logg.Infof("[DEV] OTP for %v: %v", phoneNumber, code)
		result.Code = code
	}

	return result, nil
}

// Verify redeems the code, returning models.ErrInvalidOtp if it is wrong,
// expired or already used.
func (s *Service) Verify(phoneNumber, code, typ string) error {
	return models.RedeemOtp(phoneNumber, code, typ)
}

func generateCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("rand.Int: %v", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
