package otp

import (
	"regexp"
	"sync"
	"testing"

	"github.com/HARINII2415/femina360/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	mu       sync.Mutex
	messages []string
	to       []string
}

func (f *fakeMessenger) SendMessage(to, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	f.messages = append(f.messages, msg)
	return nil
}

func TestIssueAndVerify(t *testing.T) {
	models.InitializeTestDb()

	messenger := &fakeMessenger{}
	service := NewService(messenger, true)

	result, err := service.Issue("+12345678900", models.VERIFICATION_OTP)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), result.Code, "dev mode surfaces the 6-digit code")
	require.Len(t, messenger.messages, 1)
	assert.Contains(t, messenger.messages[0], result.Code)
	assert.Equal(t, []string{"+12345678900"}, messenger.to)

	require.NoError(t, service.Verify("+12345678900", result.Code, models.VERIFICATION_OTP))

	// Codes are single use.
	assert.ErrorIs(t, service.Verify("+12345678900", result.Code, models.VERIFICATION_OTP), models.ErrInvalidOtp)
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	models.InitializeTestDb()

	service := NewService(&fakeMessenger{}, true)
	_, err := service.Issue("+12345678900", models.VERIFICATION_OTP)
	require.NoError(t, err)

	assert.ErrorIs(t, service.Verify("+12345678900", "000000", models.VERIFICATION_OTP), models.ErrInvalidOtp)
}

func TestReissueInvalidatesPendingCode(t *testing.T) {
	models.InitializeTestDb()

	service := NewService(&fakeMessenger{}, true)

	first, err := service.Issue("+12345678900", models.VERIFICATION_OTP)
	require.NoError(t, err)

	second, err := service.Issue("+12345678900", models.VERIFICATION_OTP)
	require.NoError(t, err)

	assert.ErrorIs(t, service.Verify("+12345678900", first.Code, models.VERIFICATION_OTP), models.ErrInvalidOtp)
	assert.NoError(t, service.Verify("+12345678900", second.Code, models.VERIFICATION_OTP))
}

func TestOtpIsScopedToTypeAndNumber(t *testing.T) {
	models.InitializeTestDb()

	service := NewService(&fakeMessenger{}, true)

	result, err := service.Issue("+12345678900", models.VERIFICATION_OTP)
	require.NoError(t, err)

	assert.ErrorIs(t, service.Verify("+12345678900", result.Code, models.PASSWORD_RESET_OTP), models.ErrInvalidOtp)
	assert.ErrorIs(t, service.Verify("+19999999999", result.Code, models.VERIFICATION_OTP), models.ErrInvalidOtp)
}

func TestProdModeHidesCode(t *testing.T) {
	models.InitializeTestDb()

	service := NewService(&fakeMessenger{}, false)

	result, err := service.Issue("+12345678900", models.VERIFICATION_OTP)
	require.NoError(t, err)
	assert.Empty(t, result.Code)
	assert.False(t, result.ExpiresAt.IsZero())
}
