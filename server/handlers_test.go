package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HARINII2415/femina360/server/models"
	"github.com/HARINII2415/femina360/server/notifier"
	"github.com/HARINII2415/femina360/server/otp"
	"github.com/HARINII2415/femina360/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	smsCount  int
	callCount int
}

func (f *fakeMessenger) SendMessage(to, msg string) error {
	f.smsCount++
	return nil
}

func (f *fakeMessenger) MakeCall(to, twimlURL string) error {
	f.callCount++
	return nil
}

func postAlert(t *testing.T, payload shared.AlertPayload) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rw := httptest.NewRecorder()
	emergencyAlertHandler(rw, httptest.NewRequest("POST", "/emergency-alert", bytes.NewReader(body)))
	return rw
}

func TestEmergencyAlertFansOutToContacts(t *testing.T) {
	messenger := &fakeMessenger{}
	alertService = notifier.NewService(messenger, "https://localhost:3000/emergency-call-twiml")

	rw := postAlert(t, shared.AlertPayload{
		UserID:   "7",
		UserName: "wanda maximoff",
		Contacts: []shared.AlertContact{
			{ID: "1", Name: "vision", Phone: "+12345678900", IsPrimary: true},
			{ID: "2", Name: "pietro maximoff", Phone: "+12345678901"},
		},
		Timestamp: time.Now(),
	})

	assert.Equal(t, http.StatusOK, rw.Code)

	resp := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(2), resp["smsCount"])
	assert.Equal(t, float64(1), resp["callsInitiated"])
}

func TestEmergencyAlertWithNoContactsSettlesWithZeroCounts(t *testing.T) {
	messenger := &fakeMessenger{}
	alertService = notifier.NewService(messenger, "https://localhost:3000/emergency-call-twiml")

	rw := postAlert(t, shared.AlertPayload{
		UserID:    "7",
		UserName:  "wanda maximoff",
		Contacts:  []shared.AlertContact{},
		Timestamp: time.Now(),
	})

	// Nobody to reach is a warning, never a failure.
	assert.Equal(t, http.StatusOK, rw.Code)

	resp := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(0), resp["smsCount"])
	assert.Equal(t, float64(0), resp["callsInitiated"])
	assert.Equal(t, 0, messenger.smsCount)
	assert.Equal(t, 0, messenger.callCount)
}

func TestVerifyOtpRejectsInvalidCode(t *testing.T) {
	models.InitializeTestDb()
	otpService = otp.NewService(&fakeMessenger{}, true)

	rw := httptest.NewRecorder()
	verifyOtpHandler(rw, httptest.NewRequest(
		"POST", "/verify-otp",
		strings.NewReader(`{"phone_number":"+12345678901","code":"000000"}`),
	))

	assert.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestVerifyOtpAcceptsFreshCode(t *testing.T) {
	models.InitializeTestDb()
	otpService = otp.NewService(&fakeMessenger{}, true)

	result, err := otpService.Issue("+12345678901", models.VERIFICATION_OTP)
	require.NoError(t, err)
	require.NotEmpty(t, result.Code)

	body, err := json.Marshal(map[string]string{
		"phone_number": "+12345678901",
		"code":         result.Code,
	})
	require.NoError(t, err)

	rw := httptest.NewRecorder()
	verifyOtpHandler(rw, httptest.NewRequest("POST", "/verify-otp", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, rw.Code)
}
