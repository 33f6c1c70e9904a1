package notifier

import (
	"context"
	"sync"
	"testing"

	"github.com/HARINII2415/femina360/shared"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeMessenger struct {
	mu       sync.Mutex
	sms      []string
	calls    []string
	failSms  map[string]bool
	failCall bool
}

func (f *fakeMessenger) SendMessage(to, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSms[to] {
		return errors.New("undeliverable")
	}
	f.sms = append(f.sms, to)
	return nil
}

func (f *fakeMessenger) MakeCall(to, twimlURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCall {
		return errors.New("call failed")
	}
	f.calls = append(f.calls, to)
	return nil
}

func testContacts() []shared.AlertContact {
	return []shared.AlertContact{
		{ID: "1", Name: "pepper potts", Phone: "+12345678901", IsPrimary: true},
		{ID: "2", Name: "happy hogan", Phone: "+12345678902"},
		{ID: "3", Name: "james rhodes", Phone: "+12345678903"},
		{ID: "4", Name: "peter parker", Phone: "+12345678904"},
		{ID: "5", Name: "may parker", Phone: "+12345678905"},
	}
}

func TestNotifySendsSmsToAllAndCallsPrimary(t *testing.T) {
	messenger := &fakeMessenger{}
	service := NewService(messenger, "https://example.com/twiml")

	receipt, err := service.Notify(context.Background(), shared.AlertPayload{
		UserID:   "7",
		UserName: "wanda maximoff",
		Contacts: testContacts(),
	})

	assert.NoError(t, err)
	assert.Equal(t, 5, receipt.SmsCount)
	assert.Equal(t, 1, receipt.CallsInitiated)
	assert.Equal(t, []string{"+12345678901"}, messenger.calls, "only the primary contact is called")
}

func TestNotifyIsolatesPerContactFailures(t *testing.T) {
	messenger := &fakeMessenger{failSms: map[string]bool{
		"+12345678902": true,
		"+12345678904": true,
	}}
	service := NewService(messenger, "https://example.com/twiml")

	receipt, err := service.Notify(context.Background(), shared.AlertPayload{
		UserID:   "7",
		Contacts: testContacts(),
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, receipt.SmsCount, "failed sends are excluded from the tally")
	assert.Equal(t, 1, receipt.CallsInitiated)
}

func TestNotifyFailedCallStillCountsSms(t *testing.T) {
	messenger := &fakeMessenger{failCall: true}
	service := NewService(messenger, "https://example.com/twiml")

	receipt, err := service.Notify(context.Background(), shared.AlertPayload{
		UserID:   "7",
		Contacts: testContacts(),
	})

	assert.NoError(t, err)
	assert.Equal(t, 5, receipt.SmsCount)
	assert.Equal(t, 0, receipt.CallsInitiated)
}

func TestNotifyNoContacts(t *testing.T) {
	service := NewService(&fakeMessenger{}, "https://example.com/twiml")

	receipt, err := service.Notify(context.Background(), shared.AlertPayload{UserID: "7"})

	assert.ErrorIs(t, err, ErrNoContacts)
	assert.Equal(t, 0, receipt.SmsCount)
	assert.Equal(t, 0, receipt.CallsInitiated)
}

func TestAlertMessageWithLocationAndEvidence(t *testing.T) {
	msg := AlertMessage(shared.AlertPayload{
		UserName:    "carol danvers",
		Location:    &shared.Location{Lat: 43.6532, Lng: -79.3832},
		EvidenceURL: "https://storage.googleapis.com/evidence/e.webm",
	})

	assert.Contains(t, msg, "carol danvers needs immediate help!")
	assert.Contains(t, msg, "https://maps.google.com/?q=43.6532,-79.3832")
	assert.Contains(t, msg, "Evidence: https://storage.googleapis.com/evidence/e.webm")
}

func TestAlertMessageDegradesGracefully(t *testing.T) {
	msg := AlertMessage(shared.AlertPayload{UserName: "carol danvers"})

	assert.Contains(t, msg, "Location: Not available")
	assert.Contains(t, msg, "Evidence: Not available")
}
