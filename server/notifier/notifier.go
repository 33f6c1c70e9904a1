package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/HARINII2415/femina360/server/logger"
	"github.com/HARINII2415/femina360/shared"
)

// ErrNoContacts is a warning, not a failure: notify reports zero counts
// and the caller surfaces "no contacts configured" to the user.
var ErrNoContacts = errors.New("no contacts configured")

var logg = logger.NewLogger()

// Messenger sends SMS & places voice calls. Implemented by the twilio
// client wrapper; tests swap in fakes.
type Messenger interface {
	SendMessage(to, msg string) error
	MakeCall(to, twimlURL string) error
}

// Service fans an alert out to every contact. Per-contact failures are
// isolated - one contact failing never stops the others - and the receipt
// is reported only after every attempt has settled.
type Service struct {
	messenger Messenger
	twimlURL  string
}

func NewService(messenger Messenger, twimlURL string) *Service {
	return &Service{messenger: messenger, twimlURL: twimlURL}
}

// Notify sends an SMS to every contact and places a voice call to the
// primary contact. The receipt carries counts of attempts that succeeded.
func (s *Service) Notify(ctx context.Context, payload shared.AlertPayload) (shared.AlertReceipt, error) {
	receipt := shared.AlertReceipt{}

	if len(payload.Contacts) == 0 {
		logg.Warnf("emergency alert for %v has no contacts configured", payload.UserID)
		return receipt, ErrNoContacts
	}

	message := AlertMessage(payload)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, contact := range payload.Contacts {
		wg.Add(1)
		go func(contact shared.AlertContact) {
			defer wg.Done()

			err := s.messenger.SendMessage(contact.Phone, message)
			if err != nil {
				logg.Errorf("failed to send alert SMS to %v (%v): %v", contact.Name, contact.Phone, err)
				return
			}

			mu.Lock()
			receipt.SmsCount++
			mu.Unlock()
		}(contact)

		if contact.IsPrimary {
			wg.Add(1)
			go func(contact shared.AlertContact) {
				defer wg.Done()

				err := s.messenger.MakeCall(contact.Phone, s.twimlURL)
				if err != nil {
					logg.Errorf("failed to call %v (%v): %v", contact.Name, contact.Phone, err)
					return
				}

				mu.Lock()
				receipt.CallsInitiated++
				mu.Unlock()
			}(contact)
		}
	}

	wg.Wait()

	logg.Infof("emergency alert for %v settled: %v sms sent, %v calls initiated",
		payload.UserID, receipt.SmsCount, receipt.CallsInitiated)

	return receipt, nil
}

// AlertMessage renders the SMS body sent to each contact. Location and
// evidence lines degrade to neutral placeholders when absent.
func AlertMessage(payload shared.AlertPayload) string {
	locationText := "Location: Not available"
	if payload.Location != nil {
		locationText = fmt.Sprintf("Location: https://maps.google.com/?q=%v,%v",
			payload.Location.Lat, payload.Location.Lng)
	}

	evidenceText := "Evidence: Not available"
	if payload.EvidenceURL != "" {
		evidenceText = fmt.Sprintf("Evidence: %v", payload.EvidenceURL)
	}

	return fmt.Sprintf(
		"🚨 EMERGENCY ALERT 🚨\n"+
			"%v needs immediate help!\n\n"+
			"%v\n\n"+
			"%v\n\n"+
			"Time: %v\n\n"+
			"This is an automated emergency alert from Femina360.",
		payload.UserName, locationText, evidenceText,
		payload.Timestamp.Format("Jan 2, 2006 3:04:05 PM"))
}
