package twilio

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/HARINII2415/femina360/server/logger"
	"github.com/HARINII2415/femina360/shared"
	"github.com/twilio/twilio-go"
	twilioUtil "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var logg = logger.NewLogger()

type ClientWrapper struct {
	client           *twilio.RestClient
	config           shared.TwilioConfig
	requestValidator twilioUtil.RequestValidator
	webhookBaseURL   string
	devMode          bool
}

func NewClient(config shared.TwilioConfig, appUrl string, devMode bool) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{
		client:           client,
		config:           config,
		webhookBaseURL:   appUrl,
		requestValidator: twilioUtil.NewRequestValidator(config.AuthToken),
		devMode:          devMode,
	}
}

// SendMessage sends an SMS to the given number. In dev mode the message is
// only logged, mirroring the simulated path used when no Twilio account is
// configured.
func (cw *ClientWrapper) SendMessage(to, msg string) error {
	if cw.devMode {
		logg.Infof("[SIMULATED SMS] To: %v\n%v", to, msg)
		return nil
	}

	params := &openapi.CreateMessageParams{}
	if cw.config.MessagingServiceSid != "" {
		params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	} else {
		params.SetFrom(cw.config.PhoneNumber)
	}
	params.SetTo(to)
	params.SetBody(msg)

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return err
	}

	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return fmt.Errorf("SendMessage: %v", *resp.ErrorMessage)
	}

	return nil
}

// MakeCall places a voice call that plays the TwiML document at twimlURL.
func (cw *ClientWrapper) MakeCall(to, twimlURL string) error {
	if cw.devMode {
		logg.Infof("[SIMULATED CALL] To: %v, twiml: %v", to, twimlURL)
		return nil
	}

	params := &openapi.CreateCallParams{}
	params.SetFrom(cw.config.PhoneNumber)
	params.SetTo(to)
	params.SetUrl(twimlURL)
	params.SetMethod("POST")

	_, err := cw.client.ApiV2010.CreateCall(params)
	if err != nil {
		return err
	}

	return nil
}

func (cw *ClientWrapper) ValidateRequest(path string, urlValues url.Values, expectedSignature string) bool {
	// Get 'urlValues' as map[string]string so it's compatible with twilio request validator
	params := make(map[string]string)
	for key, val := range urlValues {
		params[key] = strings.Join(val, ",")
	}

	return cw.requestValidator.Validate(fullRequestURL(cw.webhookBaseURL, path), params, expectedSignature)
}

func fullRequestURL(appUrl, path string) string {
	refinedUrl := strings.TrimSuffix(appUrl, "/")

	// Set default scheme to https
	if !strings.HasPrefix(refinedUrl, "http") {
		refinedUrl = "https://" + refinedUrl
	}

	return refinedUrl + path
}
