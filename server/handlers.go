package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HARINII2415/femina360/server/auth"
	"github.com/HARINII2415/femina360/server/auth/key"
	"github.com/HARINII2415/femina360/server/laws"
	"github.com/HARINII2415/femina360/server/models"
	"github.com/HARINII2415/femina360/server/notifier"
	"github.com/HARINII2415/femina360/server/sensor"
	"github.com/HARINII2415/femina360/server/trigger"
	"github.com/HARINII2415/femina360/shared"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type ResponsePayload struct {
	Errors  []string    `json:"errors,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type DecodedJWT struct {
	Claims   *auth.Femina360TokenClaims
	ErrorMsg string
}

type RequestContextKey string

const AUTH_TOKEN_TTL = 24 * time.Hour

const emergencyCallTwiml = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Say voice="alice" language="en-US">
        This is an emergency alert from Femina 360.
        A user has triggered an emergency alert and needs immediate assistance.
        Please check your text messages for location details and evidence.
        If this is a real emergency, please contact local emergency services immediately.
        This message will repeat.
    </Say>
    <Pause length="2"/>
    <Say voice="alice" language="en-US">
        This is an emergency alert from Femina 360.
        A user has triggered an emergency alert and needs immediate assistance.
        Please check your text messages for location details and evidence.
        If this is a real emergency, please contact local emergency services immediately.
    </Say>
    <Hangup/>
</Response>`

// ---------------------------------------------------------------------------------//
// Account handlers
// --------------------------------------------------------------------------------//

func createUserHandler(rw http.ResponseWriter, r *http.Request) {
	user := models.User{}

	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	errs := validate.Struct(user)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	err = models.CreateUser(&user)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusCreated)
}

func findUserHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := models.FindUserBy("id", mux.Vars(r)["uid"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if err = user.LoadContacts(); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: user}, http.StatusOK)
}

func updateUserHandler(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]interface{})

	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{
		"first_name": true, "last_name": true, "phone_number": true, "password": true,
	})
	if len(data) == 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	if data["password"] != nil && strings.TrimSpace(fmt.Sprintf("%v", data["password"])) == "" {
		writeResponse(rw, ResponsePayload{Errors: []string{"password cannot be empty"}}, http.StatusBadRequest)
		return
	}

	user, err := requestUser(r)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}

	if err = user.Update(data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func deleteUserHandler(rw http.ResponseWriter, r *http.Request) {
	err := models.DeleteUser(mux.Vars(r)["uid"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func logInHandler(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]string)
	json.NewDecoder(r.Body).Decode(&data)

	passwordHash, err := models.FindUserPassword(data["email"])
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if !auth.CheckPasswordHash(data["password"], passwordHash) {
		writeResponse(rw, ResponsePayload{Errors: []string{"email/password is invalid"}}, http.StatusUnauthorized)
		return
	}

	user, err := models.FindUserBy("email", data["email"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	isAdmin, err := user.IsAdmin()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	token, err := auth.EncodeJWT(auth.Femina360TokenClaims{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsAdmin:   isAdmin,
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(AUTH_TOKEN_TTL).Unix(),
			Issuer:    "femina360",
		},
	}, authKeyPair)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]string{"token": token}}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Contact handlers
// --------------------------------------------------------------------------------//

func createContactHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}

	contact := models.Contact{}
	if err = json.NewDecoder(r.Body).Decode(&contact); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(contact); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	if err = models.CreateContact(user.ID, &contact); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contact}, http.StatusCreated)
}

func fetchContactsHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}

	contacts, err := models.FetchContacts(user.ID)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contacts}, http.StatusOK)
}

func updateContactHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}

	data := make(map[string]interface{})
	if err = json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{
		"name": true, "phone_number": true, "relationship": true,
	})
	if len(data) == 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	if err = models.UpdateContact(user.ID, mux.Vars(r)["id"], data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func deleteContactHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}

	if err = models.DeleteContact(user.ID, mux.Vars(r)["id"]); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func setPrimaryContactHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}

	if err = models.SetPrimaryContact(user.ID, mux.Vars(r)["id"]); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Guardian handlers
// --------------------------------------------------------------------------------//

func guardianStatusHandler(rw http.ResponseWriter, r *http.Request) {
	g, ok := requestGuardian(rw, r)
	if !ok {
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]interface{}{
		"emergency": g.manager.Snapshot(),
		"triggers":  g.evaluator.Counts(),
		"sensors":   g.hub.Snapshot(),
	}}, http.StatusOK)
}

func motionSampleHandler(rw http.ResponseWriter, r *http.Request) {
	g, ok := requestGuardian(rw, r)
	if !ok {
		return
	}

	sample := sensor.MotionSample{}
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	g.hub.Deliver(sample)
	writeResponse(rw, ResponsePayload{Success: true, Data: g.evaluator.Counts()}, http.StatusOK)
}

func speechSampleHandler(rw http.ResponseWriter, r *http.Request) {
	g, ok := requestGuardian(rw, r)
	if !ok {
		return
	}

	body := struct {
		Transcript string `json:"transcript"`
		SessionEnd bool   `json:"session_end"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	// A recognition session restart clears the keyword tally, matching
	// how the on-device recognizer batches transcripts.
	if body.SessionEnd {
		g.evaluator.ResetVoiceSession()
	}
	if body.Transcript != "" {
		g.hub.Deliver(sensor.SpeechFragment{Transcript: body.Transcript})
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: g.evaluator.Counts()}, http.StatusOK)
}

func locationSampleHandler(rw http.ResponseWriter, r *http.Request) {
	g, ok := requestGuardian(rw, r)
	if !ok {
		return
	}

	sample := sensor.LocationSample{}
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	g.hub.Deliver(sample)
	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func updateSensorHandler(rw http.ResponseWriter, r *http.Request) {
	g, ok := requestGuardian(rw, r)
	if !ok {
		return
	}

	kind := sensor.Kind(mux.Vars(r)["kind"])
	if kind != sensor.MOTION_SENSOR && kind != sensor.SPEECH_SENSOR && kind != sensor.LOCATION_SENSOR {
		writeResponse(rw, ResponsePayload{Errors: []string{"unknown sensor"}}, http.StatusNotFound)
		return
	}

	body := struct {
		Enabled   *bool `json:"enabled"`
		Available *bool `json:"available"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if body.Enabled != nil {
		g.hub.SetEnabled(kind, *body.Enabled)
	}
	if body.Available != nil && !*body.Available {
		g.hub.ReportUnavailable(kind)
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: g.hub.StatusOf(kind)}, http.StatusOK)
}

func manualTriggerHandler(rw http.ResponseWriter, r *http.Request) {
	g, ok := requestGuardian(rw, r)
	if !ok {
		return
	}

	g.manager.Trigger(trigger.MANUAL_TRIGGER)
	writeResponse(rw, ResponsePayload{Success: true, Data: g.manager.Snapshot()}, http.StatusOK)
}

func cancelEmergencyHandler(rw http.ResponseWriter, r *http.Request) {
	g, ok := requestGuardian(rw, r)
	if !ok {
		return
	}

	if err := g.manager.Cancel(); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusUnprocessableEntity)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: g.manager.Snapshot()}, http.StatusOK)
}

func deactivateGuardianHandler(rw http.ResponseWriter, r *http.Request) {
	g, ok := requestGuardian(rw, r)
	if !ok {
		return
	}

	g.manager.Deactivate()
	writeResponse(rw, ResponsePayload{Success: true, Data: g.manager.Snapshot()}, http.StatusOK)
}

func evidenceChunkHandler(rw http.ResponseWriter, r *http.Request) {
	g, ok := requestGuardian(rw, r)
	if !ok {
		return
	}

	chunk, err := io.ReadAll(r.Body)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if err = g.manager.PushEvidence(chunk); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusUnprocessableEntity)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func evidenceDenyHandler(rw http.ResponseWriter, r *http.Request) {
	g, ok := requestGuardian(rw, r)
	if !ok {
		return
	}

	if err := g.manager.DenyEvidence(); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusUnprocessableEntity)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func evidenceCloseHandler(rw http.ResponseWriter, r *http.Request) {
	g, ok := requestGuardian(rw, r)
	if !ok {
		return
	}

	if err := g.manager.CloseEvidence(); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusUnprocessableEntity)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func fetchEmergencySessionsHandler(rw http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	sessions, paging, err := models.FetchEmergencySessions(user.ID, page)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]interface{}{
		"sessions": sessions,
		"paging":   paging,
	}}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Alert backend & OTP handlers
// --------------------------------------------------------------------------------//

// emergencyAlertHandler is the notification backend: SMS fan-out to every
// contact plus a voice call to the primary. The response is a flat object
// rather than the usual envelope, for clients that speak the alert wire
// format directly.
func emergencyAlertHandler(rw http.ResponseWriter, r *http.Request) {
	payload := shared.AlertPayload{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	receipt, err := alertService.Notify(r.Context(), payload)
	if errors.Is(err, notifier.ErrNoContacts) {
		// Non-fatal: the alert settles with zero counts and the client
		// surfaces the "no contacts configured" warning.
		logg.Warnf("emergency alert for %v has no contacts configured", payload.UserID)
	} else if err != nil {
		logg.Errorf("emergency alert for %v failed: %v", payload.UserID, err)
		rw.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(rw).Encode(map[string]interface{}{
			"success":   false,
			"error":     err.Error(),
			"timestamp": time.Now(),
		})
		return
	}

	json.NewEncoder(rw).Encode(map[string]interface{}{
		"success":        true,
		"message":        "Emergency alerts sent",
		"smsCount":       receipt.SmsCount,
		"callsInitiated": receipt.CallsInitiated,
		"timestamp":      time.Now(),
	})
}

func sendOtpHandler(rw http.ResponseWriter, r *http.Request) {
	body := struct {
		PhoneNumber string `json:"phone_number" validate:"required,e164"`
		Type        string `json:"type"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(body); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	if body.Type == "" {
		body.Type = models.VERIFICATION_OTP
	}

	result, err := otpService.Issue(body.PhoneNumber, body.Type)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{"expires_at": result.ExpiresAt}
	if result.Code != "" {
		data["code"] = result.Code
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: data}, http.StatusOK)
}

func verifyOtpHandler(rw http.ResponseWriter, r *http.Request) {
	body := struct {
		PhoneNumber string `json:"phone_number" validate:"required,e164"`
		Code        string `json:"code" validate:"required"`
		Type        string `json:"type"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(body); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	if body.Type == "" {
		body.Type = models.VERIFICATION_OTP
	}

	err := otpService.Verify(body.PhoneNumber, body.Code, body.Type)
	if errors.Is(err, models.ErrInvalidOtp) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Laws, discovery & health handlers
// --------------------------------------------------------------------------------//

func lawsQueryHandler(rw http.ResponseWriter, r *http.Request) {
	body := struct {
		Message string `json:"message" validate:"required"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(body); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: laws.Respond(body.Message)}, http.StatusOK)
}

func lawsTopicsHandler(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ResponsePayload{Success: true, Data: laws.Topics()}, http.StatusOK)
}

func emergencyCallTwimlHandler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/xml")
	rw.WriteHeader(http.StatusOK)
	fmt.Fprint(rw, emergencyCallTwiml)
}

func jwksHandler(rw http.ResponseWriter, r *http.Request) {
	jwk, err := authKeyPair.JWK()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(jwk))
}

func healthCheckHandler(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]string{"status": "ok"}}, http.StatusOK)
}

// requestGuardian resolves the user from the route and returns their
// guardian, writing the error response itself when the user is missing.
func requestGuardian(rw http.ResponseWriter, r *http.Request) (*guardian, bool) {
	user, err := requestUser(r)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return nil, false
	}

	return guardians.For(user), true
}
