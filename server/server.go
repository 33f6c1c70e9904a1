package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/HARINII2415/femina360/server/auth/key"
	"github.com/HARINII2415/femina360/server/gstorage"
	"github.com/HARINII2415/femina360/server/logger"
	"github.com/HARINII2415/femina360/server/models"
	"github.com/HARINII2415/femina360/server/notifier"
	"github.com/HARINII2415/femina360/server/otp"
	"github.com/HARINII2415/femina360/server/twilio"
	"github.com/HARINII2415/femina360/server/work"
	"github.com/HARINII2415/femina360/shared"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

var (
	logg     = logger.NewLogger()
	validate = validator.New()

	appConfig    *shared.ServerConfig
	authKeyPair  *key.KeyPair
	workerPool   *work.WorkerPoolAdapter
	twilioClient *twilio.ClientWrapper
	gStorage     *gstorage.GStorage
	alertService *notifier.Service
	otpService   *otp.Service
	guardians    *guardianRegistry
	devMode      bool
)

// Start brings up the femina360 server: encrypted sqlite store, background
// worker pool, per-user guardian pipelines and the HTTP API. It blocks
// until SIGINT/SIGTERM, then drains workers and shuts down gracefully.
func Start(config *viper.Viper, isDevMode bool) {
	devMode = isDevMode

	appConfig = &shared.ServerConfig{}
	fatalOnError(config.Unmarshal(appConfig))
	fatalOnError(RegisterValidators(validate))
	fatalOnError(validate.Struct(appConfig))

	configDir := configDirectory(devMode)
	fatalOnError(models.AutoMigrate(appConfig.Sqlite.PassPhrase, configDir))

	var err error
	authKeyPair, err = key.NewKeyPairFromRSAPrivateKeyPem(appConfig.Femina360.PrivateKeyPem)
	fatalOnError(err)

	port := appConfig.Femina360.Listener.Port
	appUrl := fmt.Sprintf("localhost:%v", port)

	twilioClient = twilio.NewClient(appConfig.Twilio, appUrl, devMode)
	alertService = notifier.NewService(twilioClient, fmt.Sprintf("https://%v/emergency-call-twiml", appUrl))
	otpService = otp.NewService(twilioClient, devMode)

	if appConfig.Google.ApplicationCredentials != "" {
		gStorage, err = gstorage.NewGStorage(appConfig.Google.ApplicationCredentials)
		if err != nil {
			logg.Warnf("google storage unavailable, evidence uploads will fall back to direct notification: %v", err)
			gStorage = nil
		}
	}

	guardians = newGuardianRegistry()

	workerPool = work.NewWorkerAdapter(appConfig.Femina360.Cron.TimeZone, false)
	registerJobHandlers(workerPool)
	enqueueJobs(workerPool)
	fatalOnError(workerPool.Start())

	router := mux.NewRouter()
	registerRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%v", port),
		Handler: router,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go serve(server)
	<-done

	cleanup(workerPool, server, sqliteBackupEnabled())
}

func registerRoutes(router *mux.Router) {
	router.Use(loggingMiddleware)

	// Twilio fetches this during the emergency voice call; it speaks XML,
	// not the JSON envelope, so it sits outside initialContextMiddleware.
	router.HandleFunc("/emergency-call-twiml", emergencyCallTwimlHandler).Methods("GET", "POST")

	api := router.NewRoute().Subrouter()
	api.Use(initialContextMiddleware)

	api.HandleFunc("/health", healthCheckHandler).Methods("GET")
	api.HandleFunc("/.well-known/jwks.json", jwksHandler).Methods("GET")
	api.HandleFunc("/login", logInHandler).Methods("POST")
	api.HandleFunc("/send-otp", sendOtpHandler).Methods("POST")
	api.HandleFunc("/verify-otp", verifyOtpHandler).Methods("POST")

	// The alert backend is reachable without credentials: a dispatcher on
	// another instance posts here and the alert must never die on a 401.
	api.HandleFunc("/emergency-alert", emergencyAlertHandler).Methods("POST")

	adminRoutes := api.NewRoute().Subrouter()
	adminRoutes.Use(adminRouteMiddleware)
	adminRoutes.HandleFunc("/users", createUserHandler).Methods("POST")

	protectedRoutes := api.NewRoute().Subrouter()
	protectedRoutes.Use(protectedRouteMiddleware)

	protectedRoutes.HandleFunc("/users/{uid}", findUserHandler).Methods("GET")
	protectedRoutes.HandleFunc("/users/{uid}", updateUserHandler).Methods("PATCH", "PUT")
	protectedRoutes.HandleFunc("/users/{uid}", deleteUserHandler).Methods("DELETE")

	protectedRoutes.HandleFunc("/users/{uid}/contacts", createContactHandler).Methods("POST")
	protectedRoutes.HandleFunc("/users/{uid}/contacts", fetchContactsHandler).Methods("GET")
	protectedRoutes.HandleFunc("/users/{uid}/contacts/{id}", updateContactHandler).Methods("PATCH", "PUT")
	protectedRoutes.HandleFunc("/users/{uid}/contacts/{id}", deleteContactHandler).Methods("DELETE")
	protectedRoutes.HandleFunc("/users/{uid}/contacts/{id}/primary", setPrimaryContactHandler).Methods("PUT")

	protectedRoutes.HandleFunc("/users/{uid}/guardian", guardianStatusHandler).Methods("GET")
	protectedRoutes.HandleFunc("/users/{uid}/guardian/samples/motion", motionSampleHandler).Methods("POST")
	protectedRoutes.HandleFunc("/users/{uid}/guardian/samples/speech", speechSampleHandler).Methods("POST")
	protectedRoutes.HandleFunc("/users/{uid}/guardian/samples/location", locationSampleHandler).Methods("POST")
	protectedRoutes.HandleFunc("/users/{uid}/guardian/sensors/{kind}", updateSensorHandler).Methods("PUT")
	protectedRoutes.HandleFunc("/users/{uid}/guardian/trigger", manualTriggerHandler).Methods("POST")
	protectedRoutes.HandleFunc("/users/{uid}/guardian/cancel", cancelEmergencyHandler).Methods("POST")
	protectedRoutes.HandleFunc("/users/{uid}/guardian/deactivate", deactivateGuardianHandler).Methods("POST")
	protectedRoutes.HandleFunc("/users/{uid}/guardian/evidence", evidenceChunkHandler).Methods("POST")
	protectedRoutes.HandleFunc("/users/{uid}/guardian/evidence/deny", evidenceDenyHandler).Methods("POST")
	protectedRoutes.HandleFunc("/users/{uid}/guardian/evidence/close", evidenceCloseHandler).Methods("POST")
	protectedRoutes.HandleFunc("/users/{uid}/emergency-sessions", fetchEmergencySessionsHandler).Methods("GET")

	protectedRoutes.HandleFunc("/laws/topics", lawsTopicsHandler).Methods("GET")
	protectedRoutes.HandleFunc("/laws/query", lawsQueryHandler).Methods("POST")
}
