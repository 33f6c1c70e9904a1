package shared

import "time"

type ServerConfig struct {
	Sqlite    SqliteConfig    `mapstructure:"sqlite" validate:"required"`
	Femina360 Femina360Config `mapstructure:"femina360" validate:"required"`
	Google    GoogleConfig    `mapstructure:"google"`
	Twilio    TwilioConfig    `mapstructure:"twilio"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase" validate:"required"`
}

type Femina360Config struct {
	PrivateKeyPem string         `mapstructure:"privateKeyPem" validate:"required"`
	Cron          CronConfig     `mapstructure:"cron" validate:"required"`
	Listener      ListenerConfig `mapstructure:"listener" validate:"required"`
	Guardian      GuardianConfig `mapstructure:"guardian"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
	PhoneNumber         string `mapstructure:"phoneNumber"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type StorageConfig struct {
	Bucket                    string      `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string      `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	EvidenceBucket            string      `mapstructure:"evidenceBucket"`
	SqliteBackupSchedule      string      `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync interface{} `mapstructure:"enableSqliteBackupAndSync" validate:"omitempty,bool"`
}

// GuardianConfig tunes the emergency trigger & evidence pipeline.
// Zero values fall back to the defaults the mobile clients expect.
type GuardianConfig struct {
	CountdownSeconds int    `mapstructure:"countdownSeconds"`
	CaptureSeconds   int    `mapstructure:"captureSeconds"`
	EvidenceSpoolDir string `mapstructure:"evidenceSpoolDir"`
	AlertEndpoint    string `mapstructure:"alertEndpoint"`
}

// Location is a GPS fix in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AlertPayload is the wire object sent to the emergency-alert backend.
// A nil Location means no GPS fix was available; an empty EvidenceURL means
// no evidence artifact could be uploaded.
type AlertPayload struct {
	UserID      string         `json:"userId"`
	UserName    string         `json:"userName"`
	Location    *Location      `json:"location"`
	EvidenceURL string         `json:"evidenceUrl"`
	Contacts    []AlertContact `json:"emergencyContacts"`
	Timestamp   time.Time      `json:"timestamp"`
}

type AlertContact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
	IsPrimary    bool   `json:"isPrimary"`
}

// AlertReceipt reports the settled outcome of one notification fan-out.
type AlertReceipt struct {
	SmsCount       int `json:"smsCount"`
	CallsInitiated int `json:"callsInitiated"`
}
