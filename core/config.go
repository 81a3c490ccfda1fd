package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Host            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	databaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	adminConfig struct {
		PasswordHash string
		SessionTTL   time.Duration
		CookieSecure bool
		SessionStore string // database | redis | memory
		RedisURL     string
	}

	emailConfig struct {
		AdminEmails     string // raw, comma separated
		AdminRecipients []mail.Address
		FromEmail       string
		Sender          mail.Address
		SendgridApiKey  string
	}

	storageConfig struct {
		Backend        string // local | s3
		LocalPath      string
		S3Bucket       string
		S3Region       string
		S3Endpoint     string
		S3AccessKeyID  string
		S3SecretKey    string
		S3UsePathStyle bool
	}

	exportConfig struct {
		FetchConcurrency int
		FetchTimeout     time.Duration
		MaxImageBytes    int64
	}

	Config struct {
		AppName      string
		SiteName     string // whose memory the tributes honour
		SiteURL      string
		Build        string
		Env          string
		Debug        bool
		TestMode     bool
		RollbarToken string

		Server   serverConfig
		Database databaseConfig
		Admin    adminConfig
		Email    emailConfig
		Storage  storageConfig
		Export   exportConfig
	}

	// NotificationConfig is resolved once at startup and handed to whatever sends the admin notifications.
	NotificationConfig struct {
		AdminRecipients []mail.Address
		Sender          mail.Address
		SiteName        string
		SiteURL         string
	}
)

func (c databaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) Notification() NotificationConfig {
	return NotificationConfig{
		AdminRecipients: c.Email.AdminRecipients,
		Sender:          c.Email.Sender,
		SiteName:        c.SiteName,
		SiteURL:         c.SiteURL,
	}
}

// NewConfig resolves the app configuration from the environment (and `config/.env.<env>` if it exists).
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", env == "DEV")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("appName", "Tributes")
	conf.SetDefault("siteName", "Peter Frederick Rhodes")
	conf.SetDefault("siteURL", "http://localhost:8000")
	conf.SetDefault("build", "dev")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("server.host", "0.0.0.0:8000")
	conf.SetDefault("server.debugHost", "0.0.0.0:4000")
	conf.SetDefault("server.readTimeout", 10*time.Second)
	conf.SetDefault("server.writeTimeout", 2*time.Minute) // bundled exports take a while
	conf.SetDefault("server.shutdownTimeout", 20*time.Second)
	conf.SetDefault("server.disableReqLogs", false)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "tributes")
	conf.SetDefault("database.user", "tributes")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	conf.SetDefault("admin.passwordHash", "")
	conf.SetDefault("admin.sessionTTL", 24*time.Hour)
	conf.SetDefault("admin.cookieSecure", env == "PROD")
	conf.SetDefault("admin.sessionStore", "database")
	conf.SetDefault("admin.redisURL", "")

	conf.SetDefault("email.adminEmails", "")
	conf.SetDefault("email.fromEmail", "noreply@localhost")
	conf.SetDefault("email.sendgridApiKey", "")

	conf.SetDefault("storage.backend", "local")
	conf.SetDefault("storage.localPath", filepath.Join(os.TempDir(), "tributes", "images"))
	conf.SetDefault("storage.s3Bucket", "")
	conf.SetDefault("storage.s3Region", "us-east-1")
	conf.SetDefault("storage.s3Endpoint", "")
	conf.SetDefault("storage.s3AccessKeyID", "")
	conf.SetDefault("storage.s3SecretKey", "")
	conf.SetDefault("storage.s3UsePathStyle", false)

	conf.SetDefault("export.fetchConcurrency", 8)
	conf.SetDefault("export.fetchTimeout", 30*time.Second)
	conf.SetDefault("export.maxImageBytes", int64(20<<20))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	conf.AutomaticEnv()

	c := &Config{
		AppName:      conf.GetString("appName"),
		SiteName:     conf.GetString("siteName"),
		SiteURL:      strings.TrimRight(conf.GetString("siteURL"), "/"),
		Build:        conf.GetString("build"),
		Env:          env,
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: serverConfig{
			Host:            conf.GetString("server.host"),
			DebugHost:       conf.GetString("server.debugHost"),
			ReadTimeout:     conf.GetDuration("server.readTimeout"),
			WriteTimeout:    conf.GetDuration("server.writeTimeout"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  conf.GetBool("server.disableReqLogs"),
		},
		Database: databaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Admin: adminConfig{
			PasswordHash: conf.GetString("admin.passwordHash"),
			SessionTTL:   conf.GetDuration("admin.sessionTTL"),
			CookieSecure: conf.GetBool("admin.cookieSecure"),
			SessionStore: strings.ToLower(conf.GetString("admin.sessionStore")),
			RedisURL:     conf.GetString("admin.redisURL"),
		},
		Email: emailConfig{
			AdminEmails:    conf.GetString("email.adminEmails"),
			FromEmail:      conf.GetString("email.fromEmail"),
			SendgridApiKey: conf.GetString("email.sendgridApiKey"),
		},
		Storage: storageConfig{
			Backend:        strings.ToLower(conf.GetString("storage.backend")),
			LocalPath:      conf.GetString("storage.localPath"),
			S3Bucket:       conf.GetString("storage.s3Bucket"),
			S3Region:       conf.GetString("storage.s3Region"),
			S3Endpoint:     conf.GetString("storage.s3Endpoint"),
			S3AccessKeyID:  conf.GetString("storage.s3AccessKeyID"),
			S3SecretKey:    conf.GetString("storage.s3SecretKey"),
			S3UsePathStyle: conf.GetBool("storage.s3UsePathStyle"),
		},
		Export: exportConfig{
			FetchConcurrency: conf.GetInt("export.fetchConcurrency"),
			FetchTimeout:     conf.GetDuration("export.fetchTimeout"),
			MaxImageBytes:    conf.GetInt64("export.maxImageBytes"),
		},
	}

	c.Email.AdminRecipients = ParseAddressList(c.Email.AdminEmails, func(raw string) {
		log.Printf("config: ignoring invalid admin email %q", raw)
	})
	if senders := ParseAddressList(c.Email.FromEmail, nil); len(senders) > 0 {
		c.Email.Sender = mail.Address{Name: c.AppName, Address: senders[0].Address}
	} else {
		log.Printf("config: invalid sender email %q", c.Email.FromEmail)
	}
	return c
}
