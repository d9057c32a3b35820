// internal/config/model.go
//
// Typed configuration model for Formrelay.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                             – dotenv values,
//   • `conf/global.yaml`                          – primary static file,
//   • `FORMRELAY_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client before validation (see secrets.go), so the rest
// of the service only ever sees plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// App section
//

// App names the deployment.  SiteName appears in notification footers and
// the health payload.
type App struct {
	Environment string `koanf:"environment" validate:"required"`
	SiteName    string `koanf:"site_name"   validate:"required"`
}

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string `koanf:"listen_addr"    validate:"required,hostname_port"`
	ForceHTTPS   bool   `koanf:"force_https"`
	FrontendURL  string `koanf:"frontend_url"   validate:"omitempty,url"`
	StaticDir    string `koanf:"static_dir"`
	MaxBodyBytes int64  `koanf:"max_body_bytes" validate:"gt=0"`
}

//
// Mail section
//

// Recipients maps each form to the inbox that receives its notifications.
type Recipients struct {
	Contact      string `koanf:"contact"      validate:"required,email"`
	Registration string `koanf:"registration" validate:"required,email"`
	Consultation string `koanf:"consultation" validate:"required,email"`
}

// DKIM is optional; leave Selector empty to disable signing.
type DKIM struct {
	Selector string `koanf:"selector"`
	Domain   string `koanf:"domain"   validate:"omitempty,fqdn"`
	KeyPath  string `koanf:"key_path"`
	KeyPEM   string `koanf:"key_pem"`
}

// Mail configures the SMTP relay.  An empty Host selects the log-only
// sender, which is convenient in development.
//
// Password is usually a `vault:` reference so the relay credential never
// lands in YAML or git history.
type Mail struct {
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"      validate:"min=1,max=65535"`
	Username   string        `koanf:"username"`
	Password   string        `koanf:"password"`
	From       string        `koanf:"from"      validate:"required,email"`
	FromName   string        `koanf:"from_name"`
	StartTLS   bool          `koanf:"starttls"`
	Timeout    time.Duration `koanf:"timeout"`
	HeloName   string        `koanf:"helo_name"`
	Recipients Recipients    `koanf:"recipients"`
	DKIM       DKIM          `koanf:"dkim"`
}

//
// Log section
//

// Log controls the file logger.  Dir defaults to `<root>/logs`.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Geo section
//

// Geo points at an optional GeoLite2-City database.  When empty, client
// country and city are simply omitted from notifications.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // FORMRELAY_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the aggregate returned by Load().  Treat it as read-only once
// loaded.
type Config struct {
	App   App   `koanf:"app"`
	HTTP  HTTP  `koanf:"http"`
	Mail  Mail  `koanf:"mail"`
	Log   Log   `koanf:"log"`
	Geo   Geo   `koanf:"geo"`
	Paths Paths `koanf:"-"` // not loaded from config files
}

// applyDefaults fills zero values that have a sensible default.  It runs
// after unmarshal and before validation.
func applyDefaults(c *Config) {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.SiteName == "" {
		c.App.SiteName = "DIGIX Lab"
	}
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":3000"
	}
	if c.HTTP.MaxBodyBytes == 0 {
		c.HTTP.MaxBodyBytes = 10 << 20 // 10 MB
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Mail.Timeout == 0 {
		c.Mail.Timeout = 30 * time.Second
	}
	if c.Mail.FromName == "" {
		c.Mail.FromName = c.App.SiteName
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
