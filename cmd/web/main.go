// cmd/web/main.go
//
// formrelay – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Bootstrap console logger so config errors are visible.
//
//  2. Load configuration (.env → conf/global.yaml → FORMRELAY_* env).
//     A Vault client is built only if some value is a `vault:` reference.
//
//  3. Start daily rotating logger (tees to console when running in a TTY).
//
//  4. Optional GeoLite2 database for notification footers.
//
//  5. Mail sender: SMTP relay with optional DKIM, or the log-only sender
//     when mail.host is empty.
//
//  6. Build the router (forms component under /api, /metrics, static
//     frontend) and serve until SIGINT or SIGTERM, then drain in-flight
//     requests.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/formrelay/components/forms"
	"github.com/yanizio/formrelay/internal/component"
	"github.com/yanizio/formrelay/internal/config"
	"github.com/yanizio/formrelay/internal/form"
	"github.com/yanizio/formrelay/internal/logger"
	"github.com/yanizio/formrelay/internal/message"
	"github.com/yanizio/formrelay/internal/requestinfo"
	"github.com/yanizio/formrelay/internal/server"
	"github.com/yanizio/formrelay/internal/vault"
)

// shutdownGrace bounds the drain of in-flight requests after a signal.
const shutdownGrace = 20 * time.Second

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	if err := run(); err != nil {
		zap.S().Errorw("formrelay stopped", "err", err)
		_ = zap.S().Sync()
		log.Fatalf("formrelay: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Bootstrap logger ────────────────────────────────────────────
	//
	boot, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("bootstrap logger: %w", err)
	}
	zap.ReplaceGlobals(boot)

	//
	// ── 2.  Configuration (+ Vault on demand) ──────────────────────────
	//
	cfg, err := config.Load(ctx, newVault)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	//
	// ── 3.  File logger ─────────────────────────────────────────────────
	//
	lg, err := logger.New(cfg.Log.Dir, cfg.Log.Level, runningInTTY())
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	//
	// ── 4.  GeoLite2 ────────────────────────────────────────────────────
	//
	closeGeo, err := requestinfo.InitGeo(cfg.Geo.DBPath)
	if err != nil {
		// Location is cosmetic; run without it.
		lg.Warnw("geo lookup disabled", "path", cfg.Geo.DBPath, "err", err)
		closeGeo = func() error { return nil }
	}
	defer func() { _ = closeGeo() }()

	//
	// ── 5.  Mail sender and notifier ────────────────────────────────────
	//
	sender, err := newSender(cfg.Mail, lg)
	if err != nil {
		return err
	}
	from := (&mail.Address{Name: cfg.Mail.FromName, Address: cfg.Mail.From}).String()
	notifier := form.NewNotifier(sender, form.Recipients{
		Contact:      cfg.Mail.Recipients.Contact,
		Registration: cfg.Mail.Recipients.Registration,
		Consultation: cfg.Mail.Recipients.Consultation,
	}, from)

	//
	// ── 6.  Router and server ───────────────────────────────────────────
	//
	api := forms.New(form.NewValidator(time.Now), notifier, forms.Options{
		Environment: cfg.App.Environment,
		SiteName:    cfg.App.SiteName,
	})
	router := server.NewRouter(server.RouterConfig{
		Log:          lg,
		ForceHTTPS:   cfg.HTTP.ForceHTTPS,
		FrontendURL:  cfg.HTTP.FrontendURL,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		StaticDir:    cfg.HTTP.StaticDir,
		Metrics:      promhttp.Handler(),
		Components:   []component.Component{api},
	})
	srv := server.New(cfg.HTTP.ListenAddr, router, cfg.Mail.Timeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Infow("listening",
			"addr", cfg.HTTP.ListenAddr,
			"environment", cfg.App.Environment,
			"frontend_url", cfg.HTTP.FrontendURL,
			"mail", mailMode(cfg.Mail),
			"health", server.APIPrefix+"/health",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Infow("shutting down", "grace", shutdownGrace)
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// newVault is the config.ResolverFactory.  It only runs when the config
// holds a `vault:` reference.
func newVault(ctx context.Context) (config.SecretResolver, error) {
	if !vault.Enabled() {
		return nil, errors.New("vault: references present but VAULT_ADDR is not set")
	}
	vc, err := vault.New(ctx, zap.S())
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return vc, nil
}

// newSender picks the SMTP relay, or the log-only sender when no host is
// configured.
func newSender(m config.Mail, lg *zap.SugaredLogger) (message.Sender, error) {
	if m.Host == "" {
		lg.Warnw("mail.host is empty; notifications are logged, not sent")
		return message.LogSender{Log: lg}, nil
	}
	signer, err := message.NewDKIMSigner(message.DKIMConfig{
		Selector: m.DKIM.Selector,
		Domain:   m.DKIM.Domain,
		KeyPath:  m.DKIM.KeyPath,
		KeyPEM:   m.DKIM.KeyPEM,
	})
	if err != nil {
		return nil, err
	}
	return message.NewSMTPSender(message.SMTPConfig{
		Host:     m.Host,
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		HeloName: m.HeloName,
		StartTLS: m.StartTLS,
		Timeout:  m.Timeout,
	}, signer), nil
}

func mailMode(m config.Mail) string {
	switch {
	case m.Host == "":
		return "log"
	case m.DKIM.Selector != "":
		return fmt.Sprintf("smtp %s:%d (dkim %s)", m.Host, m.Port, m.DKIM.Selector)
	default:
		return fmt.Sprintf("smtp %s:%d", m.Host, m.Port)
	}
}
