// Ewsync is a daemon that syncs Exchange (EWS) mailboxes with a local
// mail-client store bidirectionally: mail, contacts, and calendar.
//
// Usage:
//
//	ewsync login [--account <id>]      # run the OAuth2 device login flow
//	ewsync daemon [--config <path>]    # start recurring sync for all accounts
//	ewsync sync-once [--config ...]    # single full pass per account then exit
//	ewsync status                      # show config and recent sync runs
//	ewsync version                     # print version
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/njoerd114/ewsync/internal/auth"
	"github.com/njoerd114/ewsync/internal/config"
	"github.com/njoerd114/ewsync/internal/ews"
	"github.com/njoerd114/ewsync/internal/localstore"
	"github.com/njoerd114/ewsync/internal/model"
	"github.com/njoerd114/ewsync/internal/state"
	syncp "github.com/njoerd114/ewsync/internal/sync"
	"github.com/njoerd114/ewsync/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// nativeRedirectURL is the Azure AD redirect for apps without a listener;
// the authorization code is shown to the user for copy-paste.
const nativeRedirectURL = "https://login.microsoftonline.com/common/oauth2/nativeclient"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// run dispatches to the appropriate subcommand.
func run() error {
	if len(os.Args) < 2 {
		return printUsage()
	}

	switch cmd := os.Args[1]; cmd {
	case "login":
		return runLogin(os.Args[2:])
	case "daemon":
		return runSync(os.Args[2:], true)
	case "sync-once":
		return runSync(os.Args[2:], false)
	case "status":
		return runStatus(os.Args[2:])
	case "version":
		fmt.Println("ewsync", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q — run 'ewsync' for usage", cmd)
	}
}

// printUsage shows help and suggests next steps if no config exists.
func printUsage() error {
	cfgPath, _ := config.DefaultPath()
	_, cfgErr := os.Stat(cfgPath)

	fmt.Fprintln(os.Stderr, "Ewsync — sync Exchange mailboxes with the local mail store")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  ewsync login [--account <id>]       OAuth2 login for one account")
	fmt.Fprintln(os.Stderr, "  ewsync daemon [--config ...]        Run recurring sync for all accounts")
	fmt.Fprintln(os.Stderr, "  ewsync sync-once [--config ...]     Single full pass per account, then exit")
	fmt.Fprintln(os.Stderr, "  ewsync status                       Show config and recent sync runs")
	fmt.Fprintln(os.Stderr, "  ewsync version                      Print version")
	fmt.Fprintln(os.Stderr, "")

	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "No config file found at %s.\n", cfgPath)
	}

	os.Exit(1)
	return nil // unreachable
}

// --- Subcommands -------------------------------------------------------------

// runLogin performs the OAuth2 authorization-code flow with PKCE for one
// account and stores the resulting token on disk for the daemon to use.
func runLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	accountID := fs.String("account", "", "account id to log in (defaults to the only oauth2 account)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config from %q: %w", *cfgPath, err)
	}

	var acct *config.AccountConfig
	for i := range cfg.Accounts {
		a := &cfg.Accounts[i]
		if a.Auth != string(model.AuthOAuth2) {
			continue
		}
		if *accountID == "" || a.ID == *accountID {
			if acct != nil {
				return fmt.Errorf("multiple oauth2 accounts configured, pick one with --account")
			}
			acct = a
		}
	}
	if acct == nil {
		return fmt.Errorf("no matching oauth2 account in config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	oauthCfg := auth.NewOAuthConfig(acct.ClientID, acct.Tenant, nativeRedirectURL)
	verifier := auth.NewVerifier()
	stateNonce := uuid.NewString()

	fmt.Println("Open this URL in a browser and sign in:")
	fmt.Println("")
	fmt.Println("  " + auth.AuthCodeURL(oauthCfg, stateNonce, verifier))
	fmt.Println("")
	fmt.Print("Paste the 'code' parameter from the redirect URL: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return fmt.Errorf("no authorization code entered")
	}

	tok, err := auth.Exchange(ctx, oauthCfg, code, verifier)
	if err != nil {
		return err
	}
	if err := saveToken(acct.ID, tok); err != nil {
		return err
	}

	fmt.Printf("✓ Logged in as %s, token stored.\n", acct.Email)
	return nil
}

// runSync handles both "daemon" and "sync-once".
func runSync(args []string, daemon bool) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return startSync(*cfgPath, *verbose, daemon)
}

// runStatus prints the configuration state and the most recent sync runs.
func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Println("Ewsync Status")
	fmt.Println("─────────────")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Printf("  Config:    %s (invalid: %v)\n", *cfgPath, err)
		return nil
	}
	fmt.Printf("  Config:    %s ✓\n", *cfgPath)
	fmt.Printf("  Accounts:  %d\n", len(cfg.Accounts))

	dbPath := cfg.StateDB
	if dbPath == "" {
		if dbPath, err = state.DefaultDBPath(); err != nil {
			return fmt.Errorf("resolving state DB path: %w", err)
		}
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		fmt.Println("  State DB:  not found (no sync has run yet)")
		return nil
	}
	fmt.Printf("  State DB:  %s (%s)\n", dbPath, humanSize(info.Size()))

	store, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening state DB at %q: %w", dbPath, err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, a := range cfg.Accounts {
		fmt.Printf("\n  %s\n", a.ID)
		runs, err := store.RecentRuns(ctx, a.ID, 5)
		if err != nil {
			return fmt.Errorf("listing runs for %q: %w", a.ID, err)
		}
		if len(runs) == 0 {
			fmt.Println("    no sync runs recorded")
			continue
		}
		for _, r := range runs {
			outcome := "ok"
			if r.Error != "" {
				outcome = "error: " + r.Error
			}
			fmt.Printf("    %s  %-8s  +%d ~%d -%d  %s\n",
				r.FinishedAt.Format(time.RFC3339), r.Entity,
				r.Created, r.Updated, r.Deleted, outcome)
		}
	}

	return nil
}

// --- Sync core ---------------------------------------------------------------

// startSync is the shared implementation for daemon and sync-once modes.
func startSync(cfgPath string, verbose, daemon bool) error {
	// --- Logger --------------------------------------------------------------

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// --- Config --------------------------------------------------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config from %q: %w", cfgPath, err)
	}
	logger.Info("config loaded", "accounts", len(cfg.Accounts))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// --- Telemetry (optional) ------------------------------------------------

	if cfg.Telemetry != nil {
		telCfg := telemetry.Config{
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			Insecure:     cfg.Telemetry.Insecure,
			ServiceName:  cfg.Telemetry.ServiceName,
			Headers:      cfg.Telemetry.Headers,
		}
		shutdownTel, err := telemetry.Setup(context.Background(), telCfg)
		if err != nil {
			logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		} else {
			logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTel(flushCtx); err != nil {
					logger.Error("telemetry shutdown error", "error", err)
				}
			}()
		}
	}

	// --- State DB ------------------------------------------------------------

	statePath := cfg.StateDB
	if statePath == "" {
		if statePath, err = state.DefaultDBPath(); err != nil {
			return fmt.Errorf("resolving state DB path: %w", err)
		}
	}
	runStore, err := state.Open(statePath)
	if err != nil {
		return fmt.Errorf("opening state DB at %q: %w", statePath, err)
	}
	defer func() {
		if closeErr := runStore.Close(); closeErr != nil {
			logger.Error("closing state DB", "error", closeErr)
		}
	}()
	logger.Info("state DB opened", "path", statePath)

	// --- Local mail store ----------------------------------------------------

	localPath := cfg.LocalDB
	if localPath == "" {
		if localPath, err = localstore.DefaultDBPath(); err != nil {
			return fmt.Errorf("resolving local DB path: %w", err)
		}
	}
	local, err := localstore.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening local store at %q: %w", localPath, err)
	}
	defer func() {
		if closeErr := local.Close(); closeErr != nil {
			logger.Error("closing local store", "error", closeErr)
		}
	}()
	logger.Info("local store opened", "path", localPath)

	// --- Accounts → engines → coordinator ------------------------------------

	coordinator := syncp.NewCoordinator(runStore, logger)
	for i := range cfg.Accounts {
		a := &cfg.Accounts[i]
		provider, err := tokenProvider(ctx, a)
		if err != nil {
			return fmt.Errorf("account %q: %w", a.ID, err)
		}

		caller := ews.NewHTTPCaller(a.Endpoint, provider, nil)
		client := ews.NewClient(caller, logger.With("account", a.ID))
		acct := a.Account()

		coordinator.Register(acct,
			syncp.NewMailEngine(acct, client, local, logger),
			syncp.NewContactsEngine(acct, client, local, logger),
			syncp.NewCalendarEngine(acct, client, local, logger),
		)
		logger.Info("account registered",
			"account", acct.ID,
			"mail", acct.Settings.Mail,
			"contacts", acct.Settings.Contacts,
			"calendar", acct.Settings.Calendar,
			"interval", acct.Settings.Interval,
		)
	}

	// --- Dispatch mode -------------------------------------------------------

	if !daemon {
		logger.Info("running single sync pass")
		var firstErr error
		for _, a := range cfg.Accounts {
			res, err := coordinator.SyncAccount(ctx, a.ID, false)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			for entity, r := range res.Results {
				logger.Info("sync complete",
					"account", a.ID,
					"entity", entity,
					"created", r.Stats.Created,
					"updated", r.Stats.Updated,
					"errors", r.Stats.Errors,
					"duration", r.Duration,
				)
			}
		}
		return firstErr
	}

	// daemon mode
	for _, a := range cfg.Accounts {
		if err := coordinator.Start(ctx, a.ID); err != nil {
			return fmt.Errorf("starting sync timer for %q: %w", a.ID, err)
		}
	}
	logger.Info("daemon started", "accounts", len(cfg.Accounts))

	<-ctx.Done()
	logger.Info("shutting down")
	coordinator.StopAll()
	logger.Info("shutdown complete")
	return nil
}

// tokenProvider builds the auth provider for one account.
func tokenProvider(ctx context.Context, a *config.AccountConfig) (auth.TokenProvider, error) {
	switch model.AuthMethod(a.Auth) {
	case model.AuthBasic:
		return auth.NewBasicProvider(a.Username, a.Password), nil
	case model.AuthOAuth2:
		tok, err := loadToken(a.ID)
		if err != nil {
			return nil, fmt.Errorf("loading stored token (run 'ewsync login --account %s'): %w", a.ID, err)
		}
		oauthCfg := auth.NewOAuthConfig(a.ClientID, a.Tenant, nativeRedirectURL)
		return auth.NewOAuthProvider(ctx, oauthCfg, tok), nil
	default:
		return nil, fmt.Errorf("unsupported auth method %q", a.Auth)
	}
}

// --- Token storage -----------------------------------------------------------

// tokenPath returns the on-disk location of the stored OAuth2 token for an
// account: ~/.local/share/ewsync/tokens/<id>.json.
func tokenPath(accountID string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "ewsync", "tokens", accountID+".json"), nil
}

func saveToken(accountID string, tok *oauth2.Token) error {
	path, err := tokenPath(accountID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file %q: %w", path, err)
	}
	return nil
}

func loadToken(accountID string) (*oauth2.Token, error) {
	path, err := tokenPath(accountID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading token file %q: %w", path, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decoding token file %q: %w", path, err)
	}
	return &tok, nil
}

// humanSize returns a human-readable file size string.
func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
