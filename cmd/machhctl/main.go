// main.go - Admin control tool for the Machh relay
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gorm.io/gorm"

	"machhrelay/internal"
	"machhrelay/internal/config"
	"machhrelay/internal/ctl/logging"
	"machhrelay/internal/devices"
	"machhrelay/internal/normalize"
	"machhrelay/internal/relay"
	"machhrelay/internal/settings"
	"machhrelay/internal/sites"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

var logger *logrus.Logger

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&MigrateCommand{},
	&RegisterSiteCommand{},
	&ListSitesCommand{},
	&RemoveSiteCommand{},
	&SetKeyCommand{},
	&EnableCommand{},
	&DisableCommand{},
	&SendTestEventCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	logger = logging.NewLogger(config.GetConfig())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		logger.Infof("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	app, err := internal.NewApp()
	if err != nil {
		logger.Warnf("Failed to initialize app: %v", err)
		logger.Info("Proceeding with limited functionality...")
		// Let the command handle this situation
	}

	defer func() {
		if app != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				logger.Warnf("Cleanup error: %v", err)
			}
		}
	}()

	if err := cmd.Execute(ctx, app, args); err != nil {
		logger.Fatalf("Command failed: %v", err)
	}

	logger.Infof("Command %s completed successfully", cmd.Name())
}

func appDB(app *internal.Application) (*gorm.DB, error) {
	if app == nil {
		return nil, fmt.Errorf("app initialization failed, cannot connect to database")
	}
	return app.DBManager.GetConnection(), nil
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot run migrations")
	}

	logger.Info("Running database migrations...")
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	db := app.DBManager.GetConnection()
	if err := settings.SetupDefaultSettings(db); err != nil {
		return fmt.Errorf("failed to seed default settings: %w", err)
	}

	logger.Info("Migrations completed successfully")
	return nil
}

// RegisterSiteCommand registers a source site the relay will forward for
type RegisterSiteCommand struct{}

func (c *RegisterSiteCommand) Name() string        { return "register-site" }
func (c *RegisterSiteCommand) Description() string { return "Registers a site domain for forwarding" }

func (c *RegisterSiteCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <domain> [name]", c.Name())
	}

	db, err := appDB(app)
	if err != nil {
		return err
	}

	site := &sites.Site{Domain: args[0]}
	if len(args) >= 2 {
		site.Name = strings.Join(args[1:], " ")
	}

	if err := sites.CreateSite(db, site); err != nil {
		return fmt.Errorf("failed to register site: %w", err)
	}

	logger.Infof("Registered site %s (id=%d)", site.Domain, site.ID)
	return nil
}

// ListSitesCommand lists the registered sites
type ListSitesCommand struct{}

func (c *ListSitesCommand) Name() string        { return "list-sites" }
func (c *ListSitesCommand) Description() string { return "Lists registered sites" }

func (c *ListSitesCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	db, err := appDB(app)
	if err != nil {
		return err
	}

	all, err := sites.GetAllSites(db)
	if err != nil {
		return err
	}

	if len(all) == 0 {
		fmt.Println("No sites registered")
		return nil
	}

	for _, site := range all {
		fmt.Printf("%d\t%s\t%s\n", site.ID, site.Domain, site.Name)
	}
	return nil
}

// RemoveSiteCommand removes a registered site
type RemoveSiteCommand struct{}

func (c *RemoveSiteCommand) Name() string        { return "remove-site" }
func (c *RemoveSiteCommand) Description() string { return "Removes a registered site by domain" }

func (c *RemoveSiteCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <domain>", c.Name())
	}

	db, err := appDB(app)
	if err != nil {
		return err
	}

	site, err := sites.GetSiteByDomain(db, sites.BaseDomainForHost(args[0]))
	if err != nil {
		return fmt.Errorf("site lookup failed: %w", err)
	}

	if err := sites.DeleteSite(db, site.ID); err != nil {
		return fmt.Errorf("failed to remove site: %w", err)
	}

	logger.Infof("Removed site %s", site.Domain)
	return nil
}

// SetKeyCommand stores the ingestion API client key
type SetKeyCommand struct{}

func (c *SetKeyCommand) Name() string        { return "set-key" }
func (c *SetKeyCommand) Description() string { return "Sets the ingestion API client key" }

func (c *SetKeyCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	db, err := appDB(app)
	if err != nil {
		return err
	}

	var key string
	if len(args) >= 1 {
		key = args[0]
	} else {
		fmt.Print("Enter client key: ")
		keyBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		key = strings.TrimSpace(string(keyBytes))
	}

	if key == "" {
		return fmt.Errorf("client key cannot be empty")
	}

	if err := settings.SetClientKey(db, key); err != nil {
		return fmt.Errorf("failed to store client key: %w", err)
	}

	fmt.Println("Client key updated")
	return nil
}

// EnableCommand switches event forwarding on
type EnableCommand struct{}

func (c *EnableCommand) Name() string        { return "enable" }
func (c *EnableCommand) Description() string { return "Enables event forwarding" }

func (c *EnableCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	db, err := appDB(app)
	if err != nil {
		return err
	}
	if err := settings.SetTrackingEnabled(db, true); err != nil {
		return err
	}
	fmt.Println("Tracking enabled")
	return nil
}

// DisableCommand switches event forwarding off
type DisableCommand struct{}

func (c *DisableCommand) Name() string        { return "disable" }
func (c *DisableCommand) Description() string { return "Disables event forwarding" }

func (c *DisableCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	db, err := appDB(app)
	if err != nil {
		return err
	}
	if err := settings.SetTrackingEnabled(db, false); err != nil {
		return err
	}
	fmt.Println("Tracking disabled")
	return nil
}

// SendTestEventCommand forwards a synthetic pageview to verify connectivity
type SendTestEventCommand struct{}

func (c *SendTestEventCommand) Name() string { return "send-test-event" }
func (c *SendTestEventCommand) Description() string {
	return "Sends a synthetic pageview to the ingestion API"
}

func (c *SendTestEventCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	db, err := appDB(app)
	if err != nil {
		return err
	}

	cfg := config.GetConfig()
	client := relay.NewClient(
		cfg.IngestBaseURL,
		cfg.RelayTimeout(),
		func() string { return settings.GetClientKey(db) },
		slog.Default(),
	)

	testURL := "https://example.com/machhctl-test"
	if len(args) >= 1 {
		testURL = args[0]
	}

	payload := normalize.Pageview(normalize.Envelope{
		DeviceID:   devices.NewID(),
		URL:        testURL,
		SiteDomain: "example.com",
		UserAgent:  "machhctl/test",
		TS:         normalize.NowTS(),
	})

	result, err := client.SendPageview(payload)
	if err != nil {
		return fmt.Errorf("test event failed: %w", err)
	}

	fmt.Printf("Ingestion API responded with status %d\n", result.StatusCode)
	if result.Body != "" {
		fmt.Println(result.Body)
	}
	return nil
}

// StatusCommand implements a command to check the system status
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the current system status" }

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	db, err := appDB(app)
	if err != nil {
		return fmt.Errorf("cannot check status: %w", err)
	}

	cfg := config.GetConfig()

	var siteCount int64
	if err := db.Model(&sites.Site{}).Count(&siteCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	keyConfigured := settings.GetClientKey(db) != ""

	logger.Info("System Status:")
	logger.Info("- Database: Connected")
	logger.Infof("- Sites: %d", siteCount)
	logger.Infof("- Tracking enabled: %v", settings.IsTrackingEnabled(db))
	logger.Infof("- Client key configured: %v", keyConfigured)
	logger.Infof("- Ingest base URL: %s", cfg.IngestBaseURL)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}

	logger.Infof("- Max Open Connections: %d", sqlDB.Stats().MaxOpenConnections)
	logger.Infof("- Open Connections: %d", sqlDB.Stats().OpenConnections)

	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	printUsage()
	return nil
}

// Helper functions

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: machhctl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	printUsage()
	os.Exit(1)
}
