// ABOUTME: Entry point for the calendar sync CLI
// ABOUTME: Routes auth, event, sync, and freebusy commands
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/dwelldigitally/learnlynk-calsync/auth"
	"github.com/dwelldigitally/learnlynk-calsync/cli"
	"github.com/dwelldigitally/learnlynk-calsync/db"
	"github.com/dwelldigitally/learnlynk-calsync/gcal"
	"github.com/dwelldigitally/learnlynk-calsync/graph"
	"github.com/dwelldigitally/learnlynk-calsync/remote"
	"github.com/dwelldigitally/learnlynk-calsync/sync"
)

const version = "0.1.0"

const remoteTimeout = 30 * time.Second

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/learnlynk-calsync/calsync.db)")
	initOnly := flag.Bool("init", false, "Initialize database and exit")

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("calsync version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	provider := envOr("CAL_PROVIDER", auth.ProviderGraph)
	actor := sync.Actor{
		UserID:   envOr("CAL_USER", "default"),
		TenantID: envOr("CAL_TENANT", "default"),
	}

	switch command {
	case "auth":
		if len(commandArgs) == 0 || commandArgs[0] != "init" {
			fmt.Println("Error: auth requires the 'init' subcommand")
			printUsage()
			os.Exit(1)
		}
		if err := cli.AuthInitCommand(provider, actor.UserID, commandArgs[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "events":
		database := openDatabase(*dbPath, *initOnly)
		defer database.Close()

		if len(commandArgs) == 0 {
			fmt.Println("Error: events requires a subcommand")
			printUsage()
			os.Exit(1)
		}

		subcommand := commandArgs[0]
		subArgs := commandArgs[1:]

		switch subcommand {
		case "create":
			engine := buildEngine(database, provider)
			if err := cli.CreateEventCommand(engine, actor, subArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "update":
			engine := buildEngine(database, provider)
			if err := cli.UpdateEventCommand(engine, actor, subArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "delete":
			engine := buildEngine(database, provider)
			if err := cli.DeleteEventCommand(engine, actor, subArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "list":
			if err := cli.ListEventsCommand(database, subArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown events command: %s\n\n", subcommand)
			printUsage()
			os.Exit(1)
		}

	case "sync":
		database := openDatabase(*dbPath, *initOnly)
		defer database.Close()

		if len(commandArgs) == 0 {
			fmt.Println("Error: sync requires a subcommand")
			printUsage()
			os.Exit(1)
		}

		subcommand := commandArgs[0]
		subArgs := commandArgs[1:]

		switch subcommand {
		case "run":
			engine := buildEngine(database, provider)
			if err := cli.SyncRunCommand(engine, actor, subArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "status":
			if err := cli.SyncStatusCommand(database, actor, subArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown sync command: %s\n\n", subcommand)
			printUsage()
			os.Exit(1)
		}

	case "freebusy":
		database := openDatabase(*dbPath, *initOnly)
		defer database.Close()

		engine := buildEngine(database, provider)
		if err := cli.FreeBusyCommand(engine, actor, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func openDatabase(dbPath string, initOnly bool) *sql.DB {
	finalDBPath := getDatabasePath(dbPath)
	database, err := db.OpenDatabase(finalDBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	if initOnly {
		log.Println("Database initialized successfully")
		database.Close()
		os.Exit(0)
	}

	return database
}

func buildEngine(database *sql.DB, provider string) *sync.Engine {
	config, err := auth.NewOAuthConfig(provider)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	var client remote.Client
	switch provider {
	case auth.ProviderGraph:
		client = graph.NewClient(remoteTimeout)
	case auth.ProviderGoogle:
		client = gcal.NewClient()
	default:
		log.Fatalf("Error: unknown provider %q", provider)
	}

	store := db.NewStore(database)
	activity := db.NewActivityLog(database)
	tokens := auth.NewProvider(config)

	return sync.NewEngine(tokens, client, store, activity)
}

func getDatabasePath(dbPath string) string {
	if dbPath != "" {
		return dbPath
	}
	return filepath.Join(xdg.DataHome, "learnlynk-calsync", "calsync.db")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func printUsage() {
	fmt.Printf(`calsync v%s - External calendar sync for admissions teams

USAGE:
  calsync [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/learnlynk-calsync/calsync.db)
  --init                 Initialize database and exit

ENVIRONMENT:
  CAL_PROVIDER           Calendar provider: graph (default) or google
  CAL_USER               User id for token storage (default: default)
  CAL_TENANT             Tenant id for sync state (default: default)
  MS_CLIENT_ID/SECRET    OAuth credentials for the graph provider
  GOOGLE_CLIENT_ID/SECRET  OAuth credentials for the google provider

COMMANDS:
  calsync auth init      Run the OAuth flow and store a token

  calsync events create  Create an event locally and on the remote calendar
    --title <title>        Event title (required)
    --start <rfc3339>      Start time (required)
    --end <rfc3339>        End time (required)
    --description <text>   Description
    --location <text>      Location
    --attendees <a,b>      Comma-separated attendee addresses
    --online               Request an online meeting with a join URL
    --lead <uuid>          Linked lead id

  calsync events update  Push new field values for a synced event
    --id <uuid>            Local event id (required)
    (plus the same field flags as create)

  calsync events delete  Cancel an event locally and remotely
    --id <uuid>            Local event id (required)

  calsync events list    List local event records
    --limit <n>            Max results (default: 20)

  calsync sync run       Pull remote changes into the local store
    --since <rfc3339>      Override the stored sync cursor
    --page-size <n>        Remote page size (default: 100)

  calsync sync status    Show the tenant's sync cursor and last outcome

  calsync freebusy       Query busy intervals for addresses
    --emails <a,b>         Comma-separated addresses (required)
    --from <rfc3339>       Window start (required)
    --to <rfc3339>         Window end (required)

EXAMPLES:
  # Authenticate against Microsoft 365
  calsync auth init

  # Schedule an intake interview with a Teams link
  calsync events create --title "Intake Interview" \
    --start 2026-09-01T14:00:00Z --end 2026-09-01T14:30:00Z \
    --attendees applicant@example.com --online

  # Pull remote changes
  calsync sync run

`, version)
}
