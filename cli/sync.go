// ABOUTME: Sync CLI commands
// ABOUTME: Runs bidirectional sync and reports tenant sync status
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"time"

	"github.com/dwelldigitally/learnlynk-calsync/db"
	"github.com/dwelldigitally/learnlynk-calsync/sync"
)

// SyncRunCommand pulls remote changes into the local store.
func SyncRunCommand(engine *sync.Engine, actor sync.Actor, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	sinceFlag := fs.String("since", "", "Only consider remote changes after this RFC3339 timestamp")
	pageSize := fs.Int("page-size", 0, "Remote page size (default 100)")
	_ = fs.Parse(args)

	var since *time.Time
	if *sinceFlag != "" {
		t, err := time.Parse(time.RFC3339, *sinceFlag)
		if err != nil {
			return fmt.Errorf("invalid --since (want RFC3339): %w", err)
		}
		since = &t
	}

	fmt.Println("Syncing remote calendar...")

	summary, err := engine.SyncEvents(context.Background(), actor, since, *pageSize)
	if err != nil {
		return err
	}

	fmt.Printf("\n✓ Examined %d remote event%s\n", summary.Examined, pluralize(summary.Examined))
	fmt.Printf("  ✓ Created %d local record%s\n", len(summary.Created), pluralize(len(summary.Created)))
	fmt.Printf("  ✓ Updated %d local record%s\n", len(summary.Updated), pluralize(len(summary.Updated)))

	return nil
}

// SyncStatusCommand shows the tenant's cursor and last run outcome.
func SyncStatusCommand(database *sql.DB, actor sync.Actor, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	_ = fs.Parse(args)

	store := db.NewStore(database)
	state, err := store.SyncCursor(context.Background(), actor.TenantID)
	if err != nil {
		return err
	}

	if state == nil {
		fmt.Printf("Tenant %s has never synced.\n", actor.TenantID)
		return nil
	}

	fmt.Printf("Tenant:    %s\n", state.TenantID)
	fmt.Printf("Status:    %s\n", state.Status)
	if state.LastSyncTime != nil {
		fmt.Printf("Last sync: %s\n", state.LastSyncTime.Format(time.RFC3339))
	} else {
		fmt.Println("Last sync: never")
	}
	if state.ErrorMessage != nil {
		fmt.Printf("Error:     %s\n", *state.ErrorMessage)
	}

	return nil
}

// pluralize returns "s" if count != 1, otherwise ""
func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
