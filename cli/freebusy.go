// ABOUTME: Free/busy CLI command
// ABOUTME: Prints per-address busy intervals over a time window
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dwelldigitally/learnlynk-calsync/remote"
	"github.com/dwelldigitally/learnlynk-calsync/sync"
)

// FreeBusyCommand queries busy intervals for a set of addresses.
func FreeBusyCommand(engine *sync.Engine, actor sync.Actor, args []string) error {
	fs := flag.NewFlagSet("freebusy", flag.ExitOnError)
	emails := fs.String("emails", "", "Comma-separated addresses (required)")
	from := fs.String("from", "", "Window start, RFC3339 (required)")
	to := fs.String("to", "", "Window end, RFC3339 (required)")
	_ = fs.Parse(args)

	if *emails == "" {
		return fmt.Errorf("--emails is required")
	}

	start, err := time.Parse(time.RFC3339, *from)
	if err != nil {
		return fmt.Errorf("invalid --from (want RFC3339): %w", err)
	}
	end, err := time.Parse(time.RFC3339, *to)
	if err != nil {
		return fmt.Errorf("invalid --to (want RFC3339): %w", err)
	}

	var addresses []string
	for _, address := range strings.Split(*emails, ",") {
		if trimmed := strings.TrimSpace(address); trimmed != "" {
			addresses = append(addresses, trimmed)
		}
	}

	busy, err := engine.GetFreeBusy(context.Background(), actor, addresses, remote.Window{Start: start, End: end})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ADDRESS\tBUSY FROM\tBUSY UNTIL")
	for _, address := range addresses {
		periods := busy[address]
		if len(periods) == 0 {
			_, _ = fmt.Fprintf(w, "%s\tfree\t\n", address)
			continue
		}
		for _, period := range periods {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
				address,
				period.Start.Format(time.RFC3339),
				period.End.Format(time.RFC3339),
			)
		}
	}
	return w.Flush()
}
