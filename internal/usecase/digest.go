package usecase

import (
	"fmt"
	"strings"
	"time"

	"DailyHoller/internal/domain"
)

func buildDigestMessage(summary domain.RunSummary) string {
	var b strings.Builder

	status := "completed"
	if !summary.Completed {
		status = "interrupted"
	}
	fmt.Fprintf(&b, "Daily Holler run %s %s\n", shortID(summary.RunID), status)
	if summary.Cycle > 0 {
		fmt.Fprintf(&b, "Cycle: %d\n", summary.Cycle)
	}
	fmt.Fprintf(&b, "Created: %d\nFailed: %d\n", summary.Created, summary.Failed)
	if summary.Skipped > 0 {
		fmt.Fprintf(&b, "Skipped (fresh): %d\n", summary.Skipped)
	}
	if summary.Fallbacks > 0 {
		fmt.Fprintf(&b, "Kept previous: %d\n", summary.Fallbacks)
	}
	if summary.Abandoned > 0 {
		fmt.Fprintf(&b, "Abandoned batches: %d\n", summary.Abandoned)
	}
	fmt.Fprintf(&b, "Batches: %d, cities: %d\n", summary.Batches, summary.Processed)
	fmt.Fprintf(&b, "Took: %s", summary.Duration.Round(time.Second))

	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
