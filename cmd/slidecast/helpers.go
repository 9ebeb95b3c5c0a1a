package main

import (
	"fmt"
	"time"
)

// formatTimestamp renders a duration as hh:mm:ss.mmm for timeline output.
func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	millis := (d - seconds*time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}
