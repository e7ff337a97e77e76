// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strconv"
	"time"
)

// TimestampLayout is the wire layout for request timestamps. No zone suffix:
// the orchestrator receives the client's local wall-clock time.
const TimestampLayout = "2006-01-02T15:04:05"

// FormatTimestamp renders t in the client's local zone using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(TimestampLayout)
}

// EpochMillis returns t as milliseconds since the Unix epoch.
func EpochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
