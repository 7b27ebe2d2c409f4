package utils

import "strings"

var logReplacer = strings.NewReplacer("\r", "_", "\n", "_", "\t", " ")

// SanitizeForLog keeps client supplied values from forging log lines.
func SanitizeForLog(s string) string {
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return logReplacer.Replace(s)
}
