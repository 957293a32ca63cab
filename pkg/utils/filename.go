package utils

import "strings"

var segmentReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeSegment makes a company id, period or file name safe to use as a
// single path element
func SanitizeSegment(name string) string {
	clean := strings.TrimSpace(segmentReplacer.Replace(name))
	clean = strings.Trim(clean, ".")
	if clean == "" {
		return "_"
	}
	return clean
}
