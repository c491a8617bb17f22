package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber returns ORD-YYYYMMDD-HHMMSS-XXXXXXXX using UTC time and
// eight random hex characters.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "ORD-" + now.UTC().Format("20060102-150405") + "-" + strings.ToUpper(suffix)
}
