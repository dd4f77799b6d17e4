package streak

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/noah-isme/sma-absence-alerts/internal/models"
)

var parentEmailPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*@[a-zA-Z]+\.com$`)

// IsValidParentEmail reports whether email is of the form name@domain.com.
// A single trailing newline is tolerated, matching how `$` behaves in the
// upstream pattern dialect.
func IsValidParentEmail(email string) bool {
	return parentEmailPattern.MatchString(strings.TrimSuffix(email, "\n"))
}

// FormatMessage renders the parent notification for a streak.
func FormatMessage(studentName string, s models.AbsenceStreak) string {
	return fmt.Sprintf(
		"Dear Parent, your child %s was absent from %s to %s for %d days. Please ensure their attendance improves.",
		studentName,
		s.StartDate.Format(models.DateLayout),
		s.EndDate.Format(models.DateLayout),
		s.TotalAbsentDays,
	)
}
