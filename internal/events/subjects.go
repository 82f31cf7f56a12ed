package events

import "strconv"

// Stream settings for scoring events.
const (
	StreamName   = "INCIDEX_ASSESSMENTS"
	StreamMaxAge = "720h" // 30 days

	subjectPrefix = "incidex.assessment."
)

// SubjectAssessment is the subject an assessment for a product is published on.
func SubjectAssessment(productID int64, status string) string {
	return subjectPrefix + strconv.FormatInt(productID, 10) + "." + status
}
