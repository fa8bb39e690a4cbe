package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func ProgressKey(projectID uuid.UUID) string {
	return fmt.Sprintf("progress:%s", projectID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func ReportKey(token string) string {
	return fmt.Sprintf("report:%s", token)
}
