package tools

import (
	"fmt"
)

const (
	maxBodySize    = 10 * 1024 * 1024 // 10 MB
	maxSubjectSize = 998              // RFC 2822 line length limit
	maxEmailIDSize = 256
)

// validateEmailID checks that an email ID is non-empty and contains no
// control characters or whitespace. Sequence-set syntax is left to the server.
func validateEmailID(id string) error {
	if id == "" {
		return fmt.Errorf("email_id is required")
	}
	if len(id) > maxEmailIDSize {
		return fmt.Errorf("email_id exceeds maximum length of %d characters", maxEmailIDSize)
	}

	for _, r := range id {
		if r <= 0x20 || r == 0x7f {
			return fmt.Errorf("email_id contains invalid characters")
		}
	}

	return nil
}

// validateBodySize checks that body content doesn't exceed limits.
func validateBodySize(body string) error {
	if len(body) > maxBodySize {
		return fmt.Errorf("body exceeds maximum size of %d bytes", maxBodySize)
	}
	return nil
}

// validateSubjectSize checks that subject doesn't exceed limits.
func validateSubjectSize(subject string) error {
	if len(subject) > maxSubjectSize {
		return fmt.Errorf("subject exceeds maximum length of %d characters", maxSubjectSize)
	}
	return nil
}

// validateFilter rejects control characters in filter_by. Unknown values
// are reported by the mail client.
func validateFilter(filter string) error {
	for _, r := range filter {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("filter_by contains invalid characters")
		}
	}
	return nil
}
