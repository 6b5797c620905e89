package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "focustrail/internal/platform/errors"
)

// MaxLabels caps how many labels can exist at once.
const MaxLabels = 9

const maxLabelName = 40

var labelColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Label is a user-defined category a session can be tagged with.
type Label struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NormalizeLabelName trims name and rejects empty or overlong names.
func NormalizeLabelName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: label name is required", apperrors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxLabelName {
		return "", fmt.Errorf("%w: label name longer than %d characters", apperrors.ErrInvalidInput, maxLabelName)
	}
	return name, nil
}

// NormalizeLabelColor accepts #RRGGBB and returns it lowercased.
func NormalizeLabelColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if !labelColor.MatchString(color) {
		return "", fmt.Errorf("%w: label color %q must look like #RRGGBB", apperrors.ErrInvalidInput, color)
	}
	return strings.ToLower(color), nil
}

// NextOrderIndex returns the smallest order index not used by labels.
func NextOrderIndex(labels []Label) int {
	used := make(map[int]bool, len(labels))
	for _, l := range labels {
		used[l.OrderIndex] = true
	}
	i := 0
	for used[i] {
		i++
	}
	return i
}

// TopApp is one of the most used apps within a session.
type TopApp struct {
	AppID        string  `json:"app_id"`
	Owner        string  `json:"owner,omitempty"`
	DurationSecs float64 `json:"duration_secs"`
	Percentage   float64 `json:"percentage"`
}
