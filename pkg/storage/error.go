package storage

import (
	"errors"
	"strings"

	"github.com/papercomputeco/turntable/pkg/utils"
)

// ErrNotFound matches every NotFoundError through errors.Is.
var ErrNotFound = errors.New("conversation not found")

// NotFoundError is returned when a conversation doesn't exist in the store.
type NotFoundError struct {
	ConversationID string
}

func (e NotFoundError) Error() string {
	if e.ConversationID == "" {
		return ErrNotFound.Error()
	}

	return ErrNotFound.Error() + ": " + e.ConversationID
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func truncateTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return utils.Truncate(s, maxTitleLength)
}
