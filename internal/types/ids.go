// internal/types/ids.go
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PromptID string
type ChatKey string

// NewPromptID mints a time-prefixed ID. The random suffix keeps IDs minted
// within the same millisecond distinct.
func NewPromptID() PromptID {
	return newPromptIDAt(time.Now())
}

func newPromptIDAt(t time.Time) PromptID {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return PromptID(fmt.Sprintf("prompt_%d_%s", t.UnixMilli(), suffix))
}

func NewChatKey(parts ...string) ChatKey {
	return ChatKey(strings.Join(parts, ":"))
}
