package domain

import (
	"fmt"
	"time"
)

// NotificationTypeInfo is the severity of informational notifications.
const NotificationTypeInfo = "info"

// Notification is one entry in a participant's notification feed.
type Notification struct {
	ID            int
	Type          string
	TextPrimary   string
	TextSecondary string
	Timestamp     time.Time
	Read          bool
}

// WelcomeNotification builds the greeting every participant receives at
// session creation. Texts are Polish, matching the client copy.
func WelcomeNotification(initialBalance int, currency Currency, now time.Time) Notification {
	return Notification{
		ID:          1,
		Type:        NotificationTypeInfo,
		TextPrimary: "Witamy w grze!",
		TextSecondary: fmt.Sprintf("Rozpoczynasz grę z kwotą %d %s.",
			initialBalance, currency),
		Timestamp: now.UTC(),
		Read:      false,
	}
}
