// internal/notify/slack.go
package notify

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

// Notifier posts webhook failures to a Slack channel. Alerts are
// fire-and-forget: a failed alert is logged, never propagated.
type Notifier struct {
	client  *slack.Client
	channel string
}

// NewNotifier returns a nil-safe notifier; with an empty token every
// Alert call is a no-op.
func NewNotifier(token, channel string) *Notifier {
	n := &Notifier{channel: channel}
	if token != "" {
		n.client = slack.New(token)
	}
	return n
}

func (n *Notifier) Alert(errMsg, pageID string) {
	if n == nil || n.client == nil {
		return
	}
	text := fmt.Sprintf("Notion webhook failed: %s", errMsg)
	if pageID != "" {
		text += fmt.Sprintf("\nPage: %s", pageID)
	}
	_, _, err := n.client.PostMessage(n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		log.Println("⚠️ Slack alert failed:", err)
	}
}
