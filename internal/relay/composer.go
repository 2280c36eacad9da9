package relay

import (
	"fmt"

	"github.com/552020/futura-prealpha/internal/model"
)

// shareTemplate takes the recipient name then the sender name. Names are inserted as-is.
const shareTemplate = "Hello %s,\n\n%s has shared some files with you through Futura.\n\nYou can access your shared files at: https://futura.app\n\nBest regards,\nThe Futura Team"

// Compose builds the notification payload for a decoded request.
func Compose(req model.EmailRequest) model.EmailPayload {
	return model.EmailPayload{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		Text:    fmt.Sprintf(shareTemplate, req.RecipientName, req.UserName),
	}
}
