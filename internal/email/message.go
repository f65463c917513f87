package email

import (
	"gopkg.in/mail.v2"

	"github.com/staffmail/staffmail/internal/model"
)

// Compose builds the plain-text message for c. The body is base64
// encoded so it reaches the recipient byte for byte.
func Compose(from From, c model.Contact) *mail.Message {
	m := mail.NewMessage(mail.SetEncoding(mail.Base64))
	m.SetAddressHeader("From", from.Address, from.Name)
	m.SetHeader("To", c.EmailTo)
	m.SetHeader("Subject", c.EmailSubject)
	m.SetBody("text/plain", c.EmailBody)
	return m
}
