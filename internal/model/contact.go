package model

// Contact is one row of the contact store: who to mail and what to send.
type Contact struct {
	EmailTo      string `json:"emailTo"`
	EmailSubject string `json:"emailSubject"`
	EmailBody    string `json:"emailBody"`
	// EmailAttachments is carried through from the store but not sent.
	EmailAttachments string `json:"emailAttachments,omitempty"`
}
