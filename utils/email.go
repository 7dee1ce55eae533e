package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// ZeptoMail transactional API payload.
type mailPayload struct {
	From    mailbox      `json:"from"`
	To      []mailTarget `json:"to"`
	Subject string       `json:"subject"`
	Body    string       `json:"htmlbody"`
}

type mailbox struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type mailTarget struct {
	Mailbox mailbox `json:"email_address"`
}

var mailClient = &http.Client{Timeout: 15 * time.Second}

// SendEmail delivers an HTML notification through ZeptoMail. "to" may name
// several addresses separated by commas; treasury notices usually go to the
// whole board.
func SendEmail(to, subject, body string) error {
	apiURL := os.Getenv("ZEPTO_API_URL")
	apiKey := os.Getenv("ZEPTO_API_KEY")
	from := os.Getenv("EMAIL_FROM")

	if apiURL == "" || apiKey == "" || from == "" {
		return fmt.Errorf("missing ZEPTO_API_URL, ZEPTO_API_KEY or EMAIL_FROM")
	}

	var targets []mailTarget
	for _, addr := range strings.Split(to, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		targets = append(targets, mailTarget{Mailbox: mailbox{Address: addr}})
	}
	if len(targets) == 0 {
		return fmt.Errorf("no recipient address")
	}

	payload, err := json.Marshal(mailPayload{
		From:    mailbox{Address: from, Name: os.Getenv("EMAIL_FROM_NAME")},
		To:      targets,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", apiKey)

	resp, err := mailClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("zeptomail: %s", resp.Status)
	}

	log.Printf("notification email sent to %s", to)
	return nil
}
