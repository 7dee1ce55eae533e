package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
)

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

// SendSMS delivers a text message through the configured HTTP SMS gateway.
// Used for OTP login codes.
func SendSMS(to, message string) error {
	apiURL := os.Getenv("SMS_API_URL")
	apiKey := os.Getenv("SMS_API_KEY")
	sender := os.Getenv("SMS_SENDER")

	if apiURL == "" || apiKey == "" {
		log.Println("Missing SMS_API_URL or SMS_API_KEY")
		return fmt.Errorf("missing required sms config")
	}

	payload := smsRequest{To: to, Message: message, Sender: sender}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal sms payload: %v", err)
		return err
	}

	req, err := http.NewRequest("POST", apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Printf("Failed to create request: %v", err)
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("Failed to send sms: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		log.Printf("SMS gateway returned status %s", resp.Status)
		return fmt.Errorf("sms gateway error: %s", resp.Status)
	}

	return nil
}
