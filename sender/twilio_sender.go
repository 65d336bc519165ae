package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

type twilioMessage struct {
	SID          string  `json:"sid"`
	Status       string  `json:"status"`
	DateCreated  string  `json:"date_created"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func NewTwilioSender(accountSID, authToken, fromNumber string) (*TwilioSender, error) {
	if accountSID == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID not set")
	}
	if authToken == "" {
		return nil, fmt.Errorf("TWILIO_AUTH_TOKEN not set")
	}
	if fromNumber == "" {
		return nil, fmt.Errorf("TWILIO_FROM_NUMBER not set")
	}

	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    twilioBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}, nil
}

// WithBaseURL points the sender at a different API root. Used by tests.
func (t *TwilioSender) WithBaseURL(u string) *TwilioSender {
	t.baseURL = strings.TrimSuffix(u, "/")
	return t
}

func (t *TwilioSender) SendSMS(ctx context.Context, to, msg string) (SendResult, error) {
	apiURL := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, t.accountSID)

	formData := url.Values{}
	formData.Set("To", to)
	formData.Set("From", t.fromNumber)
	formData.Set("Body", msg)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL,
		strings.NewReader(formData.Encode()))
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to read twilio response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr twilioError
		if json.Unmarshal(respBody, &apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("%s: %s", resp.Status, string(respBody))
		}
		return SendResult{}, &ProviderError{StatusCode: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}

	var out twilioMessage
	if err := json.Unmarshal(respBody, &out); err != nil {
		return SendResult{}, fmt.Errorf("failed to decode twilio response: %w", err)
	}
	if out.Status == "failed" || out.Status == "undelivered" {
		reason := out.Status
		if out.ErrorMessage != nil {
			reason = *out.ErrorMessage
		}
		code := 0
		if out.ErrorCode != nil {
			code = *out.ErrorCode
		}
		return SendResult{}, &ProviderError{StatusCode: resp.StatusCode, Code: code, Message: reason}
	}

	sentAt := t.now()
	if ts, err := time.Parse(time.RFC1123Z, out.DateCreated); err == nil {
		sentAt = ts
	}

	return SendResult{
		MessageID: out.SID,
		Status:    out.Status,
		SentAt:    sentAt,
	}, nil
}
