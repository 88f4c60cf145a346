package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// SMS template types understood by the provider.
const (
	SmsTemplateOtp       = "otp"
	SmsTemplateApproved  = "application_approved"
	SmsTemplateRejected  = "application_rejected"
	SmsTemplateInactive  = "locker_inactive"
	SmsTemplateReturnKey = "return_key"
)

// SmsSender delivers templated SMS messages. Delivery mechanics are the
// provider's concern; callers only see success or failure.
type SmsSender interface {
	SendSms(ctx context.Context, phone, template string, params map[string]string) error
}

// SmsService talks to the HTTP SMS provider.
type SmsService struct {
	apiURL     string
	apiKey     string
	senderID   string
	httpClient *http.Client
}

// NewSmsService constructs an SmsService. A nil client gets a bounded default.
func NewSmsService(apiURL, apiKey, senderID string, client *http.Client) *SmsService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SmsService{
		apiURL:     apiURL,
		apiKey:     apiKey,
		senderID:   senderID,
		httpClient: client,
	}
}

type smsSendRequest struct {
	Sender   string            `json:"sender"`
	Phone    string            `json:"phone"`
	Template string            `json:"template"`
	Params   map[string]string `json:"params,omitempty"`
}

type smsSendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SendSms posts a templated message to the provider.
func (s *SmsService) SendSms(ctx context.Context, phone, template string, params map[string]string) error {
	payload := smsSendRequest{
		Sender:   s.senderID,
		Phone:    phone,
		Template: template,
		Params:   params,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		smsDispatchCounter.WithLabelValues(template, "error").Inc()
		return fmt.Errorf("sms provider request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		smsDispatchCounter.WithLabelValues(template, "error").Inc()
		return fmt.Errorf("sms provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed smsSendResponse
	if err := json.Unmarshal(respBody, &parsed); err == nil && !parsed.Success {
		smsDispatchCounter.WithLabelValues(template, "rejected").Inc()
		return fmt.Errorf("sms provider rejected message: %s", parsed.Message)
	}

	smsDispatchCounter.WithLabelValues(template, "ok").Inc()
	return nil
}

// MockSmsSender logs instead of sending. Used in development and tests.
type MockSmsSender struct {
	Sent []MockSms
}

// MockSms records one mock delivery.
type MockSms struct {
	Phone    string
	Template string
	Params   map[string]string
}

// SendSms records the message and logs it.
func (m *MockSmsSender) SendSms(ctx context.Context, phone, template string, params map[string]string) error {
	m.Sent = append(m.Sent, MockSms{Phone: phone, Template: template, Params: params})
	log.Printf("[SMS mock] to=%s template=%s params=%v", phone, template, params)
	smsDispatchCounter.WithLabelValues(template, "mock").Inc()
	return nil
}
