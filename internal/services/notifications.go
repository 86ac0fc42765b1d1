package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/harentsoaR/clinic-api/internal/metrics"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/rs/zerolog"
)

const DefaultTextbeltURL = "https://textbelt.com/text"

// NotificationService sends SMS through Textbelt. Without an API key every send is a no-op.
type NotificationService struct {
	apiKey  string
	url     string
	client  *http.Client
	log     zerolog.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewNotificationService(apiKey, url string, log zerolog.Logger, m *metrics.Metrics) *NotificationService {
	if url == "" {
		url = DefaultTextbeltURL
	}
	return &NotificationService{
		apiKey:  apiKey,
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("component", "sms").Logger(),
		metrics: m,
	}
}

// Enabled reports whether an API key is configured.
func (s *NotificationService) Enabled() bool {
	return s != nil && s.apiKey != ""
}

// SendRegistrationDecisionSMS tells an applicant whether their registration was approved.
func (s *NotificationService) SendRegistrationDecisionSMS(reg *models.PendingRegistration) {
	var body string
	switch reg.Status {
	case models.RegistrationApproved:
		body = fmt.Sprintf("Hello %s, your %s registration has been approved. You can now sign in.", reg.FullName, reg.Role)
	case models.RegistrationRejected:
		body = fmt.Sprintf("Hello %s, your %s registration was not approved.", reg.FullName, reg.Role)
		if reg.AdminNotes != "" {
			body += " Reason: " + reg.AdminNotes
		}
	default:
		return
	}
	s.send(reg.Phone, body)
}

// SendAppointmentSMS notifies the patient of a new or cancelled appointment.
func (s *NotificationService) SendAppointmentSMS(patient *models.User, apt *models.Appointment) {
	when := apt.StartTime.Format("Jan 2 at 3:04 PM")
	var body string
	switch apt.Status {
	case models.AppointmentCancelled:
		body = fmt.Sprintf("Appointment Cancelled: %s on %s.", apt.Service, when)
	default:
		body = fmt.Sprintf("Appointment Confirmed: %s with %s on %s.", apt.Service, patient.FullName, when)
	}
	s.send(patient.Phone, body)
}

// Wait blocks until in-flight messages have been handed to Textbelt.
func (s *NotificationService) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

// send runs in a goroutine so it doesn't block the API response.
func (s *NotificationService) send(phone, message string) {
	if !s.Enabled() {
		return
	}
	if phone == "" {
		s.log.Debug().Msg("SMS not sent: recipient has no phone number")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := s.sendTextbelt(ctx, phone, message)
		s.metrics.RecordSMS(err == nil)
		if err != nil {
			s.log.Warn().Err(err).Str("phone", phone).Msg("failed to send SMS")
			return
		}
		s.log.Info().Str("phone", phone).Msg("SMS sent")
	}()
}

type textbeltResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *NotificationService) sendTextbelt(ctx context.Context, phone, message string) error {
	postBody, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
		"key":     s.apiKey,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(postBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("textbelt request: %w", err)
	}
	defer resp.Body.Close()

	var result textbeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("textbelt response (HTTP %d): %w", resp.StatusCode, err)
	}
	if !result.Success {
		return fmt.Errorf("textbelt rejected message: %s", result.Error)
	}
	return nil
}
