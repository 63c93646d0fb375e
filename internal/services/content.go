package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"shakti-shield/internal/models"
	"shakti-shield/pkg/email"
	"shakti-shield/pkg/push"
)

const (
	alertTitle       = "🚨 Emergency Alert - Shakti Shield"
	alertType        = "sos_alert"
	androidChannelID = "sos_alerts"
	iosAlertCategory = "SOS_ALERT"
	alertTimeLayout  = "02 Jan 2006, 15:04 MST"
	historyPath      = "/sos-history"
	dashboardPath    = "/dashboard"
)

func alertBody(p models.NotificationPayload) string {
	return fmt.Sprintf("%s needs help! Location: %s", p.UserName, p.Location.Address)
}

func smsBody(p models.NotificationPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 EMERGENCY ALERT - Shakti Shield\n%s needs immediate help!\n\n", p.UserName)
	fmt.Fprintf(&b, "Location: %s\n", p.Location.Address)
	fmt.Fprintf(&b, "Coordinates: %s\n", p.Location.Coordinates())
	fmt.Fprintf(&b, "Time: %s\n", p.Timestamp.Format(alertTimeLayout))
	fmt.Fprintf(&b, "Message: %s\n\n", p.Message)
	fmt.Fprintf(&b, "Please contact %s at %s immediately!", p.UserName, p.UserPhone)
	return b.String()
}

// pushData is the data map carried by every SOS push. FCM data values must be strings.
func pushData(p models.NotificationPayload) map[string]string {
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return map[string]string{
		"sos_id":     p.SOSID,
		"user_name":  p.UserName,
		"user_phone": p.UserPhone,
		"latitude":   strconv.FormatFloat(p.Location.Latitude, 'f', -1, 64),
		"longitude":  strconv.FormatFloat(p.Location.Longitude, 'f', -1, 64),
		"address":    p.Location.Address,
		"message":    p.Message,
		"timestamp":  ts.UTC().Format(time.RFC3339),
		"type":       alertType,
	}
}

func pushRequest(p models.NotificationPayload, link string) *push.NotificationRequest {
	return &push.NotificationRequest{
		Title:    alertTitle,
		Body:     alertBody(p),
		Data:     pushData(p),
		Sound:    "default",
		Badge:    1,
		Priority: "high",
		Link:     link,
		Android: &push.AndroidConfig{
			Priority:  "high",
			Sound:     "default",
			ChannelID: androidChannelID,
		},
		IOS: &push.IOSConfig{
			Sound:    "default",
			Badge:    1,
			Category: iosAlertCategory,
		},
	}
}

var alertEmailTemplate = template.Must(template.New("sos_alert").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Emergency Alert - Shakti Shield</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f5f5f5; padding: 20px;">
<div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px;">
  <div style="background-color: #dc3545; color: #ffffff; padding: 20px; text-align: center;">
    <h1>🚨 Emergency Alert - Shakti Shield</h1>
  </div>
  <div style="padding: 30px;">
    <h2>URGENT: {{.UserName}} needs immediate help!</h2>
    <p>This is an automated emergency alert from the Shakti Shield safety app.</p>
    <h3>Emergency Details:</h3>
    <p><strong>Name:</strong> {{.UserName}}</p>
    <p><strong>Phone:</strong> {{.UserPhone}}</p>
    <p><strong>Location:</strong> {{.Location.Address}}</p>
    <p><strong>Coordinates:</strong> {{.Coordinates}}</p>
    <p><strong>Time:</strong> {{.Time}}</p>
    <p><strong>Message:</strong> {{.Message}}</p>
    <p>
      <a href="tel:{{.UserPhone}}">Call {{.UserName}}</a> |
      <a href="{{.MapsURL}}">View Location</a>
    </p>
    <p><strong>Please take immediate action:</strong></p>
    <ul>
      <li>Call {{.UserName}} immediately</li>
      <li>If no response, contact local emergency services</li>
      <li>Share this information with other trusted contacts</li>
    </ul>
  </div>
  <div style="background-color: #f8f9fa; padding: 20px; text-align: center; color: #6c757d;">
    <p>If you believe this is a false alarm, please contact {{.UserName}} to confirm their safety.</p>
  </div>
</div>
</body>
</html>`))

type alertEmailView struct {
	models.NotificationPayload
	Coordinates string
	Time        string
	MapsURL     template.URL
}

func emailRequest(to string, p models.NotificationPayload) (*email.EmailRequest, error) {
	view := alertEmailView{
		NotificationPayload: p,
		Coordinates:         p.Location.Coordinates(),
		Time:                p.Timestamp.Format(alertTimeLayout),
		MapsURL:             template.URL(p.Location.MapsURL()),
	}

	var html bytes.Buffer
	if err := alertEmailTemplate.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("failed to render alert email: %w", err)
	}

	return &email.EmailRequest{
		To:       to,
		Subject:  fmt.Sprintf("🚨 Emergency Alert - %s needs help!", p.UserName),
		HTMLBody: html.String(),
		TextBody: smsBody(p),
	}, nil
}
