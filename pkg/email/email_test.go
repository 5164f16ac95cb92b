package email

import (
	"strings"
	"testing"

	"mailspot/config"
	"mailspot/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	svc, err := NewService(config.EmailConfig{From: "hello@mailspot.test", FromName: "Mailspot"}, logger.NewNop())
	require.NoError(t, err)
	return svc
}

func TestRenderPurchaseConfirmation(t *testing.T) {
	svc := newTestService(t)

	subject, body, err := svc.Render(TypePurchaseConfirmation, map[string]interface{}{
		"BusinessName": "Joe's Pizza",
		"MailingTitle": "Spring 94110",
		"SpotCount":    2,
		"AmountPaid":   "$1350.00",
		"TrackingURLs": []string{"https://t.example/t/abc-def"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Your postcard ad spot is confirmed", subject)
	assert.Contains(t, body, "Joe&#39;s Pizza")
	assert.Contains(t, body, "Spring 94110")
	assert.Contains(t, body, "https://t.example/t/abc-def")
}

func TestRenderWelcomeWithClaimLink(t *testing.T) {
	svc := newTestService(t)

	_, body, err := svc.Render(TypeWelcome, map[string]interface{}{"ClaimURL": "https://site/claim?token=x"})
	require.NoError(t, err)
	assert.Contains(t, body, "https://site/claim?token=x")
}

func TestRenderUnknownType(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Render(EmailType("newsletter"), nil)
	assert.Error(t, err)
}

func TestBuildMessageHeaders(t *testing.T) {
	svc := newTestService(t)

	msg := string(svc.buildMessage("new@biz.com", "Hi", "<p>body</p>"))
	assert.Contains(t, msg, "From: Mailspot <hello@mailspot.test>\r\n")
	assert.Contains(t, msg, "To: new@biz.com\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>body</p>"))
}
