package quality

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

// SmtpConfig configures where alert mail goes. An empty Host disables
// alerting.
type SmtpConfig struct {
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Host != "" && len(c.To) > 0
}

// SendAlert mails a failed check result.
func SendAlert(config SmtpConfig, result Result) error {
	if !config.Enabled() {
		return fmt.Errorf("smtp alerting is not configured")
	}

	message := email.NewEmail()
	message.From = config.From
	message.To = config.To
	message.Subject = fmt.Sprintf("webtoon pipeline quality check failed for %s", result.Date)
	message.Text = []byte(alertBody(result))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return message.Send(address, auth)
}

func alertBody(result Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quality check failed for %s.\n\n", result.Date)
	for _, problem := range result.Problems {
		fmt.Fprintf(&b, "  - %s\n", problem)
	}
	fmt.Fprintf(&b, "\nchart rows: %d (%d distinct titles)\n", result.ChartRows, result.DistinctItems)
	fmt.Fprintf(&b, "stats rows: %d, newest at %s\n", result.StatsRows, result.NewestStatsAt)
	return b.String()
}
