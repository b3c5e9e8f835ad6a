package notify

import (
	"fmt"
	"strings"

	"github.com/oszuidwest/zwfm-scope/internal/config"
	"github.com/oszuidwest/zwfm-scope/internal/util"
	"github.com/wneessen/go-mail"
)

const subjectSuffix = " - ZuidWest FM Scope"

func emailConfigured(cfg *config.Snapshot) bool {
	return util.IsConfigured(cfg.EmailSMTPHost, cfg.EmailUsername, cfg.EmailRecipients)
}

// emailMessage renders the subject and plain-text body for a.
func emailMessage(a Alert) (subject, body string) {
	var b strings.Builder
	switch a.Event {
	case EventSilence:
		subject = "[ALERT] Silence Detected"
		b.WriteString("Silence detected on the playback monitor.\n\n")
		fmt.Fprintf(&b, "Duration:  %.1f seconds\nThreshold: %.1f dB\n", a.Duration, a.Threshold)
	case EventRecovered:
		subject = "[OK] Audio Recovered"
		b.WriteString("Audio recovered on the playback monitor.\n\n")
		fmt.Fprintf(&b, "Silence lasted: %.1f seconds\n", a.Duration)
	default:
		subject = "[TEST] Notification"
		b.WriteString("Test email from the playback monitor. SMTP configuration is working.\n\n")
	}
	if a.File != "" {
		fmt.Fprintf(&b, "File:      %s\nPosition:  %s\n", a.File, util.FormatPosition(a.Position))
	}
	fmt.Fprintf(&b, "Time:      %s\n", util.HumanTime(a.Time))
	return subject + subjectSuffix, b.String()
}

func sendEmailAlert(cfg *config.Snapshot, a Alert) error {
	subject, body := emailMessage(a)
	return sendEmail(cfg, subject, body)
}

// recipients splits the comma separated recipient list.
func recipients(list string) []string {
	var out []string
	for r := range strings.SplitSeq(list, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// sendEmail delivers one plain-text message to the configured recipients.
func sendEmail(cfg *config.Snapshot, subject, body string) error {
	to := recipients(cfg.EmailRecipients)
	if len(to) == 0 {
		return fmt.Errorf("no valid recipients")
	}

	m := mail.NewMsg()
	if cfg.EmailFromName != "" {
		if err := m.FromFormat(cfg.EmailFromName, cfg.EmailUsername); err != nil {
			return util.WrapError("set from address", err)
		}
	} else if err := m.From(cfg.EmailUsername); err != nil {
		return util.WrapError("set from address", err)
	}
	if err := m.To(to...); err != nil {
		return util.WrapError("set recipient address", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(cfg.EmailSMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		mail.WithUsername(cfg.EmailUsername),
		mail.WithPassword(cfg.EmailPassword),
	}
	switch cfg.EmailSMTPPort {
	case 465: // implicit TLS
		opts = append(opts, mail.WithSSL())
	case 587: // STARTTLS
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	c, err := mail.NewClient(cfg.EmailSMTPHost, opts...)
	if err != nil {
		return util.WrapError("create SMTP client", err)
	}
	if err := c.DialAndSend(m); err != nil {
		return util.WrapError("send email", err)
	}
	return nil
}
