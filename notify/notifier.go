// Package notify sends production reports and alerts by email and suppresses
// duplicate sends through a keyed expiring lock store. Sending is
// fire-and-forget: the accounting loops never wait on mail delivery and never
// see its failures.
package notify

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"cupline/config"
	"cupline/store"
)

// BodyVariants carries the plain-text and HTML renderings of one message.
type BodyVariants struct {
	Text string
	HTML string
}

type Attachment struct {
	Filename string
	Content  []byte
}

// Notifier is the outbound alert capability consumed by the monitor loops.
type Notifier interface {
	Notify(subject string, body BodyVariants, isError bool, attachments []Attachment)
}

// EmailNotifier delivers through SMTP on a small worker pool. Recipients
// managed in the database take precedence over the static config lists.
type EmailNotifier struct {
	cfg  config.SMTPConfig
	db   *store.DB
	jobs chan mailJob
	wg   sync.WaitGroup
	once sync.Once
}

type mailJob struct {
	subject     string
	body        BodyVariants
	isError     bool
	attachments []Attachment
}

func NewEmailNotifier(cfg config.SMTPConfig, db *store.DB) *EmailNotifier {
	n := &EmailNotifier{
		cfg:  cfg,
		db:   db,
		jobs: make(chan mailJob, 32),
	}
	for i := 0; i < cfg.Workers; i++ {
		n.wg.Add(1)
		go n.worker()
	}
	return n
}

// Notify enqueues a message. When the queue is full the message is dropped
// and logged rather than stalling the caller.
func (n *EmailNotifier) Notify(subject string, body BodyVariants, isError bool, attachments []Attachment) {
	select {
	case n.jobs <- mailJob{subject: subject, body: body, isError: isError, attachments: attachments}:
	default:
		log.Printf("notify: queue full, dropping %q", subject)
	}
}

// Close stops the workers after draining queued messages.
func (n *EmailNotifier) Close() {
	n.once.Do(func() { close(n.jobs) })
	n.wg.Wait()
}

func (n *EmailNotifier) worker() {
	defer n.wg.Done()
	for job := range n.jobs {
		if err := n.send(job); err != nil {
			log.Printf("notify: send %q: %v", job.subject, err)
		}
	}
}

func (n *EmailNotifier) recipients(isError bool) []string {
	var dbRecipients []string
	if n.db != nil {
		if list, err := n.db.ListRecipients(true); err == nil {
			for _, r := range list {
				dbRecipients = append(dbRecipients, r.Email)
			}
		} else {
			log.Printf("notify: list recipients: %v", err)
		}
	}
	if isError {
		if len(n.cfg.ErrorRecipients) > 0 {
			return n.cfg.ErrorRecipients
		}
		return dbRecipients
	}
	if len(dbRecipients) > 0 {
		return dbRecipients
	}
	return n.cfg.ProductionRecipients
}

func (n *EmailNotifier) send(job mailJob) error {
	recipients := n.recipients(job.isError)
	if len(recipients) == 0 {
		log.Printf("notify: no recipients configured, dropping %q", job.subject)
		return nil
	}

	msg := buildMessage(n.cfg.Sender, recipients, job.subject, job.body, job.attachments)
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, n.cfg.Sender, recipients, msg); err != nil {
		return err
	}
	log.Printf("notify: sent %q to %d recipients", job.subject, len(recipients))
	return nil
}

// buildMessage assembles a multipart/alternative MIME message, wrapping it in
// multipart/mixed when attachments are present.
func buildMessage(sender string, to []string, subject string, body BodyVariants, attachments []Attachment) []byte {
	var buf bytes.Buffer
	altBoundary := "alt-" + boundarySeed()
	mixedBoundary := "mixed-" + boundarySeed()

	fmt.Fprintf(&buf, "From: %s\r\n", sender)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	writeAlternative := func(w *bytes.Buffer) {
		fmt.Fprintf(w, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", altBoundary)
		fmt.Fprintf(w, "--%s\r\n", altBoundary)
		w.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		w.WriteString(body.Text)
		fmt.Fprintf(w, "\r\n--%s\r\n", altBoundary)
		w.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		w.WriteString(body.HTML)
		fmt.Fprintf(w, "\r\n--%s--\r\n", altBoundary)
	}

	if len(attachments) == 0 {
		writeAlternative(&buf)
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixedBoundary)
	fmt.Fprintf(&buf, "--%s\r\n", mixedBoundary)
	writeAlternative(&buf)
	for _, att := range attachments {
		fmt.Fprintf(&buf, "--%s\r\n", mixedBoundary)
		buf.WriteString("Content-Type: application/octet-stream\r\n")
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", att.Filename)
		encoded := base64.StdEncoding.EncodeToString(att.Content)
		for len(encoded) > 76 {
			buf.WriteString(encoded[:76])
			buf.WriteString("\r\n")
			encoded = encoded[76:]
		}
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", mixedBoundary)
	return buf.Bytes()
}

func boundarySeed() string {
	return fmt.Sprintf("%x", time.Now().UnixNano())
}
