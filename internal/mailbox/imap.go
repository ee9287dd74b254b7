package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/inbox-snapshot/internal/config"
	"github.com/inbox-snapshot/internal/models"
	"github.com/inbox-snapshot/internal/priority"
)

// IMAPProvider fetches unread messages over IMAP. One provider instance is
// bound to one mailbox account; credentials come from configuration, the
// user record only scopes the result.
type IMAPProvider struct {
	cfg *config.MailboxConfig
}

// NewIMAPProvider creates a new IMAP-backed mailbox provider
func NewIMAPProvider(cfg *config.MailboxConfig) *IMAPProvider {
	return &IMAPProvider{cfg: cfg}
}

// Name returns the provider tag recorded on snapshot items
func (p *IMAPProvider) Name() string {
	return "imap"
}

// FetchUnreadMessages connects to the IMAP server, searches INBOX for unseen
// messages and returns up to maxCount of the most recent ones. An empty
// mailbox returns an empty slice, not an error.
func (p *IMAPProvider) FetchUnreadMessages(ctx context.Context, _ *models.User, maxCount int) ([]Message, error) {
	client, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	// Take the most recent UIDs up to the allowed count
	if maxCount > 0 && len(uids) > maxCount {
		uids = uids[len(uids)-maxCount:]
	}

	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{
		Peek: true, // do not mark messages as read
	}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		RFC822Size:  true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		messages = append(messages, p.messageFromBuffer(buf, bodySection))
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	return messages, nil
}

func (p *IMAPProvider) connect(_ context.Context) (*imapclient.Client, error) {
	addr := p.cfg.Host + ":" + p.cfg.Port

	var client *imapclient.Client
	var err error

	if p.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(p.cfg.Username, p.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("IMAP authentication failed for %s: %w", p.cfg.Username, err)
	}

	return client, nil
}

// messageFromBuffer maps a fetched IMAP message onto the provider-neutral
// Message type the pipeline consumes.
func (p *IMAPProvider) messageFromBuffer(buf *imapclient.FetchMessageBuffer, bodySection *imap.FetchItemBodySection) Message {
	m := Message{
		ID:           fmt.Sprintf("%d", buf.UID),
		SizeEstimate: int(buf.RFC822Size),
		Labels:       labelsFromFlags(buf.Flags),
	}

	if buf.Envelope != nil {
		env := buf.Envelope
		if env.MessageID != "" {
			m.ID = env.MessageID
		}
		m.Subject = env.Subject
		m.Date = env.Date
		if len(env.InReplyTo) > 0 {
			m.ThreadID = env.InReplyTo[0]
		}

		if len(env.From) > 0 {
			from := env.From[0]
			m.SenderName = from.Name
			m.SenderEmail = from.Addr()
		}
	}

	m.OpenLink = fmt.Sprintf("imap://%s/INBOX;UID=%d", p.cfg.Host, buf.UID)

	if raw := buf.FindBodySection(bodySection); raw != nil {
		body, headers, attachments := parseMIMEBody(raw)
		m.Body = body
		m.Headers = headers
		m.Attachments = attachments
		m.Snippet = snippet(body, 200)
	}

	return m
}

// labelsFromFlags translates IMAP flags to the label names the scoring
// engine understands.
func labelsFromFlags(flags []imap.Flag) []string {
	var labels []string
	for _, flag := range flags {
		switch flag {
		case imap.FlagFlagged:
			labels = append(labels, priority.LabelStarred)
		case imap.FlagImportant:
			labels = append(labels, priority.LabelImportant)
		default:
			labels = append(labels, strings.ToUpper(strings.TrimPrefix(string(flag), "\\")))
		}
	}
	return labels
}

// parseMIMEBody parses a raw RFC 2822 message with go-message, returning the
// plain-text body, the priority-related header hints, and attachment
// metadata. Attachment bytes are read only to measure size, never kept.
func parseMIMEBody(raw []byte) (string, priority.HeaderHints, []models.AttachmentMeta) {
	var hints priority.HeaderHints
	var attachments []models.AttachmentMeta
	var textBody string

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Unparseable MIME: fall back to the raw text
		return string(raw), hints, nil
	}
	defer mr.Close()

	hints.Importance = mr.Header.Get("Importance")
	hints.Priority = mr.Header.Get("Priority")
	hints.XPriority = mr.Header.Get("X-Priority")

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			if !strings.HasPrefix(contentType, "text/plain") {
				continue
			}
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			textBody = string(body)

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			attachments = append(attachments, models.AttachmentMeta{
				Filename: filename,
				MimeType: contentType,
				Size:     int64(len(body)),
			})
		}
	}

	return textBody, hints, attachments
}

func snippet(body string, maxLen int) string {
	s := strings.TrimSpace(strings.Join(strings.Fields(body), " "))
	if len(s) <= maxLen {
		return s
	}
	// Cut at a rune boundary so the stored snippet stays valid UTF-8.
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
