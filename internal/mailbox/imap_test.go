package mailbox

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inbox-snapshot/internal/config"
	"github.com/inbox-snapshot/internal/priority"
)

func TestLabelsFromFlags(t *testing.T) {
	labels := labelsFromFlags([]imap.Flag{imap.FlagFlagged, imap.FlagImportant, imap.Flag("\\Draft")})

	assert.Contains(t, labels, priority.LabelStarred)
	assert.Contains(t, labels, priority.LabelImportant)
	assert.Contains(t, labels, "DRAFT")
}

func TestParseMIMEBody_PlainText(t *testing.T) {
	raw := strings.Join([]string{
		"From: Alice <alice@example.com>",
		"To: bob@example.com",
		"Subject: hello",
		"Importance: high",
		"X-Priority: 1 (Highest)",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"See you at the standup tomorrow.",
		"",
	}, "\r\n")

	body, hints, attachments := parseMIMEBody([]byte(raw))

	require.Contains(t, body, "See you at the standup tomorrow.")
	assert.Equal(t, "high", hints.Importance)
	assert.Equal(t, "1 (Highest)", hints.XPriority)
	assert.Empty(t, attachments)
}

func TestParseMIMEBody_MultipartWithAttachment(t *testing.T) {
	raw := strings.Join([]string{
		"From: Alice <alice@example.com>",
		"To: bob@example.com",
		"Subject: report",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=frontier",
		"",
		"--frontier",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Quarterly numbers attached.",
		"--frontier",
		"Content-Type: application/pdf",
		"Content-Disposition: attachment; filename=report.pdf",
		"",
		"%PDF-1.4 fake content",
		"--frontier--",
		"",
	}, "\r\n")

	body, _, attachments := parseMIMEBody([]byte(raw))

	require.Contains(t, body, "Quarterly numbers attached.")
	require.Len(t, attachments, 1)
	assert.Equal(t, "report.pdf", attachments[0].Filename)
	assert.Equal(t, "application/pdf", attachments[0].MimeType)
	assert.Greater(t, attachments[0].Size, int64(0))
}

func TestParseMIMEBody_UnparseableFallsBackToRaw(t *testing.T) {
	body, hints, attachments := parseMIMEBody([]byte("not a mime message"))

	assert.Equal(t, "not a mime message", body)
	assert.Empty(t, hints.Importance)
	assert.Nil(t, attachments)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "one two three", snippet("  one\n two\t three ", 200))

	long := strings.Repeat("a", 300)
	assert.Len(t, snippet(long, 200), 200)
	assert.Equal(t, "", snippet("", 200))
}

func TestSnippet_TruncatesAtRuneBoundary(t *testing.T) {
	// 3-byte runes; a 10-byte limit lands mid-rune without the boundary walk.
	s := snippet(strings.Repeat("日", 5), 10)

	assert.True(t, utf8.ValidString(s))
	assert.Equal(t, strings.Repeat("日", 3), s)
}

func TestMessageFromBuffer_Envelope(t *testing.T) {
	p := NewIMAPProvider(&config.MailboxConfig{Host: "imap.example.com"})

	buf := &imapclient.FetchMessageBuffer{
		UID:        42,
		RFC822Size: 1234,
		Flags:      []imap.Flag{imap.FlagFlagged},
		Envelope: &imap.Envelope{
			Subject:   "quarterly report",
			MessageID: "<msg-1@example.com>",
			InReplyTo: []string{"<parent@example.com>", "<older@example.com>"},
			From: []imap.Address{
				{Name: "Alice", Mailbox: "alice", Host: "example.com"},
			},
		},
	}

	m := p.messageFromBuffer(buf, &imap.FetchItemBodySection{})

	require.Equal(t, "<msg-1@example.com>", m.ID)
	assert.Equal(t, "<parent@example.com>", m.ThreadID)
	assert.Equal(t, "quarterly report", m.Subject)
	assert.Equal(t, "Alice", m.SenderName)
	assert.Equal(t, "alice@example.com", m.SenderEmail)
	assert.Equal(t, 1234, m.SizeEstimate)
	assert.Contains(t, m.Labels, priority.LabelStarred)

	// No references at all leaves the thread id empty.
	buf.Envelope.InReplyTo = nil
	m = p.messageFromBuffer(buf, &imap.FetchItemBodySection{})
	assert.Equal(t, "", m.ThreadID)
}
