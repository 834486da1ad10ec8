package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schollz/progressbar/v3"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/tracekit/carbontrace/internal/common"
	"github.com/tracekit/carbontrace/internal/model"
	"github.com/tracekit/carbontrace/internal/service"
)

// DefaultQuery narrows the inbox scan to likely activity receipts before any
// parsing happens.
const DefaultQuery = `from:(uber.com OR lyft.com OR doordash.com) OR subject:(receipt OR "flight confirmation")`

// Scanner walks a Gmail inbox and extracts activity records from receipts.
type Scanner struct {
	svc         *gmailapi.Service
	query       string
	maxMessages int64
}

// NewScanner creates a scanner. An empty query uses DefaultQuery; maxMessages
// caps how many messages are fetched, zero means 200.
func NewScanner(svc *gmailapi.Service, query string, maxMessages int64) *Scanner {
	if strings.TrimSpace(query) == "" {
		query = DefaultQuery
	}
	if maxMessages <= 0 {
		maxMessages = 200
	}
	return &Scanner{svc: svc, query: query, maxMessages: maxMessages}
}

// Scan lists matching messages, fetches each one, and parses it into an
// extraction record. Messages that fetch but don't parse are skipped; fetch
// failures after retries abort the scan.
func (s *Scanner) Scan(ctx context.Context) ([]model.Record, error) {
	ids, err := s.listMessageIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		slog.Info("No messages matched the receipt query", "query", s.query)
		return nil, nil
	}

	slog.Info("Scanning messages for receipts", "count", len(ids))
	bar := progressbar.Default(int64(len(ids)), "scanning receipts")

	var records []model.Record
	for _, id := range ids {
		var msg *gmailapi.Message
		fetch := func() error {
			var fetchErr error
			msg, fetchErr = s.svc.Users.Messages.Get("me", id).Context(ctx).Do()
			return fetchErr
		}
		if err := common.WithRetry(ctx, fetch, service.RetryOptions{}); err != nil {
			return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
		}
		_ = bar.Add(1)

		record, ok := ParseReceipt(messageSubject(msg), messageText(msg))
		if !ok {
			continue
		}
		records = append(records, *record)
	}

	slog.Info("Receipt scan complete", "messages", len(ids), "records", len(records))
	return records, nil
}

func (s *Scanner) listMessageIDs(ctx context.Context) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		call := s.svc.Users.Messages.List("me").Q(s.query).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmailapi.ListMessagesResponse
		list := func() error {
			var listErr error
			resp, listErr = call.Do()
			return listErr
		}
		if err := common.WithRetry(ctx, list, service.RetryOptions{}); err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
			if int64(len(ids)) >= s.maxMessages {
				return ids, nil
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return ids, nil
		}
	}
}

func messageSubject(msg *gmailapi.Message) string {
	if msg.Payload == nil {
		return ""
	}
	for _, header := range msg.Payload.Headers {
		if strings.EqualFold(header.Name, "Subject") {
			return header.Value
		}
	}
	return ""
}

// messageText returns the plain-text content of a message, preferring the
// text/plain part of multipart bodies and falling back to the snippet.
func messageText(msg *gmailapi.Message) string {
	if msg.Payload != nil {
		if text := partText(msg.Payload); text != "" {
			return text
		}
		for _, part := range msg.Payload.Parts {
			if part.MimeType == "text/plain" {
				if text := partText(part); text != "" {
					return text
				}
			}
		}
	}
	return msg.Snippet
}

func partText(part *gmailapi.MessagePart) string {
	if part.Body == nil || part.Body.Data == "" {
		return ""
	}
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(
		strings.TrimRight(part.Body.Data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}
