package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sfioritto/inbox-triage/pkg/errors"
)

const gmailUser = "me"

// GmailRetriever reads conversations from one Gmail account.
type GmailRetriever struct {
	srv         *gmail.Service
	accountName string
	bodyLimit   int
}

// GmailOptions configures a GmailRetriever.
type GmailOptions struct {
	AccountName     string
	CredentialsFile string
	TokenFile       string
	// BodyLimit caps body length in characters. Zero means no cap.
	BodyLimit int
}

// NewGmailRetriever builds a read-only Gmail client from stored OAuth
// credentials. It does not run the interactive consent flow; a missing or
// expired token is an error the caller can choose to tolerate.
func NewGmailRetriever(ctx context.Context, opts GmailOptions) (*GmailRetriever, error) {
	b, err := os.ReadFile(opts.CredentialsFile)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.RetrievalFailed, "unable to read client secret file"),
			errors.Fields{"account": opts.AccountName})
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, errors.Wrap(err, errors.RetrievalFailed, "unable to parse client secret file")
	}

	tok, err := tokenFromFile(opts.TokenFile)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.RetrievalFailed, "unable to read oauth token"),
			errors.Fields{"account": opts.AccountName})
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, tok)))
	if err != nil {
		return nil, errors.Wrap(err, errors.RetrievalFailed, "unable to create Gmail service")
	}

	return &GmailRetriever{
		srv:         srv,
		accountName: opts.AccountName,
		bodyLimit:   opts.BodyLimit,
	}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func (g *GmailRetriever) AccountName() string {
	return g.accountName
}

// Search lists message references matching the Gmail query.
func (g *GmailRetriever) Search(ctx context.Context, query string, limit int64) ([]Ref, error) {
	list, err := g.srv.Users.Messages.List(gmailUser).
		Q(query).
		MaxResults(limit).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.RetrievalFailed, "unable to list messages"),
			errors.Fields{"account": g.accountName, "query": query})
	}

	refs := make([]Ref, 0, len(list.Messages))
	for _, msg := range list.Messages {
		refs = append(refs, Ref{ID: msg.Id})
	}
	return refs, nil
}

// FetchDetails retrieves the full message and flattens it into a
// Conversation with a truncated plain-text body.
func (g *GmailRetriever) FetchDetails(ctx context.Context, id string) (Conversation, error) {
	msg, err := g.srv.Users.Messages.Get(gmailUser, id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return Conversation{}, errors.WithFields(
			errors.Wrap(err, errors.RetrievalFailed, "unable to fetch message"),
			errors.Fields{"account": g.accountName, "id": id})
	}

	return conversationFromMessage(msg, g.accountName, g.bodyLimit), nil
}

// conversationFromMessage flattens a Gmail message payload into the
// pipeline's Conversation shape.
func conversationFromMessage(msg *gmail.Message, accountName string, bodyLimit int) Conversation {
	conv := Conversation{
		ID:          msg.Id,
		Snippet:     msg.Snippet,
		AccountName: accountName,
		MessageIDs:  []string{msg.Id},
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "Subject":
				conv.Subject = header.Value
			case "From":
				conv.From = header.Value
			case "Date":
				conv.Date = header.Value
			}
		}
		conv.Body = Truncate(extractPlainText(msg.Payload), bodyLimit)
	}

	return conv
}

// extractPlainText walks the MIME tree for the first text/plain part.
func extractPlainText(payload *gmail.MessagePart) string {
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		mime := strings.ToLower(part.MimeType)
		if strings.HasPrefix(mime, "text/") || strings.HasPrefix(mime, "multipart/") {
			if body := extractPlainText(part); body != "" {
				return body
			}
		}
	}
	return ""
}
