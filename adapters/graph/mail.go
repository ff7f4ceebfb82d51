package graph

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lborres/kontak/core"
)

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type fileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType,omitempty"`
	ContentBytes string `json:"contentBytes"`
}

type outgoingMessage struct {
	Subject       string           `json:"subject"`
	Body          itemBody         `json:"body"`
	ToRecipients  []recipient      `json:"toRecipients"`
	CcRecipients  []recipient      `json:"ccRecipients,omitempty"`
	BccRecipients []recipient      `json:"bccRecipients,omitempty"`
	Attachments   []fileAttachment `json:"attachments,omitempty"`
}

// SendMail sends a message as the signed-in user and keeps a copy in Sent Items.
func (c *Client) SendMail(ctx context.Context, accessToken string, input *core.SendEmailInput) error {
	msg := outgoingMessage{
		Subject:       input.Subject,
		Body:          itemBody{ContentType: "Text", Content: input.Body},
		ToRecipients:  toRecipients(input.To),
		CcRecipients:  toRecipients(input.Cc),
		BccRecipients: toRecipients(input.Bcc),
	}
	if input.IsHTML {
		msg.Body.ContentType = "HTML"
	}
	for _, a := range input.Attachments {
		msg.Attachments = append(msg.Attachments, fileAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         a.Name,
			ContentType:  a.ContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	body := struct {
		Message         outgoingMessage `json:"message"`
		SaveToSentItems bool            `json:"saveToSentItems"`
	}{Message: msg, SaveToSentItems: true}

	return c.doJSON(ctx, http.MethodPost, "/me/sendMail", accessToken, body, nil)
}

// searchPhrase quotes s as a single $search phrase. Embedded quotes are
// backslash-escaped so they cannot close the phrase early.
func searchPhrase(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// ListMessages lists inbox messages newest first. Graph does not allow
// $orderby together with $search, so searched results keep relevance order.
func (c *Client) ListMessages(ctx context.Context, accessToken string, filter core.EmailFilter) ([]core.EmailMessage, error) {
	q := "$top=" + strconv.Itoa(filter.Top) +
		"&$select=" + url.QueryEscape("id,subject,bodyPreview,from,toRecipients,ccRecipients,receivedDateTime,isRead,webLink")
	if filter.Search != "" {
		q += "&$search=" + url.QueryEscape(searchPhrase(filter.Search))
	} else {
		q += "&$orderby=" + url.QueryEscape("receivedDateTime desc")
	}

	var resp struct {
		Value []message `json:"value"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/me/messages?"+q, accessToken, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]core.EmailMessage, 0, len(resp.Value))
	for i := range resp.Value {
		out = append(out, resp.Value[i].toCore())
	}
	return out, nil
}
