package graph

import (
	"time"

	"github.com/lborres/kontak/core"
)

// driveItem is the Graph driveItem resource, trimmed to what the CRM reads.
type driveItem struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	WebURL               string          `json:"webUrl"`
	Size                 int64           `json:"size"`
	CreatedDateTime      time.Time       `json:"createdDateTime"`
	LastModifiedDateTime *time.Time      `json:"lastModifiedDateTime,omitempty"`
	Folder               *struct{}       `json:"folder,omitempty"`
	File                 *fileFacet      `json:"file,omitempty"`
	ParentReference      *parentRefFacet `json:"parentReference,omitempty"`
}

type fileFacet struct {
	MimeType string `json:"mimeType"`
}

type parentRefFacet struct {
	DriveID string `json:"driveId"`
	Path    string `json:"path"`
}

func (d *driveItem) toCore() core.DriveItem {
	item := core.DriveItem{
		ID:                   d.ID,
		Name:                 d.Name,
		WebURL:               d.WebURL,
		Size:                 d.Size,
		IsFolder:             d.Folder != nil,
		CreatedDateTime:      d.CreatedDateTime,
		LastModifiedDateTime: d.LastModifiedDateTime,
	}
	if d.File != nil {
		item.MimeType = d.File.MimeType
	}
	if d.ParentReference != nil {
		item.ParentPath = d.ParentReference.Path
	}
	return item
}

type driveItemList struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink,omitempty"`
}

// newFolder is the create-folder body. Graph renames on collision so two
// concurrent creators end up with "Name" and "Name 1".
type newFolder struct {
	Name             string   `json:"name"`
	Folder           struct{} `json:"folder"`
	ConflictBehavior string   `json:"@microsoft.graph.conflictBehavior"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

func (a emailAddress) toCore() core.EmailAddress {
	return core.EmailAddress{Name: a.Name, Address: a.Address}
}

type message struct {
	ID               string      `json:"id"`
	Subject          string      `json:"subject"`
	BodyPreview      string      `json:"bodyPreview"`
	From             *recipient  `json:"from,omitempty"`
	ToRecipients     []recipient `json:"toRecipients"`
	CcRecipients     []recipient `json:"ccRecipients"`
	ReceivedDateTime time.Time   `json:"receivedDateTime"`
	IsRead           bool        `json:"isRead"`
	WebLink          string      `json:"webLink"`
}

func (m *message) toCore() core.EmailMessage {
	out := core.EmailMessage{
		ID:               m.ID,
		Subject:          m.Subject,
		BodyPreview:      m.BodyPreview,
		To:               recipientsToCore(m.ToRecipients),
		Cc:               recipientsToCore(m.CcRecipients),
		ReceivedDateTime: m.ReceivedDateTime,
		IsRead:           m.IsRead,
		WebLink:          m.WebLink,
	}
	if m.From != nil {
		from := m.From.EmailAddress.toCore()
		out.From = &from
	}
	return out
}

func recipientsToCore(rs []recipient) []core.EmailAddress {
	out := make([]core.EmailAddress, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.EmailAddress.toCore())
	}
	return out
}

func toRecipients(addresses []string) []recipient {
	out := make([]recipient, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, recipient{EmailAddress: emailAddress{Address: a}})
	}
	return out
}
