package core

import (
	"io"
	"time"
)

// Document is a reference to a file whose bytes live in the external store.
type Document struct {
	ID             string    `json:"id"`
	FileName       string    `json:"fileName"`
	FileType       string    `json:"fileType"`
	FileSize       int64     `json:"fileSize"`
	ExternalFileID string    `json:"externalFileId"`
	ExternalURL    string    `json:"externalUrl"`
	ShareURL       *string   `json:"shareUrl,omitempty"`
	SiteID         string    `json:"siteId"`
	FolderPath     string    `json:"folderPath"`
	UploadedBy     *string   `json:"uploadedBy,omitempty"`
	ContactID      *string   `json:"contactId,omitempty"`
	CompanyID      *string   `json:"companyId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Team is a joined Microsoft Teams team.
type Team struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Site is the file-store site backing a team.
type Site struct {
	ID     string `json:"id"`
	WebURL string `json:"webUrl"`
}

// DriveItem is a file or folder in the team's document library.
type DriveItem struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	WebURL               string     `json:"webUrl"`
	Size                 int64      `json:"size"`
	MimeType             string     `json:"mimeType,omitempty"`
	IsFolder             bool       `json:"isFolder"`
	ParentPath           string     `json:"parentPath,omitempty"`
	CreatedDateTime      time.Time  `json:"createdDateTime"`
	LastModifiedDateTime *time.Time `json:"lastModifiedDateTime,omitempty"`
}

// FileContent is a downloaded file. Callers must close Body.
type FileContent struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

type UploadInput struct {
	CompanyName string
	ContactName string
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
	ContactID   *string
	CompanyID   *string
	UploadedBy  string
}

type UploadedDocument struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	WebURL          string    `json:"webUrl"`
	ShareURL        string    `json:"shareUrl"`
	FolderPath      string    `json:"folderPath"`
	Size            int64     `json:"size"`
	CreatedDateTime time.Time `json:"createdDateTime"`
	DocumentID      string    `json:"documentId,omitempty"`
}

type SearchInput struct {
	Query       string
	CompanyName string
	ContactName string
}
