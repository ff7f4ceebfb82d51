package services

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/logging"
)

// reservedPathChars are replaced one for one with '_' in folder names.
const reservedPathChars = `<>:"/\|?*`

// SanitizeSegment makes a company or contact name safe as a single folder name.
func SanitizeSegment(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(reservedPathChars, r) {
			return '_'
		}
		return r
	}, name)
}

// DocumentFiling files contact documents under a per-contact folder in the
// configured team's document library:
//
//	<root>/<team>/Projects/<company>/Contacts/<contact>
type DocumentFiling struct {
	graph      core.GraphClient
	documents  core.DocumentStorage
	teamName   string
	teamAlias  string
	folderRoot string
	searchSize int
}

var _ core.DocumentHandler = (*DocumentFiling)(nil)

func NewDocumentFiling(cfg core.MicrosoftConfig, graph core.GraphClient, documents core.DocumentStorage) *DocumentFiling {
	cfg = cfg.WithDefaults()
	return &DocumentFiling{
		graph:      graph,
		documents:  documents,
		teamName:   cfg.TeamName,
		teamAlias:  cfg.TeamAlias,
		folderRoot: cfg.FolderRoot,
		searchSize: cfg.SearchPageSize,
	}
}

// FolderPath is the only place a contact folder path is derived. Upload,
// listing and search all go through it.
func (f *DocumentFiling) FolderPath(companyName, contactName string) string {
	return strings.Join([]string{
		f.folderRoot,
		f.teamName,
		"Projects",
		SanitizeSegment(companyName),
		"Contacts",
		SanitizeSegment(contactName),
	}, "/")
}

// resolveSite finds the configured team among the user's joined teams and
// returns its file-store site.
func (f *DocumentFiling) resolveSite(ctx context.Context, accessToken string) (*core.Site, error) {
	teams, err := f.graph.JoinedTeams(ctx, accessToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list joined teams")
	}

	var team *core.Team
	for i := range teams {
		name := teams[i].DisplayName
		if name == f.teamName || (f.teamAlias != "" && name == f.teamAlias) {
			team = &teams[i]
			break
		}
	}
	if team == nil {
		return nil, goerr.Wrap(core.ErrTeamNotFound, "configured team is not joined", goerr.V("team", f.teamName))
	}

	site, err := f.graph.TeamSite(ctx, accessToken, team.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve team site", goerr.V("team_id", team.ID))
	}
	return site, nil
}

// EnsureFolder creates every missing segment of folderPath, root first.
//
// Creation uses rename-on-collision, so two callers creating the same
// folder at the same moment can leave a renamed sibling ("Contacts 1").
// Documents are then split across both until someone merges them.
func (f *DocumentFiling) EnsureFolder(ctx context.Context, accessToken, siteID, folderPath string) error {
	logger := logging.From(ctx)

	parent := ""
	for _, segment := range strings.Split(folderPath, "/") {
		if segment == "" {
			continue
		}
		current := path.Join(parent, segment)

		_, err := f.graph.GetItemByPath(ctx, accessToken, siteID, current)
		switch {
		case err == nil:
		case errors.Is(err, core.ErrFolderNotFound):
			if _, err := f.graph.CreateFolder(ctx, accessToken, siteID, parent, segment); err != nil {
				return goerr.Wrap(err, "failed to create folder", goerr.V("path", current))
			}
			logger.Info("folder created", "path", current)
		default:
			return goerr.Wrap(err, "failed to look up folder", goerr.V("path", current))
		}

		parent = current
	}
	return nil
}

// Upload stores the file in the contact folder, replacing a file of the
// same name, and shares it with the organization.
//
// The document row is written after the upload. If that write fails the
// file stays in the store and the error carries its id.
func (f *DocumentFiling) Upload(ctx context.Context, accessToken string, input core.UploadInput) (*core.UploadedDocument, error) {
	if input.Content == nil || input.FileName == "" {
		return nil, core.ErrFileRequired
	}
	if strings.TrimSpace(input.CompanyName) == "" || strings.TrimSpace(input.ContactName) == "" {
		return nil, goerr.Wrap(core.ErrValidation, "company and contact names are required")
	}

	site, err := f.resolveSite(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	folderPath := f.FolderPath(input.CompanyName, input.ContactName)
	if err := f.EnsureFolder(ctx, accessToken, site.ID, folderPath); err != nil {
		return nil, err
	}

	fileName := SanitizeSegment(input.FileName)
	item, err := f.graph.Upload(ctx, accessToken, site.ID, folderPath, fileName, input.Content, input.Size)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upload file", goerr.V("folder", folderPath), goerr.V("file", fileName))
	}

	shareURL, err := f.graph.CreateShareLink(ctx, accessToken, site.ID, item.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create share link", goerr.V("item_id", item.ID))
	}

	result := &core.UploadedDocument{
		ID:              item.ID,
		Name:            item.Name,
		WebURL:          item.WebURL,
		ShareURL:        shareURL,
		FolderPath:      folderPath,
		Size:            item.Size,
		CreatedDateTime: item.CreatedDateTime,
	}

	if f.documents != nil {
		doc := &core.Document{
			FileName:       item.Name,
			FileType:       fileType(input.ContentType, item),
			FileSize:       item.Size,
			ExternalFileID: item.ID,
			ExternalURL:    item.WebURL,
			ShareURL:       &shareURL,
			SiteID:         site.ID,
			FolderPath:     folderPath,
			ContactID:      input.ContactID,
			CompanyID:      input.CompanyID,
		}
		if input.UploadedBy != "" {
			doc.UploadedBy = &input.UploadedBy
		}
		if err := f.documents.CreateDocument(ctx, doc); err != nil {
			return nil, goerr.Wrap(err, "file uploaded but document record was not saved",
				goerr.V("item_id", item.ID), goerr.V("folder", folderPath))
		}
		result.DocumentID = doc.ID
	}

	logging.From(ctx).Info("document uploaded", "item_id", item.ID, "folder", folderPath, "size", item.Size)
	return result, nil
}

func fileType(contentType string, item *core.DriveItem) string {
	if contentType != "" {
		return contentType
	}
	if item.MimeType != "" {
		return item.MimeType
	}
	return "application/octet-stream"
}

// ContactDocuments lists the contact folder. A missing team or folder is
// an empty list.
func (f *DocumentFiling) ContactDocuments(ctx context.Context, accessToken, companyName, contactName string) ([]core.DriveItem, error) {
	site, err := f.resolveSite(ctx, accessToken)
	if err != nil {
		if errors.Is(err, core.ErrTeamNotFound) {
			return []core.DriveItem{}, nil
		}
		return nil, err
	}

	items, err := f.graph.ListChildren(ctx, accessToken, site.ID, f.FolderPath(companyName, contactName))
	if err != nil {
		if errors.Is(err, core.ErrFolderNotFound) {
			return []core.DriveItem{}, nil
		}
		return nil, goerr.Wrap(err, "failed to list contact folder")
	}

	files := make([]core.DriveItem, 0, len(items))
	for _, item := range items {
		if !item.IsFolder {
			files = append(files, item)
		}
	}
	return files, nil
}

// Search runs an organization-wide file search and returns the first page.
// With both names set, hits outside that contact's folder are dropped.
func (f *DocumentFiling) Search(ctx context.Context, accessToken string, input core.SearchInput) ([]core.DriveItem, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, core.ErrQueryRequired
	}

	hits, err := f.graph.SearchFiles(ctx, accessToken, query, f.searchSize)
	if err != nil {
		return nil, goerr.Wrap(err, "file search failed", goerr.V("query", query))
	}

	if input.CompanyName == "" || input.ContactName == "" {
		return hits, nil
	}

	folder := "/" + f.FolderPath(input.CompanyName, input.ContactName) + "/"
	scoped := make([]core.DriveItem, 0, len(hits))
	for _, hit := range hits {
		if inFolder(hit, folder) {
			scoped = append(scoped, hit)
		}
	}
	return scoped, nil
}

func inFolder(item core.DriveItem, folder string) bool {
	if item.ParentPath != "" && strings.Contains(item.ParentPath+"/", folder) {
		return true
	}
	decoded, err := url.PathUnescape(item.WebURL)
	if err != nil {
		decoded = item.WebURL
	}
	return strings.Contains(decoded, folder)
}

// Download resolves the team site before fetching, so a user who has left
// the team cannot download even with a valid file id.
func (f *DocumentFiling) Download(ctx context.Context, accessToken, fileID string) (*core.FileContent, error) {
	if fileID == "" {
		return nil, core.ErrDocumentNotFound
	}

	site, err := f.resolveSite(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	content, err := f.graph.Download(ctx, accessToken, site.ID, fileID)
	if err != nil {
		if errors.Is(err, core.ErrFolderNotFound) {
			return nil, core.ErrDocumentNotFound
		}
		return nil, goerr.Wrap(err, "failed to download document", goerr.V("item_id", fileID))
	}
	return content, nil
}

func (f *DocumentFiling) ContactDocumentRefs(ctx context.Context, contactID string) ([]*core.Document, error) {
	if f.documents == nil {
		return []*core.Document{}, nil
	}
	return f.documents.ListContactDocuments(ctx, contactID)
}
