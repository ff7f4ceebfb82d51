package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/m-mizutani/goerr/v2"

	"github.com/lborres/kontak/core"
)

const (
	// Files up to this size go in a single PUT. Larger files need an upload session.
	simpleUploadLimit = 4 << 20

	// Upload session chunks must be a multiple of 320 KiB.
	uploadChunkSize = 12 * 320 << 10
)

func drivePath(siteID string) string {
	return "/sites/" + url.PathEscape(siteID) + "/drive"
}

// itemPath addresses a drive item by path. An empty path is the drive root.
func itemPath(siteID, p string) string {
	if escaped := escapePath(p); escaped != "" {
		return drivePath(siteID) + "/root:/" + escaped
	}
	return drivePath(siteID) + "/root"
}

// childrenPath addresses the children collection of the item at p.
func childrenPath(siteID, p string) string {
	if escaped := escapePath(p); escaped != "" {
		return drivePath(siteID) + "/root:/" + escaped + ":/children"
	}
	return drivePath(siteID) + "/root/children"
}

func (c *Client) GetItemByPath(ctx context.Context, accessToken, siteID, p string) (*core.DriveItem, error) {
	var item driveItem
	if err := c.doJSON(ctx, http.MethodGet, itemPath(siteID, p), accessToken, nil, &item); err != nil {
		return nil, err
	}
	out := item.toCore()
	return &out, nil
}

func (c *Client) GetItem(ctx context.Context, accessToken, siteID, itemID string) (*core.DriveItem, error) {
	var item driveItem
	if err := c.doJSON(ctx, http.MethodGet, drivePath(siteID)+"/items/"+url.PathEscape(itemID), accessToken, nil, &item); err != nil {
		return nil, err
	}
	out := item.toCore()
	return &out, nil
}

// CreateFolder creates name under parentPath. A name collision yields a
// renamed sibling rather than an error.
func (c *Client) CreateFolder(ctx context.Context, accessToken, siteID, parentPath, name string) (*core.DriveItem, error) {
	body := newFolder{Name: name, ConflictBehavior: "rename"}

	var item driveItem
	if err := c.doJSON(ctx, http.MethodPost, childrenPath(siteID, parentPath), accessToken, body, &item); err != nil {
		return nil, err
	}
	out := item.toCore()
	return &out, nil
}

// ListChildren lists the items directly inside the folder at p, following
// continuation links.
func (c *Client) ListChildren(ctx context.Context, accessToken, siteID, p string) ([]core.DriveItem, error) {
	var items []core.DriveItem

	r := request{method: http.MethodGet, path: childrenPath(siteID, p), token: accessToken}
	for {
		var page driveItemList
		if err := c.decode(ctx, r, &page); err != nil {
			return nil, err
		}
		for i := range page.Value {
			items = append(items, page.Value[i].toCore())
		}
		if page.NextLink == "" {
			return items, nil
		}
		r = request{method: http.MethodGet, url: page.NextLink, token: accessToken}
	}
}

// Upload writes content to folderPath/fileName, replacing an existing file
// of the same name.
func (c *Client) Upload(ctx context.Context, accessToken, siteID, folderPath, fileName string, content io.Reader, size int64) (*core.DriveItem, error) {
	target := folderPath + "/" + fileName
	if size > simpleUploadLimit {
		return c.uploadSession(ctx, accessToken, siteID, target, content, size)
	}

	r := request{
		method:      http.MethodPut,
		path:        itemPath(siteID, target) + ":/content",
		token:       accessToken,
		body:        content,
		length:      size,
		contentType: "application/octet-stream",
	}
	var item driveItem
	if err := c.decode(ctx, r, &item); err != nil {
		return nil, err
	}
	out := item.toCore()
	return &out, nil
}

// uploadSession uploads content in fixed-size chunks. The upload URL is
// pre-authenticated and must not carry the bearer token.
func (c *Client) uploadSession(ctx context.Context, accessToken, siteID, target string, content io.Reader, size int64) (*core.DriveItem, error) {
	var session struct {
		UploadURL string `json:"uploadUrl"`
	}
	body := map[string]any{
		"item": map[string]string{"@microsoft.graph.conflictBehavior": "replace"},
	}
	if err := c.doJSON(ctx, http.MethodPost, itemPath(siteID, target)+":/createUploadSession", accessToken, body, &session); err != nil {
		return nil, err
	}
	if session.UploadURL == "" {
		return nil, goerr.Wrap(core.ErrUpstream, "upload session has no upload url", goerr.V("path", target))
	}

	buf := make([]byte, uploadChunkSize)
	var offset int64
	for offset < size {
		n, err := io.ReadFull(content, buf[:min(int64(len(buf)), size-offset)])
		if err != nil {
			return nil, goerr.Wrap(err, "read upload content", goerr.V("offset", offset), goerr.V("size", size))
		}

		r := request{
			method:      http.MethodPut,
			url:         session.UploadURL,
			body:        bytes.NewReader(buf[:n]),
			contentType: "application/octet-stream",
			header: http.Header{
				"Content-Range": {fmt.Sprintf("bytes %d-%d/%d", offset, offset+int64(n)-1, size)},
			},
		}
		resp, err := c.do(ctx, r)
		if err != nil {
			return nil, err
		}
		offset += int64(n)

		// 202 acknowledges a chunk; the final chunk returns the item.
		if resp.StatusCode == http.StatusAccepted {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			continue
		}

		var item driveItem
		err = json.NewDecoder(resp.Body).Decode(&item)
		resp.Body.Close()
		if err != nil {
			return nil, goerr.Wrap(err, "decode upload response", goerr.V("path", target))
		}
		out := item.toCore()
		return &out, nil
	}

	return nil, goerr.Wrap(core.ErrUpstream, "upload session ended without an item", goerr.V("path", target))
}

// CreateShareLink returns an organisation-scoped view link for the item.
func (c *Client) CreateShareLink(ctx context.Context, accessToken, siteID, itemID string) (string, error) {
	body := map[string]string{"type": "view", "scope": "organization"}

	var resp struct {
		Link struct {
			WebURL string `json:"webUrl"`
		} `json:"link"`
	}
	if err := c.doJSON(ctx, http.MethodPost, drivePath(siteID)+"/items/"+url.PathEscape(itemID)+"/createLink", accessToken, body, &resp); err != nil {
		return "", err
	}
	return resp.Link.WebURL, nil
}

// Download streams the item's content. The caller closes Body.
func (c *Client) Download(ctx context.Context, accessToken, siteID, itemID string) (*core.FileContent, error) {
	item, err := c.GetItem(ctx, accessToken, siteID, itemID)
	if err != nil {
		return nil, err
	}
	if item.IsFolder {
		return nil, goerr.Wrap(core.ErrDocumentNotFound, "item is a folder", goerr.V("item_id", itemID))
	}

	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   drivePath(siteID) + "/items/" + url.PathEscape(itemID) + "/content",
		token:  accessToken,
	})
	if err != nil {
		return nil, err
	}

	contentType := item.MimeType
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}
	size := item.Size
	if length, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil {
		size = length
	}

	return &core.FileContent{
		Name:        item.Name,
		ContentType: contentType,
		Size:        size,
		Body:        resp.Body,
	}, nil
}

// SearchFiles runs one page of a driveItem search across everything the
// user can see. There is no pagination.
func (c *Client) SearchFiles(ctx context.Context, accessToken, query string, size int) ([]core.DriveItem, error) {
	body := map[string]any{
		"requests": []map[string]any{{
			"entityTypes": []string{"driveItem"},
			"query":       map[string]string{"queryString": query},
			"from":        0,
			"size":        size,
		}},
	}

	var resp struct {
		Value []struct {
			HitsContainers []struct {
				Hits []struct {
					Resource driveItem `json:"resource"`
				} `json:"hits"`
			} `json:"hitsContainers"`
		} `json:"value"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/search/query", accessToken, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Value) == 0 || len(resp.Value[0].HitsContainers) == 0 {
		return []core.DriveItem{}, nil
	}
	hits := resp.Value[0].HitsContainers[0].Hits
	items := make([]core.DriveItem, 0, len(hits))
	for i := range hits {
		items = append(items, hits[i].Resource.toCore())
	}
	return items, nil
}

// decode sends r and decodes a JSON response into out.
func (c *Client) decode(ctx context.Context, r request, out any) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return goerr.Wrap(core.ErrUpstream, "empty graph response", goerr.V("path", r.path))
		}
		return goerr.Wrap(err, "decode graph response", goerr.V("path", r.path))
	}
	return nil
}
