// Package drive implements the DriveClient port using the Google Drive v3 API.
package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ericfisherdev/payvault/internal/domain/model"
	"github.com/ericfisherdev/payvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DriveClient = (*Client)(nil)

const (
	folderMimeType = "application/vnd.google-apps.folder"

	// fileFields covers everything normalization needs. Listing responses may
	// omit thumbnailLink, which is why each item is re-fetched individually.
	fileFields = "id, name, mimeType, createdTime, thumbnailLink, webViewLink"
	listFields = "nextPageToken, files(" + fileFields + ")"

	listPageSize = 100
)

// Client implements the driven.DriveClient port for one bearer credential.
// It is bound to a single canonical folder name and file name prefix.
type Client struct {
	svc        *drive.Service
	folderName string
	filePrefix string
}

// NewClient creates a Drive API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. oauth2 static token source injecting the bearer credential
//  3. google.golang.org/api Drive v3 service
func NewClient(ctx context.Context, token, folderName, filePrefix string) (*Client, error) {
	if token == "" {
		return nil, errors.New("drive client requires a non-empty token")
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, cacheTransport.Client()),
		src,
	)

	svc, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Client{
		svc:        svc,
		folderName: folderName,
		filePrefix: filePrefix,
	}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, folderName, filePrefix string) (*Client, error) {
	svc, err := drive.NewService(context.Background(),
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Client{
		svc:        svc,
		folderName: folderName,
		filePrefix: filePrefix,
	}, nil
}

// EnsureFolder finds or creates the canonical storage folder and returns its
// id. With more than one match (possible when two clients race on first use)
// the first returned folder wins; duplicates are reported, not corrected.
func (c *Client) EnsureFolder(ctx context.Context) (string, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(c.folderName), folderMimeType)

	list, err := c.svc.Files.List().
		Q(query).
		Fields("files(id, name)").
		PageSize(10).
		Context(ctx).
		Do()
	if err != nil {
		return "", storageErr("list folders", err)
	}

	if len(list.Files) > 0 {
		if len(list.Files) > 1 {
			slog.Warn("multiple canonical folders exist, using first",
				"name", c.folderName,
				"count", len(list.Files),
			)
		}
		return list.Files[0].Id, nil
	}

	created, err := c.svc.Files.Create(&drive.File{
		Name:     c.folderName,
		MimeType: folderMimeType,
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", storageErr("create folder", err)
	}

	slog.Info("canonical folder created", "name", c.folderName, "id", created.Id)
	return created.Id, nil
}

// ListDocuments returns the normalized image documents inside the folder.
// Listing responses may omit fields needed for display, so full metadata is
// fetched per item; a failed per-item fetch drops that item rather than
// failing the whole listing.
func (c *Client) ListDocuments(ctx context.Context, folderID string) ([]model.Document, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed = false",
		escapeQuery(folderID))

	var ids []string
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q(query).
			OrderBy("createdTime desc").
			Fields(listFields).
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return nil, storageErr("list documents", err)
		}

		for _, f := range list.Files {
			ids = append(ids, f.Id)
		}

		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}

	docs := make([]model.Document, 0, len(ids))
	var dropped int
	for _, id := range ids {
		f, err := c.svc.Files.Get(id).Fields(fileFields).Context(ctx).Do()
		if err != nil {
			slog.Warn("document metadata fetch failed, skipping item", "id", id, "error", err)
			dropped++
			continue
		}
		docs = append(docs, mapFile(f))
	}

	slog.Debug("documents listed",
		"folder_id", folderID,
		"listed", len(ids),
		"dropped", dropped,
	)

	return docs, nil
}

// UploadDocument stores image bytes as a new file in the folder. The file
// name is built from the configured prefix and the chosen period; name
// collisions are expected and resolved later by title dedup, not prevented
// here. On success the created file's full metadata is re-fetched, since the
// create response does not include a thumbnail link.
func (c *Client) UploadDocument(ctx context.Context, folderID string, image []byte, mimeType, period string) (model.Document, error) {
	name := c.fileName(period, mimeType)

	meta := &drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{folderID},
	}

	created, err := c.svc.Files.Create(meta).
		Media(bytes.NewReader(image), googleapi.ContentType(mimeType)).
		Fields(fileFields).
		Context(ctx).
		Do()
	if err != nil {
		return model.Document{}, fmt.Errorf("%w: %w", model.ErrUploadFailed, storageErr("create file", err))
	}

	full, err := c.svc.Files.Get(created.Id).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		// The upload itself succeeded; serve the create response without a
		// thumbnail rather than failing the save.
		slog.Warn("created file metadata fetch failed, thumbnail may be missing",
			"id", created.Id, "error", err)
		full = created
	}

	slog.Info("document uploaded", "id", full.Id, "name", name)
	return mapFile(full), nil
}

// DeleteDocument removes the remote file with the given id.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if err := c.svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return storageErr("delete file", err)
	}
	return nil
}

// DownloadDocument streams the content of the remote file with the given id.
func (c *Client) DownloadDocument(ctx context.Context, id string) (io.ReadCloser, string, error) {
	resp, err := c.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, "", storageErr("download file", err)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// fileName builds the remote file name from the configured prefix, the chosen
// period, and an extension matching the mime type, e.g. "Payslip_2026-03.jpg".
func (c *Client) fileName(period, mimeType string) string {
	return c.filePrefix + "_" + period + extensionFor(mimeType)
}

// extensionFor maps an image mime type to a file extension. JPEG is the
// capture default, so unknown types fall back to it.
func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	default:
		return ".jpg"
	}
}

// escapeQuery escapes single quotes for embedding a value in a Drive query string.
func escapeQuery(s string) string {
	return strings.ReplaceAll(s, `'`, `\'`)
}

// storageErr wraps a Drive API error as a *model.StorageError, extracting the
// HTTP status when the error carries one.
func storageErr(op string, err error) *model.StorageError {
	status := 0
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		status = gerr.Code
	}
	return &model.StorageError{Op: op, Status: status, Err: err}
}

// mapFile converts a Drive file to a domain model Document. The period is
// derived from the capture time, matching how listing normalization and
// post-upload normalization must agree.
func mapFile(f *drive.File) model.Document {
	created := ParseCreatedTime(f.CreatedTime)

	return model.Document{
		ID:           f.Id,
		Title:        f.Name,
		Period:       created.UTC().Format("2006-01"),
		CreatedAt:    created,
		ThumbnailURL: f.ThumbnailLink,
		ViewURL:      f.WebViewLink,
		MimeType:     f.MimeType,
	}
}

// ParseCreatedTime parses Drive's RFC3339 createdTime string. Any parse
// failure or zero result yields the current time: a missing or garbled date
// must not hide an otherwise-valid document from the list.
func ParseCreatedTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil || t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
