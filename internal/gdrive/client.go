// Package gdrive implements the remote client on the Google Drive v3 API.
package gdrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	appConfig "drivemanager/config"
	"drivemanager/internal/models"
	"drivemanager/internal/remote"
)

const listFields = "nextPageToken, files(id, name, mimeType)"

type Client struct {
	mu      sync.RWMutex
	service *drive.Service
	connect func(ctx context.Context) (*drive.Service, error)
}

// New authenticates with the credentials file from cfg. A service account key
// is used directly; an OAuth client secret needs a saved token in TokenFile.
func New(ctx context.Context, cfg *appConfig.Config) (*Client, error) {
	transport, err := cfg.Transport()
	if err != nil {
		return nil, err
	}

	connect := func(ctx context.Context) (*drive.Service, error) {
		return newService(ctx, cfg, transport)
	}
	service, err := connect(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{service: service, connect: connect}, nil
}

// NewWithService wraps an existing service. RefreshSession is a no-op for it.
func NewWithService(service *drive.Service) *Client {
	return &Client{service: service}
}

func newService(ctx context.Context, cfg *appConfig.Config, transport http.RoundTripper) (*drive.Service, error) {
	// Token refreshes must go through the proxy too and outlive the caller.
	tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, &http.Client{Transport: transport})

	source, err := tokenSource(tokenCtx, cfg)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: source, Base: transport},
	}
	service, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return service, nil
}

func tokenSource(ctx context.Context, cfg *appConfig.Config) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var key struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	if key.Type == "service_account" {
		creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveScope)
		if err != nil {
			return nil, fmt.Errorf("failed to load service account: %w", err)
		}
		return creds.TokenSource, nil
	}

	oauthConfig, err := google.ConfigFromJSON(data, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client: %w", err)
	}
	if cfg.TokenFile == "" {
		return nil, fmt.Errorf("DRIVE_TOKEN_FILE is required for OAuth client credentials")
	}
	token, err := readToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	return oauthConfig.TokenSource(ctx, token), nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return token, nil
}

func (c *Client) files() *drive.FilesService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.service.Files
}

// RefreshSession re-reads the credentials and builds a new service.
func (c *Client) RefreshSession(ctx context.Context) error {
	if c.connect == nil {
		return nil
	}
	service, err := c.connect(ctx)
	if err != nil {
		return &remote.RemoteError{Op: "refresh", Err: err}
	}
	c.mu.Lock()
	c.service = service
	c.mu.Unlock()
	return nil
}

func (c *Client) SearchFolder(ctx context.Context, name string) (models.Object, error) {
	objects, err := c.query(ctx, searchQuery(name, models.FolderMimeType), 1)
	if err != nil {
		return models.Object{}, wrapErr("search", name, err)
	}
	return remote.First(objects, "folder", name, "")
}

func (c *Client) SearchFile(ctx context.Context, name, mimeType string) (models.Object, error) {
	objects, err := c.query(ctx, searchQuery(name, mimeType), 1)
	if err != nil {
		return models.Object{}, wrapErr("search", name, err)
	}
	return remote.First(objects, "file", name, mimeType)
}

func (c *Client) ListChildren(ctx context.Context, folderID string, kind remote.Kind) ([]models.Object, error) {
	objects, err := c.query(ctx, childrenQuery(folderID, kind), 0)
	if err != nil {
		return nil, wrapErr("list", folderID, err)
	}
	return objects, nil
}

func (c *Client) FetchContent(ctx context.Context, id, localPath string) error {
	resp, err := c.files().Get(id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return &remote.TransferError{ID: id, Err: statusErr(err)}
	}
	defer resp.Body.Close()

	return remote.WriteFile(id, localPath, resp.Body)
}

// DeleteObject permanently deletes the file or folder, skipping the trash.
func (c *Client) DeleteObject(ctx context.Context, id string) error {
	if err := c.files().Delete(id).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
		return wrapErr("delete", id, err)
	}
	return nil
}

// query returns every match, or at most limit when limit > 0.
func (c *Client) query(ctx context.Context, q string, limit int) ([]models.Object, error) {
	call := c.files().List().
		Q(q).
		Fields(listFields).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)
	if limit > 0 {
		call = call.PageSize(int64(limit))
	}

	var objects []models.Object
	errDone := errors.New("done")
	err := call.Pages(ctx, func(list *drive.FileList) error {
		for _, f := range list.Files {
			objects = append(objects, models.Object{ID: f.Id, Title: f.Name, MimeType: f.MimeType})
			if limit > 0 && len(objects) >= limit {
				return errDone
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDone) {
		return nil, err
	}
	return objects, nil
}

func searchQuery(name, mimeType string) string {
	q := fmt.Sprintf("name contains '%s' and trashed = false", escape(name))
	if mimeType != "" {
		q += fmt.Sprintf(" and mimeType = '%s'", escape(mimeType))
	}
	return q
}

func childrenQuery(folderID string, kind remote.Kind) string {
	op := "!="
	if kind == remote.KindFolder {
		op = "="
	}
	return fmt.Sprintf("'%s' in parents and trashed = false and mimeType %s '%s'",
		escape(folderID), op, models.FolderMimeType)
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escape(s string) string {
	return queryEscaper.Replace(s)
}

func statusErr(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", http.StatusText(apiErr.Code), err)
	}
	return err
}

func wrapErr(op, id string, err error) error {
	return &remote.RemoteError{Op: op, ID: id, Err: statusErr(err)}
}
