package downloader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"drivemanager/internal/models"
	"drivemanager/internal/remote"
)

type fakeNode struct {
	obj     models.Object
	parent  string
	content string
	trashed bool
}

// fakeClient is an in-memory remote.Client that records every call.
type fakeClient struct {
	mu     sync.Mutex
	nodes  []fakeNode
	events []string

	fetchErrs  map[string][]error // consumed one per call
	deleteErrs map[string]error
	listErrs   map[string]error
	refreshErr error

	fetchDelay  time.Duration
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		fetchErrs:  map[string][]error{},
		deleteErrs: map[string]error{},
		listErrs:   map[string]error{},
	}
}

func (f *fakeClient) addFolder(id, title, parent string) *fakeClient {
	f.nodes = append(f.nodes, fakeNode{
		obj:    models.Object{ID: id, Title: title, MimeType: models.FolderMimeType},
		parent: parent,
	})
	return f
}

func (f *fakeClient) addFile(id, title, parent, content string) *fakeClient {
	f.nodes = append(f.nodes, fakeNode{
		obj:     models.Object{ID: id, Title: title, MimeType: "application/pdf"},
		parent:  parent,
		content: content,
	})
	return f
}

func (f *fakeClient) record(event string) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

func (f *fakeClient) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeClient) withPrefix(prefix string) []string {
	var out []string
	for _, e := range f.Events() {
		if strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeClient) count(prefix string) int {
	return len(f.withPrefix(prefix))
}

func (f *fakeClient) SearchFolder(ctx context.Context, name string) (models.Object, error) {
	f.record("search-folder:" + name)
	var matches []models.Object
	for _, n := range f.nodes {
		if !n.trashed && n.obj.IsFolder() && strings.Contains(n.obj.Title, name) {
			matches = append(matches, n.obj)
		}
	}
	return remote.First(matches, "folder", name, "")
}

func (f *fakeClient) SearchFile(ctx context.Context, name, mimeType string) (models.Object, error) {
	f.record("search-file:" + name)
	var matches []models.Object
	for _, n := range f.nodes {
		if n.trashed || !strings.Contains(n.obj.Title, name) {
			continue
		}
		if mimeType != "" && n.obj.MimeType != mimeType {
			continue
		}
		matches = append(matches, n.obj)
	}
	return remote.First(matches, "file", name, mimeType)
}

func (f *fakeClient) ListChildren(ctx context.Context, folderID string, kind remote.Kind) ([]models.Object, error) {
	f.record(fmt.Sprintf("list:%s:%s", folderID, kind))
	if err := f.listErrs[folderID]; err != nil {
		return nil, &remote.RemoteError{Op: "list", ID: folderID, Err: err}
	}
	var out []models.Object
	for _, n := range f.nodes {
		if n.trashed || n.parent != folderID {
			continue
		}
		if n.obj.IsFolder() == (kind == remote.KindFolder) {
			out = append(out, n.obj)
		}
	}
	return out, nil
}

func (f *fakeClient) FetchContent(ctx context.Context, id, localPath string) error {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxInFlight.Load()
		if cur <= prev || f.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	f.record("fetch:" + id)
	if f.fetchDelay > 0 {
		select {
		case <-time.After(f.fetchDelay):
		case <-ctx.Done():
			return &remote.TransferError{ID: id, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	if errs := f.fetchErrs[id]; len(errs) > 0 {
		err := errs[0]
		f.fetchErrs[id] = errs[1:]
		f.mu.Unlock()
		return &remote.TransferError{ID: id, Err: err}
	}
	f.mu.Unlock()

	for _, n := range f.nodes {
		if n.obj.ID == id {
			return remote.WriteFile(id, localPath, strings.NewReader(n.content))
		}
	}
	return &remote.TransferError{ID: id, Err: fmt.Errorf("no such object")}
}

func (f *fakeClient) DeleteObject(ctx context.Context, id string) error {
	f.record("delete:" + id)
	if err := f.deleteErrs[id]; err != nil {
		return &remote.RemoteError{Op: "delete", ID: id, Err: err}
	}
	return nil
}

func (f *fakeClient) RefreshSession(ctx context.Context) error {
	f.record("refresh")
	if f.refreshErr != nil {
		return &remote.RemoteError{Op: "refresh", Err: f.refreshErr}
	}
	return nil
}
