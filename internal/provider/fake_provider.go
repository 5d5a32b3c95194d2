package provider

import (
	"context"

	"knowledgeagent/internal/models"
)

// FakeProvider is an in-memory Provider for indexer and chat tests. Zero
// value is usable; fields are read directly by tests to seed fixtures.
type FakeProvider struct {
	Documents  []models.KnowledgeDocument
	Content    map[string][]byte // keyed by KnowledgeDocument.ID
	Accessible map[string]bool   // keyed by KnowledgeDocument.ID, default false
	Pages      map[string][]PagePart
	SiteIDs    map[string]string // keyed by host+"/"+siteName
	Profiles   map[string]models.UserProfile // keyed by token

	SearchErr   error
	DownloadErr error
	ProfileErr  error
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Content:    make(map[string][]byte),
		Accessible: make(map[string]bool),
		Pages:      make(map[string][]PagePart),
		SiteIDs:    make(map[string]string),
	}
}

func (f *FakeProvider) Search(ctx context.Context, token string, req SearchRequest) ([]models.KnowledgeDocument, error) {
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	var out []models.KnowledgeDocument
	for _, d := range f.Documents {
		if req.SiteURL != "" && d.SiteURL != req.SiteURL {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *FakeProvider) DownloadBytes(ctx context.Context, token string, doc models.KnowledgeDocument) ([]byte, error) {
	if f.DownloadErr != nil {
		return nil, f.DownloadErr
	}
	return f.Content[doc.ID], nil
}

func (f *FakeProvider) ResolveSite(ctx context.Context, token, host, siteName string) (string, error) {
	return f.SiteIDs[host+"/"+siteName], nil
}

func (f *FakeProvider) GetPageContent(ctx context.Context, token, siteID, pageName string) ([]PagePart, error) {
	return f.Pages[siteID+"/"+pageName], nil
}

func (f *FakeProvider) GetAspxParts(ctx context.Context, token string, doc models.KnowledgeDocument) ([]PagePart, error) {
	host, siteName, pageName, err := splitPageWebURL(doc.WebURL)
	if err != nil {
		return nil, err
	}
	siteID, err := f.ResolveSite(ctx, token, host, siteName)
	if err != nil {
		return nil, err
	}
	return f.GetPageContent(ctx, token, siteID, pageName)
}

func (f *FakeProvider) GetUserProfile(ctx context.Context, token string) (models.UserProfile, error) {
	if f.ProfileErr != nil {
		return models.UserProfile{}, f.ProfileErr
	}
	return f.Profiles[token], nil
}

func (f *FakeProvider) ProbeAccess(ctx context.Context, token string, doc models.KnowledgeDocument) bool {
	return f.Accessible[doc.ID]
}
