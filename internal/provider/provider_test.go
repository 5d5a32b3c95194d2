package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgeagent/internal/config"
	"knowledgeagent/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	cfg := &config.Config{SharePointGeo: "US"}
	c := NewClient(cfg, nil, nil)
	c.baseURL = server.URL
	return c, server
}

func TestProbeAccess_Forbidden(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	defer server.Close()

	doc := models.KnowledgeDocument{DriveID: "d1", DriveItemID: "i1"}
	assert.False(t, c.ProbeAccess(context.Background(), "token", doc))
}

func TestProbeAccess_NotFound(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	doc := models.KnowledgeDocument{DriveID: "d1", DriveItemID: "i1"}
	assert.False(t, c.ProbeAccess(context.Background(), "token", doc))
}

func TestProbeAccess_ServerError(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	doc := models.KnowledgeDocument{DriveID: "d1", DriveItemID: "i1"}
	assert.False(t, c.ProbeAccess(context.Background(), "token", doc))
}

func TestProbeAccess_Timeout(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()
	c.httpClient.Timeout = 1 * time.Millisecond

	doc := models.KnowledgeDocument{DriveID: "d1", DriveItemID: "i1"}
	assert.False(t, c.ProbeAccess(context.Background(), "token", doc))
}

func TestProbeAccess_MalformedWebURL(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	doc := models.KnowledgeDocument{WebURL: "not-a-url"}
	assert.False(t, c.ProbeAccess(context.Background(), "token", doc))
}

func TestProbeAccess_Success(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	doc := models.KnowledgeDocument{DriveID: "d1", DriveItemID: "i1"}
	assert.True(t, c.ProbeAccess(context.Background(), "token", doc))
}

func TestInferFileType_ExtensionFirst(t *testing.T) {
	assert.Equal(t, models.FileTypePDF, inferFileType("report.pdf", nil))
	assert.Equal(t, models.FileTypeDocx, inferFileType("report.docx", nil))
}

func TestInferFileType_ContentSniffFallback(t *testing.T) {
	pdfMagic := []byte("%PDF-1.4\n")
	assert.Equal(t, models.FileTypePDF, inferFileType("report", pdfMagic))
}

func TestInferFileType_UnknownWithoutContent(t *testing.T) {
	assert.Equal(t, models.FileTypeUnknown, inferFileType("report", nil))
}

func TestSplitWebURL(t *testing.T) {
	host, path, err := splitWebURL("https://contoso.sharepoint.com/sites/teamsite/Shared Documents/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "contoso.sharepoint.com", host)
	assert.Equal(t, "/sites/teamsite/Shared Documents/doc.pdf", path)
}

func TestSplitWebURL_Malformed(t *testing.T) {
	_, _, err := splitWebURL("ftp://contoso.com/doc.pdf")
	assert.Error(t, err)
}

func TestGetUserProfile_DecodesProfileAndManager(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me":
			w.Write([]byte(`{"id":"u1","displayName":"Ada Lovelace","mail":"ada@example.com","jobTitle":"Engineer","department":"R&D","companyName":"Contoso","officeLocation":"Seattle"}`))
		case "/me/manager":
			w.Write([]byte(`{"displayName":"Grace Hopper"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer server.Close()

	profile, err := c.GetUserProfile(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", profile.Name)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.Equal(t, "Engineer", profile.JobTitle)
	assert.Equal(t, "Grace Hopper", profile.Manager)
}

func TestGetUserProfile_FallsBackToUserPrincipalNameForEmail(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/me" {
			w.Write([]byte(`{"id":"u1","displayName":"Ada","userPrincipalName":"ada@contoso.onmicrosoft.com"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	profile, err := c.GetUserProfile(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "ada@contoso.onmicrosoft.com", profile.Email)
}

func TestGetUserProfile_NoManagerLeavesFieldEmptyWithoutFailing(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/me" {
			w.Write([]byte(`{"id":"u1","displayName":"Ada","mail":"ada@example.com"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	profile, err := c.GetUserProfile(context.Background(), "token")
	require.NoError(t, err)
	assert.Empty(t, profile.Manager)
}

func TestGetUserProfile_ErrorStatusPropagates(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer server.Close()

	_, err := c.GetUserProfile(context.Background(), "token")
	assert.Error(t, err)
}
