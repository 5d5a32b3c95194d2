package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"knowledgeagent/internal/models"
)

type meWireResponse struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	JobTitle          string `json:"jobTitle"`
	Department        string `json:"department"`
	CompanyName       string `json:"companyName"`
	OfficeLocation    string `json:"officeLocation"`
}

type managerWireResponse struct {
	DisplayName string `json:"displayName"`
}

// GetUserProfile fetches the delegated user's own directory profile under
// their own credential (Graph's /me, rather than an app-only lookup), per
// §4.7's "fetched with their credential" requirement. The manager field is
// best-effort: a user with no manager, or no permission to read one, still
// gets the rest of the profile back.
func (c *Client) GetUserProfile(ctx context.Context, token string) (models.UserProfile, error) {
	result, err := c.do(ctx, "getUserProfile", func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("get user profile transport error: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("get user profile returned status %d", resp.StatusCode)
		}

		var wireResp meWireResponse
		if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
			return nil, fmt.Errorf("get user profile: decode response: %w", err)
		}
		return wireResp, nil
	})
	if err != nil {
		return models.UserProfile{}, err
	}

	wireResp := result.(meWireResponse)
	email := wireResp.Mail
	if email == "" {
		email = wireResp.UserPrincipalName
	}

	profile := models.UserProfile{
		ID:             wireResp.ID,
		Name:           wireResp.DisplayName,
		Email:          email,
		JobTitle:       wireResp.JobTitle,
		Department:     wireResp.Department,
		CompanyName:    wireResp.CompanyName,
		OfficeLocation: wireResp.OfficeLocation,
	}
	profile.Manager = c.fetchManagerName(ctx, token)
	return profile, nil
}

// fetchManagerName is a best-effort lookup: any failure (no manager, no
// permission, transport error) just leaves the profile's manager field empty.
func (c *Client) fetchManagerName(ctx context.Context, token string) string {
	result, err := c.do(ctx, "getUserManager", func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me/manager", nil)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("get user manager transport error: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("get user manager returned status %d", resp.StatusCode)
		}

		var wireResp managerWireResponse
		if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
			return nil, fmt.Errorf("get user manager: decode response: %w", err)
		}
		return wireResp.DisplayName, nil
	})
	if err != nil {
		return ""
	}
	return result.(string)
}
