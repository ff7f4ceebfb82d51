package graph

import (
	"context"
	"net/http"
	"net/url"

	"github.com/lborres/kontak/core"
)

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context, accessToken string) (*core.MicrosoftProfile, error) {
	var profile core.MicrosoftProfile
	if err := c.doJSON(ctx, http.MethodGet, "/me?$select=id,displayName,mail,userPrincipalName", accessToken, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// JoinedTeams lists the teams the signed-in user is a member of.
func (c *Client) JoinedTeams(ctx context.Context, accessToken string) ([]core.Team, error) {
	var resp struct {
		Value []core.Team `json:"value"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/me/joinedTeams", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// TeamSite returns the root site of the team's backing group.
func (c *Client) TeamSite(ctx context.Context, accessToken, teamID string) (*core.Site, error) {
	var site core.Site
	if err := c.doJSON(ctx, http.MethodGet, "/groups/"+url.PathEscape(teamID)+"/sites/root", accessToken, nil, &site); err != nil {
		return nil, err
	}
	return &site, nil
}
