package clients

import (
	"context"
	"net/http"
	"net/url"

	"mergington/signup/internal/model"
)

type ActivityClient struct {
	t *transport
}

type messageResponse struct {
	Message string `json:"message"`
}

func (c *ActivityClient) ListActivities(ctx context.Context) (model.Catalog, error) {
	var catalog model.Catalog
	err := c.t.do(ctx, request{
		endpoint: "list_activities",
		method:   http.MethodGet,
		path:     "/activities",
	}, &catalog)
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

// Signup is open to any visitor and never carries a token.
func (c *ActivityClient) Signup(ctx context.Context, activity, email string) (string, error) {
	var resp messageResponse
	err := c.t.do(ctx, request{
		endpoint: "signup",
		method:   http.MethodPost,
		path:     activityPath(activity, "signup"),
		query:    url.Values{"email": []string{email}},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *ActivityClient) Unregister(ctx context.Context, activity, email, token string) (string, error) {
	var resp messageResponse
	err := c.t.do(ctx, request{
		endpoint: "unregister",
		method:   http.MethodDelete,
		path:     activityPath(activity, "unregister"),
		query:    url.Values{"email": []string{email}},
		token:    token,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}
