package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"mergington/signup/internal/model"
)

type AuthClient struct {
	t *transport
}

type LoginResult struct {
	Token   string
	Teacher model.Teacher
}

type loginResponse struct {
	Message     string `json:"message"`
	Token       string `json:"token"`
	TeacherName string `json:"teacher_name"`
}

type meResponse struct {
	Authenticated bool   `json:"authenticated"`
	TeacherName   string `json:"teacher_name"`
	Username      string `json:"username"`
}

type MeResult struct {
	Authenticated bool
	Teacher       model.Teacher
}

func (c *AuthClient) Login(ctx context.Context, username, password string) (LoginResult, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var resp loginResponse
	err := c.t.do(ctx, request{
		endpoint:    "login",
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &resp)
	if err != nil {
		return LoginResult{}, err
	}
	if resp.Token == "" {
		return LoginResult{}, fmt.Errorf("%w: login: response missing token", ErrTransport)
	}
	return LoginResult{
		Token:   resp.Token,
		Teacher: model.Teacher{Name: resp.TeacherName, Username: username},
	}, nil
}

func (c *AuthClient) Logout(ctx context.Context, token string) error {
	return c.t.do(ctx, request{
		endpoint: "logout",
		method:   http.MethodPost,
		path:     "/auth/logout",
		token:    token,
	}, nil)
}

func (c *AuthClient) Me(ctx context.Context, token string) (MeResult, error) {
	var resp meResponse
	err := c.t.do(ctx, request{
		endpoint: "me",
		method:   http.MethodGet,
		path:     "/auth/me",
		token:    token,
	}, &resp)
	if err != nil {
		return MeResult{}, err
	}
	return MeResult{
		Authenticated: resp.Authenticated,
		Teacher:       model.Teacher{Name: resp.TeacherName, Username: resp.Username},
	}, nil
}
