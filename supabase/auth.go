package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/escolabr/escola/auth"
	"github.com/escolabr/escola/core"
	"github.com/escolabr/escola/store"
)

// Provider is an auth.IdentityProvider backed by GoTrue. Identity management
// goes through the admin API with the service key; the actor's display name
// and role are resolved from the profiles table.
type Provider struct {
	baseURL string
	anonKey string
	apiKey  string
	client  *Client

	mu      sync.RWMutex
	current auth.Actor
	events  chan auth.SessionEvent
}

var _ auth.IdentityProvider = (*Provider)(nil) // interface compliance check

func NewProvider(conf *core.Config, client *Client) *Provider {
	return &Provider{
		baseURL: strings.TrimRight(conf.Supabase.URL, "/"),
		anonKey: conf.Supabase.AnonKey,
		apiKey:  conf.Supabase.ServiceKey,
		client:  client,
		events:  make(chan auth.SessionEvent, 8),
	}
}

func (p *Provider) send(method rest.Method, path, key string, params map[string]string, body interface{}) ([]byte, error) {
	req := rest.Request{
		Method:  method,
		BaseURL: p.baseURL + "/auth/v1" + path,
		Headers: map[string]string{
			"apikey":        key,
			"Authorization": "Bearer " + key,
			"Content-Type":  "application/json",
		},
		QueryParams: params,
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		req.Body = data
	}

	res, err := sendFunc(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s auth%s", method, path)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, errors.Errorf("%s auth%s: status %d: %s", method, path, res.StatusCode, res.Body)
	}
	return []byte(res.Body), nil
}

func (p *Provider) SignIn(ctx context.Context, email, secret string) (auth.Actor, error) {
	body := map[string]string{"email": core.CleanString(email, true /* lower */), "password": secret}
	data, err := p.send(rest.Post, "/token", p.anonKey, map[string]string{"grant_type": "password"}, body)
	if err != nil {
		return auth.Actor{}, auth.ErrBadCredentials
	}

	var session struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err = json.Unmarshal(data, &session); err != nil {
		return auth.Actor{}, errors.Wrap(err, "decoding session")
	}

	actor, err := p.resolveActor(ctx, session.User.ID, session.User.Email)
	if err != nil {
		return auth.Actor{}, err
	}

	p.mu.Lock()
	p.current = actor
	p.notify(auth.SessionEvent{Kind: auth.SignedIn, Actor: actor})
	p.mu.Unlock()
	return actor, nil
}

// resolveActor joins the identity against its profile record for name/role.
func (p *Provider) resolveActor(ctx context.Context, id, email string) (auth.Actor, error) {
	actor := auth.Actor{ID: id, Email: email, Role: auth.RoleTeacher}
	rows, err := p.client.Select(ctx, store.TableProfiles, store.Eq("id", id))
	if err != nil {
		return auth.Actor{}, errors.Wrap(err, "resolving actor profile")
	}
	if len(rows) > 0 {
		actor.Name = rows[0].String("name")
		actor.Role = rows[0].String("role")
	}
	return actor, nil
}

func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = auth.Actor{}
	p.notify(auth.SessionEvent{Kind: auth.SignedOut})
	return nil
}

func (p *Provider) CurrentActor(_ context.Context) (auth.Actor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.current.IsZero() {
		return auth.Actor{}, auth.ErrNoSession
	}
	return p.current, nil
}

func (p *Provider) CreateIdentity(_ context.Context, email, secret string) (string, error) {
	body := map[string]interface{}{
		"email":         core.CleanString(email, true),
		"password":      secret,
		"email_confirm": true,
	}
	data, err := p.send(rest.Post, "/admin/users", p.apiKey, nil, body)
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err = json.Unmarshal(data, &created); err != nil {
		return "", errors.Wrap(err, "decoding created identity")
	}
	return created.ID, nil
}

func (p *Provider) ResetSecret(ctx context.Context, email, secret string) error {
	rows, err := p.client.Select(ctx, store.TableProfiles, store.Eq("email", core.CleanString(email, true)))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return auth.ErrNotFound
	}
	_, err = p.send(rest.Put, "/admin/users/"+rows[0].String("id"), p.apiKey, nil, map[string]string{"password": secret})
	return err
}

func (p *Provider) Events() <-chan auth.SessionEvent {
	return p.events
}

// notify drops events when no one is draining the channel; session
// notifications are best effort.
func (p *Provider) notify(evt auth.SessionEvent) {
	select {
	case p.events <- evt:
	default:
	}
}
