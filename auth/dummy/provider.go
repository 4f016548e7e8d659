package dummyauth

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/escolabr/escola/auth"
	"github.com/escolabr/escola/core"
)

type identity struct {
	actor      auth.Actor
	secretHash []byte
}

// Provider is an in-memory auth.IdentityProvider for tests and local development.
type Provider struct {
	mu         sync.RWMutex
	identities map[string]*identity // by email
	current    auth.Actor
	events     chan auth.SessionEvent
}

var _ auth.IdentityProvider = (*Provider)(nil) // interface compliance check

func Open() *Provider {
	return &Provider{
		identities: make(map[string]*identity),
		events:     make(chan auth.SessionEvent, 8),
	}
}

// Seed registers an identity with a known actor, for fixtures and dev setup.
func (p *Provider) Seed(actor auth.Actor, secret string) (auth.Actor, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		return auth.Actor{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if actor.ID == "" {
		actor.ID = uuid.New().String()
	}
	actor.Email = core.CleanString(actor.Email, true /* lower */)
	p.identities[actor.Email] = &identity{actor: actor, secretHash: hash}
	return actor, nil
}

func (p *Provider) SignIn(_ context.Context, email, secret string) (auth.Actor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ident, ok := p.identities[core.CleanString(email, true)]
	if !ok {
		return auth.Actor{}, auth.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(ident.secretHash, []byte(secret)); err != nil {
		return auth.Actor{}, auth.ErrBadCredentials
	}
	p.current = ident.actor
	p.notify(auth.SessionEvent{Kind: auth.SignedIn, Actor: ident.actor})
	return ident.actor, nil
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
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	email = core.CleanString(email, true)
	if _, exists := p.identities[email]; exists {
		return "", auth.ErrEmailExists
	}
	id := uuid.New().String()
	p.identities[email] = &identity{
		actor:      auth.Actor{ID: id, Email: email, Role: auth.RoleTeacher},
		secretHash: hash,
	}
	return id, nil
}

func (p *Provider) ResetSecret(_ context.Context, email, secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ident, ok := p.identities[core.CleanString(email, true)]
	if !ok {
		return auth.ErrNotFound
	}
	ident.secretHash = hash
	return nil
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
