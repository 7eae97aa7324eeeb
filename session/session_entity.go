package session

import (
	"context"
	"time"

	"github.com/fundwit/go-commons/types"
)

type Identity struct {
	ID          types.ID `json:"id"`
	Name        string   `json:"name"`
	Nickname    string   `json:"nickname"`
	IsSuperuser bool     `json:"superuser"`
}

type Session struct {
	Token       string   `json:"token"`
	Identity    Identity `json:"identity"`
	SigningTime time.Time `json:"-"`

	Context context.Context `json:"-"`
}

func (s Session) Clone() Session {
	return Session{Token: s.Token, Identity: s.Identity, SigningTime: s.SigningTime, Context: s.Context}
}

type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}
