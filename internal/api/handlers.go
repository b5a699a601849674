// Package api exposes the REST surface of the back office. Every route
// under /api runs behind JWT auth and is scoped to the caller's
// organization; the only public endpoints are health, login, registration,
// the lead capture form target, and the call webhook.
package api

import (
	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/cache"
	"github.com/lumenlocal/rankdesk/internal/keywords"
	"github.com/lumenlocal/rankdesk/internal/seoapi"
	"github.com/lumenlocal/rankdesk/internal/service/lead"
	"github.com/lumenlocal/rankdesk/internal/service/task"
	"github.com/lumenlocal/rankdesk/internal/service/website"
	"github.com/lumenlocal/rankdesk/internal/telephony"
	"github.com/lumenlocal/rankdesk/internal/video"
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	auth     *auth.Service
	websites *website.Service
	leads    *lead.Service
	tasks    *task.Service
	clients  ClientStore
	phones   *telephony.Service
	videos   *video.Service
	keywords *keywords.Service
	apiKeys  *seoapi.KeyService
	cache    *cache.Cache
}

// NewHandlers creates a Handlers instance.
func NewHandlers(
	authSvc *auth.Service,
	websites *website.Service,
	leads *lead.Service,
	tasks *task.Service,
	clients ClientStore,
	phones *telephony.Service,
	videos *video.Service,
	kw *keywords.Service,
	apiKeys *seoapi.KeyService,
	c *cache.Cache,
) *Handlers {
	return &Handlers{
		auth:     authSvc,
		websites: websites,
		leads:    leads,
		tasks:    tasks,
		clients:  clients,
		phones:   phones,
		videos:   videos,
		keywords: kw,
		apiKeys:  apiKeys,
		cache:    c,
	}
}
