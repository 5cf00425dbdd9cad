package handlers

import (
	"time"

	"media-gateway/internal/gateway"
	"media-gateway/internal/startup"
)

type Handlers struct {
	gateway   *gateway.Gateway
	tools     startup.ToolStatus
	startTime time.Time
}

func New(gw *gateway.Gateway, tools startup.ToolStatus) *Handlers {
	return &Handlers{
		gateway:   gw,
		tools:     tools,
		startTime: time.Now(),
	}
}
