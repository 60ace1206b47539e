package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/tablecfg/internal/core"
	"github.com/JonMunkholm/tablecfg/internal/web/middleware"
)

// withRequestMetadata carries the client address into run logs.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClientIP(ctx, middleware.ClientIP(r))
}
