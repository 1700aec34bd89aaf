package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dohr-michael/dbtsel/internal/events"
	"github.com/dohr-michael/dbtsel/internal/gateway/ws"
)

// handleRequest answers request frames sent over a session's websocket.
// Events it causes are attributed to the websocket source.
func (s *Server) handleRequest(ctx context.Context, sessionID string, method ws.Method, params json.RawMessage) (any, error) {
	ctx = events.ContextWithSource(events.ContextWithSessionID(ctx, sessionID), events.SourceWS)
	switch method {
	case ws.MethodListSelectors:
		return s.listSelectors(sessionID)
	case ws.MethodRenderSelectors:
		out, err := s.render(sessionID)
		if err != nil {
			return nil, err
		}
		return ws.RenderResult{YAML: string(out)}, nil
	case ws.MethodRemoveSelector:
		var p ws.RemoveParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		if p.Index == nil {
			return nil, fmt.Errorf("index is required")
		}
		return s.removeSelector(ctx, *p.Index)
	case ws.MethodResetSelectors:
		removed, err := s.resetSelectors(ctx)
		if err != nil {
			return nil, err
		}
		return ws.ResetResult{Removed: removed}, nil
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
}
