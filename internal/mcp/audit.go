package mcp

import (
	"time"
)

// auditTool records one tool invocation as a tool_call event. Parameters
// are plain simulation settings; nothing in them is sensitive.
func (s *Server) auditTool(toolName, callID string, start time.Time, err error, params map[string]any) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}

	fields := map[string]any{
		"tool":        toolName,
		"duration_ms": time.Since(start).Milliseconds(),
		"status":      status,
		"params":      params,
	}
	if callID != "" {
		fields["call_id"] = callID
	}
	if errMsg != "" {
		fields["error"] = errMsg
	}
	s.events.Log("tool_call", fields)

	if err != nil {
		s.logger.Warn("tool call failed", "tool", toolName, "error", err)
	} else {
		s.logger.Debug("tool call", "tool", toolName, "duration", time.Since(start))
	}
}
