package manager

import (
	"time"

	"nlpd/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	resp := m.w.Status()
	resp.Sessions = m.Sessions()
	resp.UptimeSeconds = int64(time.Since(m.startTime).Seconds())
	resp.ServerTimeUnix = time.Now().Unix()
	return resp
}
