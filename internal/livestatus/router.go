package livestatus

import (
	"encoding/json"
	"fmt"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/tidwall/gjson"
)

// Router decodes push payloads and applies them to the store.
type Router struct {
	store  *Store
	logger domain.Logger
	onTask func(domain.TaskRecord)
}

// NewRouter creates a Router. onTask is called with every task record the
// router changed; it may be nil.
func NewRouter(store *Store, logger domain.Logger, onTask func(domain.TaskRecord)) *Router {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &Router{store: store, logger: logger, onTask: onTask}
}

// Route applies one payload. Malformed payloads are logged and dropped;
// unknown discriminants are ignored. Route never panics on input.
func (r *Router) Route(payload []byte) {
	if !gjson.ValidBytes(payload) {
		r.drop(payload, "invalid JSON")
		return
	}

	typ := gjson.GetBytes(payload, "type")
	switch MessageType(typ.String()) {
	case MsgQueueStatus:
		var m QueueStatusMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			r.drop(payload, err.Error())
			return
		}
		r.store.SetQueue(m.QueueStatus())

	case MsgTaskStatus:
		var m TaskStatusMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			r.drop(payload, err.Error())
			return
		}
		if m.TaskID == "" {
			r.drop(payload, domain.ErrEmptyTaskID.Error())
			return
		}
		if !m.Status.IsValid() {
			r.drop(payload, fmt.Sprintf("%s: %q", domain.ErrInvalidStatus, m.Status))
			return
		}
		rec, applied := r.store.UpsertFromPush(m.Update())
		if !applied {
			r.logger.Debug(m.TaskID, "router", fmt.Sprintf("stale update dropped (revision %d < %d)", m.Revision, rec.Revision))
			return
		}
		if r.onTask != nil {
			r.onTask(rec)
		}

	default:
		if !typ.Exists() {
			r.logger.Debug("", "router", "payload without type ignored")
			return
		}
		r.logger.Debug("", "router", fmt.Sprintf("unknown message type %q ignored", typ.String()))
	}
}

func (r *Router) drop(payload []byte, reason string) {
	const maxEcho = 200
	s := string(payload)
	if len(s) > maxEcho {
		s = s[:maxEcho] + "..."
	}
	r.logger.Warn("", "router", fmt.Sprintf("%s: %s: %s", domain.ErrMalformedPayload, reason, s))
}
