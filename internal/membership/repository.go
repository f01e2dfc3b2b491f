package membership

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fkhayef/cinecircle/internal/metrics"
)

// HintTTL is the age ceiling after which a cached membership hint is treated
// as absent and deleted.
const HintTTL = 24 * time.Hour

// hintKey is the namespaced key template over (groupID, userID)
const hintKeyFormat = "cinecircle:membership:%d:%d"

// hintPayload is the persisted value layout
type hintPayload struct {
	Value     Role  `json:"value"`
	Timestamp int64 `json:"timestamp"` // unix milliseconds
}

// Repository persists membership hints: time-boxed local evidence written on
// optimistic transitions, used only to bridge gaps before the server
// confirms. Every operation is best-effort; storage failures degrade to
// "no cache" and are never surfaced to callers.
type Repository struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// NewRepository creates a new hint repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:  db,
		log: slog.Default().With("component", "membership_hints"),
		now: time.Now,
	}
}

func hintKey(groupID, userID int64) string {
	return fmt.Sprintf(hintKeyFormat, groupID, userID)
}

// Set records a hint for the (group, user) pair. Only pending and member are
// meaningful hint values; anything else clears the entry.
func (r *Repository) Set(groupID, userID int64, value Role) {
	if r == nil || r.db == nil {
		return
	}
	if value != RolePending && value != RoleMember {
		r.Clear(groupID, userID)
		return
	}

	payload, err := json.Marshal(hintPayload{
		Value:     value,
		Timestamp: r.now().UnixMilli(),
	})
	if err != nil {
		return
	}

	_, err = r.db.Exec(
		`INSERT INTO membership_hints (key, payload) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`,
		hintKey(groupID, userID), string(payload),
	)
	if err != nil {
		r.log.Warn("failed to write membership hint", "group_id", groupID, "error", err)
	}
}

// Get returns the hint for the (group, user) pair, or RoleVisitor when none
// exists. Entries older than maxAge are deleted and reported as absent.
func (r *Repository) Get(groupID, userID int64, maxAge time.Duration) Role {
	if r == nil || r.db == nil {
		return RoleVisitor
	}
	if maxAge <= 0 {
		maxAge = HintTTL
	}

	var raw string
	err := r.db.QueryRow(
		`SELECT payload FROM membership_hints WHERE key = ?`,
		hintKey(groupID, userID),
	).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			r.log.Warn("failed to read membership hint", "group_id", groupID, "error", err)
		}
		metrics.CacheMissesTotal.Inc()
		return RoleVisitor
	}

	var payload hintPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		r.Clear(groupID, userID)
		metrics.CacheMissesTotal.Inc()
		return RoleVisitor
	}

	// compare at the stored millisecond granularity so a read at exactly
	// write-time+TTL still counts as inside the window
	if r.now().UnixMilli()-payload.Timestamp > maxAge.Milliseconds() {
		r.Clear(groupID, userID)
		metrics.CacheMissesTotal.Inc()
		return RoleVisitor
	}

	if payload.Value != RolePending && payload.Value != RoleMember {
		r.Clear(groupID, userID)
		metrics.CacheMissesTotal.Inc()
		return RoleVisitor
	}

	metrics.CacheHitsTotal.Inc()
	return payload.Value
}

// Clear removes the hint for the (group, user) pair
func (r *Repository) Clear(groupID, userID int64) {
	if r == nil || r.db == nil {
		return
	}
	_, err := r.db.Exec(
		`DELETE FROM membership_hints WHERE key = ?`,
		hintKey(groupID, userID),
	)
	if err != nil {
		r.log.Warn("failed to clear membership hint", "group_id", groupID, "error", err)
	}
}
