package conversation

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/sidechat/pkg/store"
)

const (
	keyConversations       = "conversations"
	keyActiveConversation  = "activeConversation"
	keyWebsiteInfoPrefix   = "websiteInfo_"
	defaultEvictionTrigger = 0.8
	defaultEvictionShare   = 0.2
)

// record is the stored shape of a conversation; the id lives in the map key.
type record struct {
	Messages    []Message `json:"messages"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Repository implements conversation CRUD over the persistent store's single
// conversations map. Every upsert runs the quota-eviction check synchronously
// before returning, so a successful write never leaves the store over quota.
type Repository struct {
	store store.Store

	// evictionTrigger is the fraction of quota above which eviction runs;
	// evictionShare is the fraction of conversations removed per run.
	evictionTrigger float64
	evictionShare   float64

	now func() time.Time
}

type RepositoryOption func(*Repository)

func WithEvictionTrigger(trigger float64) RepositoryOption {
	return func(r *Repository) {
		r.evictionTrigger = trigger
	}
}

func WithEvictionShare(share float64) RepositoryOption {
	return func(r *Repository) {
		r.evictionShare = share
	}
}

func WithNowFunc(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		r.now = now
	}
}

func NewRepository(s store.Store, options ...RepositoryOption) *Repository {
	ret := &Repository{
		store:           s,
		evictionTrigger: defaultEvictionTrigger,
		evictionShare:   defaultEvictionShare,
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// GetAll returns every stored conversation keyed by id. An absent
// conversations key yields an empty map, not an error.
func (r *Repository) GetAll() (map[string]Conversation, error) {
	records, err := r.loadRecords()
	if err != nil {
		return nil, err
	}

	ret := make(map[string]Conversation, len(records))
	for id, rec := range records {
		ret[id] = Conversation{
			ID:          id,
			Messages:    rec.Messages,
			LastUpdated: rec.LastUpdated,
		}
	}
	return ret, nil
}

// Get returns the conversation with the given id, or store.ErrNotFound.
func (r *Repository) Get(id string) (Conversation, error) {
	convs, err := r.GetAll()
	if err != nil {
		return Conversation{}, err
	}
	conv, ok := convs[id]
	if !ok {
		return Conversation{}, errors.Wrap(store.ErrNotFound, id)
	}
	return conv, nil
}

// Upsert creates or replaces the conversation by id, stamping LastUpdated
// with the current time, then runs the eviction check. Eviction failures are
// logged and swallowed so a quota problem never fails the write itself.
func (r *Repository) Upsert(conv Conversation) error {
	if conv.ID == "" {
		return errors.New("conversation id is empty")
	}

	records, err := r.loadRecords()
	if err != nil {
		return err
	}

	records[conv.ID] = record{
		Messages:    conv.Messages,
		LastUpdated: r.now(),
	}

	if err := r.store.Set(keyConversations, records); err != nil {
		return errors.Wrap(err, "set conversations")
	}

	if err := r.evictIfNeeded(records); err != nil {
		log.Warn().Err(err).Msg("conversation eviction failed")
	}
	return nil
}

// Delete removes the conversation and its cached website info. Deleting a
// missing id is a no-op.
func (r *Repository) Delete(id string) error {
	records, err := r.loadRecords()
	if err != nil {
		return err
	}

	delete(records, id)
	if err := r.store.Set(keyConversations, records); err != nil {
		return errors.Wrap(err, "set conversations")
	}
	return r.store.Delete(keyWebsiteInfoPrefix + id)
}

// loadRecords reads the conversations map; an absent key yields an empty map
// and a corrupt one is dropped rather than surfaced, so the caller recreates
// state instead of crashing on a malformed record.
func (r *Repository) loadRecords() (map[string]record, error) {
	records := map[string]record{}
	err := r.store.Get(keyConversations, &records)
	switch {
	case err == nil:
		return records, nil
	case errors.Is(err, store.ErrNotFound):
		return records, nil
	case errors.Is(err, store.ErrCorrupt):
		log.Warn().Err(err).Msg("dropping corrupt conversations record")
		return map[string]record{}, nil
	default:
		return nil, errors.Wrap(err, "get conversations")
	}
}

// ActiveID returns the persisted active-conversation pointer, or "" when the
// pointer is absent or unreadable.
func (r *Repository) ActiveID() (string, error) {
	var id string
	err := r.store.Get(keyActiveConversation, &id)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrCorrupt) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "get active conversation")
	}
	return id, nil
}

func (r *Repository) SetActiveID(id string) error {
	return errors.Wrap(r.store.Set(keyActiveConversation, id), "set active conversation")
}

// SetWebsiteInfo caches page metadata for a conversation, keyed separately
// from the conversation record so list rendering can fetch it cheaply.
func (r *Repository) SetWebsiteInfo(id string, info WebsiteInfo) error {
	return errors.Wrapf(r.store.Set(keyWebsiteInfoPrefix+id, info), "set website info for %s", id)
}

func (r *Repository) GetWebsiteInfo(id string) (WebsiteInfo, error) {
	var info WebsiteInfo
	err := r.store.Get(keyWebsiteInfoPrefix+id, &info)
	if err != nil {
		return WebsiteInfo{}, err
	}
	return info, nil
}

// evictIfNeeded removes the oldest conversations by LastUpdated when storage
// usage crosses the trigger fraction of quota. The policy is blind to the
// active conversation; the session controller recovers from a deleted active
// conversation on its next access.
func (r *Repository) evictIfNeeded(records map[string]record) error {
	bytesInUse, err := r.store.BytesInUse()
	if err != nil {
		return errors.Wrap(err, "bytes in use")
	}
	quota := r.store.Quota()
	if float64(bytesInUse) <= float64(quota)*r.evictionTrigger {
		return nil
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return records[ids[i]].LastUpdated.Before(records[ids[j]].LastUpdated)
	})

	removeCount := int(math.Ceil(float64(len(ids)) * r.evictionShare))
	for _, id := range ids[:removeCount] {
		delete(records, id)
		_ = r.store.Delete(keyWebsiteInfoPrefix + id)
	}

	log.Debug().
		Int("removed", removeCount).
		Int("remaining", len(records)).
		Int64("bytes_in_use", bytesInUse).
		Int64("quota", quota).
		Msg("evicted oldest conversations")

	return errors.Wrap(r.store.Set(keyConversations, records), "set conversations")
}
