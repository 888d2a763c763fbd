package service

import (
	"context"
	"sort"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"blocknotes/internal/client"
	"blocknotes/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// KB Service: the remote knowledge base as seen by the editor
// ─────────────────────────────────────────────────────────────

// Remote is the REST collaborator. *client.Client implements it.
type Remote interface {
	ListPages(ctx context.Context, parentID *domain.ID) ([]domain.Page, error)
	GetPage(ctx context.Context, id domain.ID) (*domain.Page, error)
	CreatePage(ctx context.Context, in domain.PageInput) (*domain.Page, error)
	UpdatePage(ctx context.Context, id domain.ID, patch domain.PagePatch) (*domain.Page, error)
	DeletePage(ctx context.Context, id domain.ID) error
	CreateBlock(ctx context.Context, pageID domain.ID, in domain.BlockInput) (*domain.Block, error)
	UpdateBlock(ctx context.Context, id domain.ID, patch domain.BlockPatch) (*domain.Block, error)
	DeleteBlock(ctx context.Context, id domain.ID) error
}

// RetryPolicy bounds the retries of idempotent calls.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// KBService wraps a Remote with normalization, logging and retry with
// exponential backoff. Creates are never retried: a lost response would
// otherwise duplicate the record.
type KBService struct {
	remote Remote
	policy RetryPolicy
	log    zerolog.Logger
}

// NewKBService creates a KBService. Attempts below 1 disable retries.
func NewKBService(remote Remote, policy RetryPolicy, log zerolog.Logger) *KBService {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &KBService{remote: remote, policy: policy, log: log}
}

// ListPages returns the page tree under parentID.
func (s *KBService) ListPages(ctx context.Context, parentID *domain.ID) ([]domain.Page, error) {
	return retryData(ctx, s, client.OpListPages, func() ([]domain.Page, error) {
		return s.remote.ListPages(ctx, parentID)
	})
}

// GetPage returns a page with normalized, position-sorted blocks.
func (s *KBService) GetPage(ctx context.Context, id domain.ID) (*domain.Page, error) {
	page, err := retryData(ctx, s, client.OpGetPage, func() (*domain.Page, error) {
		return s.remote.GetPage(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	page.Blocks = domain.NormalizeBlocks(page.Blocks)
	sort.SliceStable(page.Blocks, func(i, j int) bool { return page.Blocks[i].Position < page.Blocks[j].Position })
	return page, nil
}

// CreatePage creates a page under parentID (root when nil).
func (s *KBService) CreatePage(ctx context.Context, in domain.PageInput) (*domain.Page, error) {
	page, err := s.remote.CreatePage(ctx, in)
	if err != nil {
		s.log.Error().Err(err).Str("op", string(client.OpCreatePage)).Msg("remote call failed")
		return nil, err
	}
	return page, nil
}

// UpdatePage patches title, icon or parent.
func (s *KBService) UpdatePage(ctx context.Context, id domain.ID, patch domain.PagePatch) (*domain.Page, error) {
	return retryData(ctx, s, client.OpUpdatePage, func() (*domain.Page, error) {
		return s.remote.UpdatePage(ctx, id, patch)
	})
}

// DeletePage removes a page.
func (s *KBService) DeletePage(ctx context.Context, id domain.ID) error {
	_, err := retryData(ctx, s, client.OpDeletePage, func() (struct{}, error) {
		return struct{}{}, s.remote.DeletePage(ctx, id)
	})
	return err
}

// CreateBlock adds a block and returns it normalized.
func (s *KBService) CreateBlock(ctx context.Context, pageID domain.ID, in domain.BlockInput) (*domain.Block, error) {
	b, err := s.remote.CreateBlock(ctx, pageID, in)
	if err != nil {
		s.log.Error().Err(err).Str("op", string(client.OpCreateBlock)).Str("pageId", pageID.String()).Msg("remote call failed")
		return nil, err
	}
	nb := domain.NormalizeBlock(*b)
	return &nb, nil
}

// UpdateBlock patches a block and returns the normalized server record.
func (s *KBService) UpdateBlock(ctx context.Context, id domain.ID, patch domain.BlockPatch) (*domain.Block, error) {
	b, err := retryData(ctx, s, client.OpUpdateBlock, func() (*domain.Block, error) {
		return s.remote.UpdateBlock(ctx, id, patch)
	})
	if err != nil {
		return nil, err
	}
	nb := domain.NormalizeBlock(*b)
	return &nb, nil
}

// DeleteBlock removes a block.
func (s *KBService) DeleteBlock(ctx context.Context, id domain.ID) error {
	_, err := retryData(ctx, s, client.OpDeleteBlock, func() (struct{}, error) {
		return struct{}{}, s.remote.DeleteBlock(ctx, id)
	})
	return err
}

// ── helpers ────────────────────────────────────────────────

func retryData[T any](ctx context.Context, s *KBService, op client.Op, fn func() (T, error)) (T, error) {
	v, err := retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(s.policy.Attempts),
		retry.Delay(s.policy.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(client.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			s.log.Warn().Err(err).Str("op", string(op)).Uint("attempt", n+1).Msg("retrying remote call")
		}),
	)
	if err != nil {
		s.log.Error().Err(err).Str("op", string(op)).Msg("remote call failed")
	}
	return v, err
}
