package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"blocknotes/internal/client"
	"blocknotes/internal/domain"
	"blocknotes/internal/service"
)

// flakyRemote fails the first n calls of every method with err.
type flakyRemote struct {
	failures int
	err      error
	calls    int
}

func (r *flakyRemote) fail() error {
	r.calls++
	if r.calls <= r.failures {
		return r.err
	}
	return nil
}

func (r *flakyRemote) ListPages(context.Context, *domain.ID) ([]domain.Page, error) {
	return nil, r.fail()
}

func (r *flakyRemote) GetPage(_ context.Context, id domain.ID) (*domain.Page, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	return &domain.Page{ID: id, Blocks: []domain.Block{{ID: "b1", Type: "text"}}}, nil
}

func (r *flakyRemote) CreatePage(_ context.Context, in domain.PageInput) (*domain.Page, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	return &domain.Page{ID: "new", Title: in.Title}, nil
}

func (r *flakyRemote) UpdatePage(_ context.Context, id domain.ID, _ domain.PagePatch) (*domain.Page, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	return &domain.Page{ID: id}, nil
}

func (r *flakyRemote) DeletePage(context.Context, domain.ID) error { return r.fail() }

func (r *flakyRemote) CreateBlock(_ context.Context, pageID domain.ID, in domain.BlockInput) (*domain.Block, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	return &domain.Block{ID: "nb", PageID: pageID, Type: in.Type}, nil
}

func (r *flakyRemote) UpdateBlock(_ context.Context, id domain.ID, patch domain.BlockPatch) (*domain.Block, error) {
	if err := r.fail(); err != nil {
		return nil, err
	}
	b := &domain.Block{ID: id, Type: domain.BlockTypeText}
	patch.Apply(b)
	return b, nil
}

func (r *flakyRemote) DeleteBlock(context.Context, domain.ID) error { return r.fail() }

var fastRetry = service.RetryPolicy{Attempts: 3, Delay: time.Millisecond}

func TestKBService_RetriesServerErrors(t *testing.T) {
	remote := &flakyRemote{failures: 2, err: &client.Error{Op: client.OpUpdateBlock, Status: http.StatusBadGateway}}
	svc := service.NewKBService(remote, fastRetry, zerolog.Nop())

	b, err := svc.UpdateBlock(context.Background(), "b1", domain.PositionPatch(2))
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if remote.calls != 3 {
		t.Errorf("expected 3 calls, got %d", remote.calls)
	}
	if b.Position != 2 || b.Props.Extra == nil {
		t.Errorf("expected normalized result, got %+v", b)
	}
}

func TestKBService_DoesNotRetryClientErrors(t *testing.T) {
	remote := &flakyRemote{failures: 5, err: &client.Error{Op: client.OpDeleteBlock, Status: http.StatusNotFound}}
	svc := service.NewKBService(remote, fastRetry, zerolog.Nop())

	err := svc.DeleteBlock(context.Background(), "b1")
	if !client.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if remote.calls != 1 {
		t.Errorf("expected a single call, got %d", remote.calls)
	}
}

func TestKBService_DoesNotRetryCreates(t *testing.T) {
	remote := &flakyRemote{failures: 1, err: &client.Error{Op: client.OpCreatePage}}
	svc := service.NewKBService(remote, fastRetry, zerolog.Nop())

	if _, err := svc.CreatePage(context.Background(), domain.PageInput{}); err == nil {
		t.Fatal("expected the transport error")
	}
	if remote.calls != 1 {
		t.Errorf("expected create not to be retried, got %d calls", remote.calls)
	}
}

func TestKBService_NotAuthenticatedIsFinal(t *testing.T) {
	remote := &flakyRemote{failures: 5, err: client.ErrNotAuthenticated}
	svc := service.NewKBService(remote, fastRetry, zerolog.Nop())

	_, err := svc.GetPage(context.Background(), "p1")
	if !errors.Is(err, client.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if remote.calls != 1 {
		t.Errorf("expected a single call, got %d", remote.calls)
	}
}
