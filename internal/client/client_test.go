package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/client"
	"blocknotes/internal/domain"
)

func TestClient_MissingTokenNeverSends(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.StaticToken(""))
	_, err := c.GetPage(context.Background(), "1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrNotAuthenticated))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))

	c = client.New(srv.URL, nil)
	assert.ErrorIs(t, c.DeleteBlock(context.Background(), "1"), client.ErrNotAuthenticated)
}

func TestClient_UpdateBlockSendsOnlySetFields(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/blocks/b1", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
		_, _ = w.Write([]byte(`{"id":"b1","type":"text","content":null,"position":4,"props":null}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.StaticToken("secret"))
	b, err := c.UpdateBlock(context.Background(), "b1", domain.PositionPatch(4))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"position": float64(4)}, gotBody)
	assert.Equal(t, 4, b.Position)
	assert.Equal(t, "", b.Content)
	assert.True(t, b.Props.Equal(domain.Props{}))
}

func TestClient_StatusErrorUsesFixedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Block not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.StaticToken("t"))
	_, err := c.UpdateBlock(context.Background(), "nope", domain.PositionPatch(0))

	var apiErr *client.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Failed to save", apiErr.Error())
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Detail, "Block not found")
	assert.False(t, apiErr.Retryable())
	assert.True(t, client.IsNotFound(err))
}

func TestClient_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.StaticToken("t"))
	err := c.DeleteBlock(context.Background(), "b1")
	assert.True(t, client.IsRetryable(err))
	assert.EqualError(t, err, "Failed to delete")
}

func TestClient_ListPagesWithParentAndCreateDefaults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pages", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "9", r.URL.Query().Get("parent_id"))
			_, _ = w.Write([]byte(`[{"id":10,"title":"Child","icon":null,"parent_id":9,"children":[{"id":11,"title":"Leaf","parent_id":10}]}]`))
		case http.MethodPost:
			var in map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "Untitled", in["title"])
			assert.Nil(t, in["parent_id"])
			_, _ = w.Write([]byte(`{"id":12,"title":"Untitled","icon":null,"parent_id":null}`))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := client.New(srv.URL, client.StaticToken("t"))
	parent := domain.ID("9")
	pages, err := c.ListPages(context.Background(), &parent)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, domain.ID("10"), pages[0].ID)
	require.Len(t, pages[0].Children, 1)
	assert.Equal(t, "Leaf", pages[0].Children[0].Title)

	page, err := c.CreatePage(context.Background(), domain.PageInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.ID("12"), page.ID)
	assert.Nil(t, page.ParentID)
	assert.Equal(t, "📄", page.DisplayIcon())
}

func TestClient_CreateBlockFillsPageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pages/p1/blocks", r.URL.Path)
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "text", in["type"])
		assert.Equal(t, map[string]any{}, in["props"])
		_, _ = w.Write([]byte(`{"id":"b9","type":"text","content":"","position":2,"props":{}}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.StaticToken("t"))
	b, err := c.CreateBlock(context.Background(), "p1", domain.BlockInput{Position: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.ID("p1"), b.PageID)
	assert.Equal(t, 2, b.Position)
}
