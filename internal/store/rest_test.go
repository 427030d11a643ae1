package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://project.supabase.co"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestREST(t *testing.T, retries int) (*REST, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client := NewREST(testBase+"/", "service-key", RESTOptions{
		HTTPClient: &http.Client{Transport: transport},
		RetryMax:   retries,
		Logger:     quietLogger(),
	})
	return client, transport
}

func TestRESTInsertNormalizesColumns(t *testing.T) {
	client, transport := newTestREST(t, 0)

	var got []map[string]any
	var header http.Header
	transport.RegisterResponder(http.MethodPost, testBase+"/rest/v1/positions",
		func(req *http.Request) (*http.Response, error) {
			header = req.Header.Clone()
			if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusCreated, ""), nil
		})

	err := client.Insert(context.Background(), TablePositions,
		Row{"user_id": "u1", "asset_id": "AAPL", "quantity": 2.0},
		Row{"user_id": "u1", "asset_id": "FD1", "principal": 5000.0},
	)
	require.NoError(t, err)

	require.Len(t, got, 2)
	for _, r := range got {
		assert.Len(t, r, 4)
		assert.Contains(t, r, "principal")
		assert.Contains(t, r, "quantity")
	}
	assert.Nil(t, got[0]["principal"])
	assert.Nil(t, got[1]["quantity"])

	assert.Equal(t, "service-key", header.Get("apikey"))
	assert.Equal(t, "Bearer service-key", header.Get("Authorization"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, "return=minimal", header.Get("Prefer"))
}

func TestRESTInsertNothingSkipsRequest(t *testing.T) {
	client, transport := newTestREST(t, 0)
	require.NoError(t, client.Insert(context.Background(), TableMarkets))
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestRESTSelectFiltersAndOrders(t *testing.T) {
	client, transport := newTestREST(t, 0)

	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/rest/v1/transactions",
		map[string]string{
			"select":  "*",
			"user_id": "eq.u1",
			"order":   "created_at.desc",
		},
		httpmock.NewStringResponder(http.StatusOK, `[{"tx_id":"t1","quantity":2,"price":150.25}]`))

	rows, err := client.Select(context.Background(), TableTransactions,
		Filter{"user_id": "u1"}, Order{Column: "created_at", Desc: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0]["tx_id"])
	assert.Equal(t, json.Number("2"), rows[0]["quantity"])
	assert.Equal(t, json.Number("150.25"), rows[0]["price"])
}

func TestRESTSelectEmpty(t *testing.T) {
	client, transport := newTestREST(t, 0)
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/rest/v1/profiles",
		map[string]string{"select": "*", "user_id": "eq.nobody"},
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	rows, err := client.Select(context.Background(), TableProfiles, Filter{"user_id": "nobody"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRESTUpstreamError(t *testing.T) {
	client, transport := newTestREST(t, 0)
	transport.RegisterResponder(http.MethodDelete, `=~^https://project\.supabase\.co/rest/v1/markets`,
		httpmock.NewStringResponder(http.StatusInternalServerError, ` {"message":"relation does not exist"} `))

	err := client.DeleteWhere(context.Background(), TableMarkets, Filter{"user_id": "u1"})
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusInternalServerError, upstream.Status)
	assert.Equal(t, `{"message":"relation does not exist"}`, upstream.Body)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestRESTRetriesServerErrors(t *testing.T) {
	client, transport := newTestREST(t, 2)
	client.client.RetryWaitMin = time.Millisecond
	client.client.RetryWaitMax = time.Millisecond

	transport.RegisterResponder(http.MethodPost, testBase+"/rest/v1/profiles",
		httpmock.ResponderFromMultipleResponses([]*http.Response{
			httpmock.NewStringResponse(http.StatusBadGateway, "down"),
			httpmock.NewStringResponse(http.StatusCreated, ""),
		}))

	err := client.Insert(context.Background(), TableProfiles, Row{"user_id": "u1"})
	require.NoError(t, err)
	assert.Equal(t, 2, transport.GetTotalCallCount())
}

func TestRESTDeleteRequiresFilter(t *testing.T) {
	client, transport := newTestREST(t, 0)
	err := client.DeleteWhere(context.Background(), TableProfiles, nil)
	assert.ErrorIs(t, err, ErrEmptyFilter)
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestRESTTransportError(t *testing.T) {
	client, _ := newTestREST(t, 0)
	_, err := client.Select(context.Background(), TableProfiles, Filter{"user_id": "u1"})
	require.Error(t, err)
	var upstream *UpstreamError
	assert.False(t, errors.As(err, &upstream))
}

func TestFilterQuery(t *testing.T) {
	q := filterQuery(Filter{"user_id": "u1", "tenure": 12, "rate": 0.5, "sector": nil})
	assert.Equal(t, "eq.u1", q.Get("user_id"))
	assert.Equal(t, "eq.12", q.Get("tenure"))
	assert.Equal(t, "eq.0.5", q.Get("rate"))
	assert.Equal(t, "is.null", q.Get("sector"))
}
