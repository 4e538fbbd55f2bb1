package data

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSMARDClientFetchRange(t *testing.T) {
	week1 := time.Date(2024, 7, 1, 0, 0, 0, 0, Berlin)
	week2 := week1.AddDate(0, 0, 7)
	week3 := week2.AddDate(0, 0, 7)

	chunk := func(start time.Time, n int, nullAt int) string {
		out := `{"meta_data":{"version":1},"series":[`
		for i := 0; i < n; i++ {
			if i > 0 {
				out += ","
			}
			ms := start.Add(time.Duration(i) * 15 * time.Minute).UnixMilli()
			if i == nullAt {
				out += fmt.Sprintf("[%d,null]", ms)
			} else {
				out += fmt.Sprintf("[%d,%d.5]", ms, i)
			}
		}
		return out + "]}"
	}

	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		switch r.URL.Path {
		case "/chart_data/4169/DE-LU/index_quarterhour.json":
			fmt.Fprintf(w, `{"timestamps":[%d,%d,%d]}`, week3.UnixMilli(), week1.UnixMilli(), week2.UnixMilli())
		case fmt.Sprintf("/chart_data/4169/DE-LU/4169_DE-LU_quarterhour_%d.json", week2.UnixMilli()):
			fmt.Fprint(w, chunk(week2, 8, 2))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewSMARDClient(srv.URL, quietLogger())
	from := week2.Add(15 * time.Minute)
	s, err := c.FetchRange(context.Background(), from, week2.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/chart_data/4169/DE-LU/index_quarterhour.json",
		fmt.Sprintf("/chart_data/4169/DE-LU/4169_DE-LU_quarterhour_%d.json", week2.UnixMilli()),
	}, requested)
	require.Equal(t, 7, s.Len())
	assert.True(t, s.Start().Equal(from))
	assert.InDelta(t, 1.5, s.Points[0].Price, 1e-9)
	assert.InDelta(t, 2.5, s.Points[1].Price, 1e-9, "null is interpolated")
	assert.InDelta(t, 3.5, s.Points[2].Price, 1e-9)
}

func TestSMARDClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewSMARDClient(srv.URL, quietLogger())
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, Berlin)
	_, err := c.FetchRange(context.Background(), from, from.Add(time.Hour))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", apiErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)

	_, err = c.FetchRange(context.Background(), from, from)
	assert.Error(t, err)

	c.Resolution = "day"
	_, err = c.FetchRange(context.Background(), from, from.Add(time.Hour))
	assert.ErrorContains(t, err, "unsupported resolution")
}

func TestChunksCovering(t *testing.T) {
	ts := []int64{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC).UnixMilli(),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}
	got := chunksCovering(ts, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, ts[1:], got)

	got = chunksCovering(ts, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, ts[:1], got)
}
