package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	model "auction-engine/internal/models"
	"auction-engine/services/bidding/handler"
)

type staticFeed struct{}

func (staticFeed) Subscribe(string) (<-chan model.Event, func()) {
	ch := make(chan model.Event)
	return ch, func() { close(ch) }
}

func TestSetupRouter(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	svc := handler.NewMockBiddingServiceInterface(ctrl)
	svc.EXPECT().ListAuctions().Return(nil)

	router := SetupRouter(svc, Options{Feed: staticFeed{}, RequestTimeout: time.Second})

	tests := []struct {
		name       string
		method     string
		url        string
		wantStatus int
		wantBody   string
	}{
		{name: "metrics", method: http.MethodGet, url: "/metrics", wantStatus: http.StatusOK, wantBody: "go_goroutines"},
		{name: "list auctions", method: http.MethodGet, url: "/auctions", wantStatus: http.StatusOK, wantBody: `"data":[]`},
		{name: "feed with malformed id", method: http.MethodGet, url: "/auctions/nope/feed", wantStatus: http.StatusNotFound},
		{name: "unknown route", method: http.MethodGet, url: "/items", wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.url, nil))
		require.Equal(t, tc.wantStatus, w.Code, tc.name)
		if tc.wantBody != "" {
			require.True(t, strings.Contains(w.Body.String(), tc.wantBody), tc.name)
		}
	}
}

func TestRequestTimeoutMiddleware(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		timeout      time.Duration
		wantDeadline bool
	}{
		{name: "bounded", timeout: time.Minute, wantDeadline: true},
		{name: "disabled", timeout: 0, wantDeadline: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var hasDeadline bool
			r := gin.New()
			r.Use(RequestTimeoutMiddleware(tc.timeout))
			r.GET("/", func(c *gin.Context) {
				_, hasDeadline = c.Request.Context().Deadline()
				c.Status(http.StatusNoContent)
			})

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, tc.wantDeadline, hasDeadline)
		})
	}
}
