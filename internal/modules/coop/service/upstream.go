package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"kandang-monitor/internal/types"
)

var errEmptyTally = errors.New("upstream returned no coop tallies")

// UpstreamTally fetches coop tallies from the farm's coop registry.
type UpstreamTally struct {
	url  string
	http *resty.Client
}

func NewUpstreamTally(url string, timeout time.Duration) *UpstreamTally {
	return &UpstreamTally{
		url: url,
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// FetchTally returns the upstream tally, summing it when the upstream
// reports one tally per enclosure.
func (u *UpstreamTally) FetchTally(ctx context.Context) (types.CoopTally, error) {
	resp, err := u.http.R().SetContext(ctx).Get(u.url)
	if err != nil {
		return types.CoopTally{}, fmt.Errorf("fetch coop tally: %w", err)
	}
	if !resp.IsSuccess() {
		return types.CoopTally{}, fmt.Errorf("fetch coop tally: upstream status %d", resp.StatusCode())
	}
	body := bytes.TrimSpace(resp.Body())
	if bytes.Equal(body, []byte("[]")) {
		return types.CoopTally{}, errEmptyTally
	}
	return types.ParseCoopTally(body)
}
