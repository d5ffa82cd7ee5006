package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sthembisoo/rollbar-notifier/cmd/rollbar/payload"
	"github.com/sthembisoo/rollbar-notifier/utils/logger"
)

// Result is what the service returns for an accepted item.
type Result struct {
	UUID string `json:"uuid"`
}

type apiResponse struct {
	Err     int    `json:"err"`
	Message string `json:"message"`
	Result  Result `json:"result"`
}

// Sender posts items to the item endpoint. It makes exactly one attempt per
// item.
type Sender struct {
	client   *resty.Client
	endpoint string
	log      logger.Logger
}

func New(endpoint string, timeout time.Duration, log logger.Logger) *Sender {
	if log == nil {
		log = logger.Discard()
	}
	return &Sender{
		client:   resty.New().SetTimeout(timeout),
		endpoint: endpoint,
		log:      log,
	}
}

// Send serializes item and posts it.
func (s *Sender) Send(ctx context.Context, item *payload.Item) (*Result, error) {
	if item == nil || item.Data == nil {
		return nil, errors.New("item has no data")
	}
	if err := item.Data.Validate(); err != nil {
		return nil, fmt.Errorf("invalid item: %w", err)
	}

	body, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item: %w", err)
	}

	s.log.Debug("posting item", "endpoint", s.endpoint, "bytes", len(body))

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to post item: %w", err)
	}

	var decoded apiResponse
	decodeErr := json.Unmarshal(response.Body(), &decoded)

	if response.StatusCode() != http.StatusOK {
		msg := string(response.Body())
		if decodeErr == nil && decoded.Message != "" {
			msg = decoded.Message
		}
		return nil, fmt.Errorf("rollbar API returned status %d: %s", response.StatusCode(), msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if decoded.Err != 0 {
		return nil, fmt.Errorf("rollbar API rejected item: %s", decoded.Message)
	}

	s.log.Info("item accepted", "uuid", decoded.Result.UUID)
	return &decoded.Result, nil
}
