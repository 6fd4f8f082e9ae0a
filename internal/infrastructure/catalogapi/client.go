// Package catalogapi talks to the external product catalog over its
// GraphQL Admin API: reading product summaries and writing metafields.
package catalogapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/partscatalog/backend/internal/domain/projection"
	"go.uber.org/zap"
)

// AccessTokenHeader carries the Admin API token
const AccessTokenHeader = "X-Shopify-Access-Token"

const throttledCode = "THROTTLED"

// Errors returned by the client
var (
	ErrRateLimited     = errors.New("catalogapi: rate limited")
	ErrUnauthorized    = errors.New("catalogapi: unauthorized")
	ErrProductNotFound = errors.New("catalogapi: product not found")
)

// Client implements projection.CatalogWriter and projection.CatalogReader
type Client struct {
	config *Config
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a client for one shop
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader(AccessTokenHeader, config.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		config: config,
		http:   httpClient,
		logger: logger.Named("catalogapi"),
	}, nil
}

// WriteMetafields overwrites the given metafields on the owner in one mutation
func (c *Client) WriteMetafields(ctx context.Context, ownerGID string, fields []projection.Metafield) error {
	if len(fields) == 0 {
		return nil
	}
	inputs := make([]metafieldsSetInput, len(fields))
	for i, f := range fields {
		inputs[i] = metafieldsSetInput{
			OwnerID:   ownerGID,
			Namespace: f.Namespace,
			Key:       f.Key,
			Type:      f.Type,
			Value:     f.Value,
		}
	}

	var data metafieldsSetData
	if err := c.do(ctx, metafieldsSetMutation, map[string]any{"metafields": inputs}, &data); err != nil {
		return err
	}
	if ue := data.MetafieldsSet.UserErrors; len(ue) > 0 {
		return UserErrors(ue)
	}
	return nil
}

// ReadProduct reads the summary of one product
func (c *Client) ReadProduct(ctx context.Context, gid string) (*projection.ProductSummary, error) {
	var data productData
	if err := c.do(ctx, productQuery, map[string]any{"id": gid}, &data); err != nil {
		return nil, err
	}
	if data.Product == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, gid)
	}
	summary := &projection.ProductSummary{
		GID:    data.Product.ID,
		Title:  data.Product.Title,
		Handle: data.Product.Handle,
		Status: data.Product.Status,
	}
	if data.Product.FeaturedImage != nil {
		summary.ImageURL = data.Product.FeaturedImage.URL
	}
	return summary, nil
}

// do posts one GraphQL document and decodes data into out
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	var envelope graphQLResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(graphQLRequest{Query: query, Variables: variables}).
		SetResult(&envelope).
		Post(c.config.GraphQLURL())
	if err != nil {
		return fmt.Errorf("catalogapi: request failed: %w", err)
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusTooManyRequests:
		c.logger.Warn("Catalog rate limit hit", zap.String("retry_after", resp.Header().Get("Retry-After")))
		return ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status >= http.StatusBadRequest:
		return fmt.Errorf("catalogapi: HTTP %d: %s", status, truncate(resp.String(), 512))
	}

	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			if e.Extensions.Code == throttledCode {
				return ErrRateLimited
			}
			msgs[i] = e.Message
		}
		return fmt.Errorf("catalogapi: graphql errors: %s", strings.Join(msgs, "; "))
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("catalogapi: decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var (
	_ projection.CatalogWriter = (*Client)(nil)
	_ projection.CatalogReader = (*Client)(nil)
)
