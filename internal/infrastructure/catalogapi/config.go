package catalogapi

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the credentials and endpoint of one shop. It is passed to
// NewClient explicitly; nothing is read from the environment here.
type Config struct {
	// ShopDomain is the myshopify domain, e.g. my-shop.myshopify.com
	ShopDomain string
	// AccessToken is the Admin API access token
	AccessToken string
	// APIVersion selects the Admin API version, e.g. 2024-10
	APIVersion string
	// Timeout bounds each HTTP request
	Timeout time.Duration
	// Endpoint overrides the URL derived from ShopDomain and APIVersion
	Endpoint string
}

// DefaultAPIVersion is used when Config.APIVersion is empty
const DefaultAPIVersion = "2024-10"

// Errors for catalog configuration
var (
	ErrConfigMissingShopDomain  = errors.New("catalogapi: shop domain is required")
	ErrConfigMissingAccessToken = errors.New("catalogapi: access token is required")
)

// Validate checks that the configuration can reach a shop
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ShopDomain) == "" && c.Endpoint == "" {
		return ErrConfigMissingShopDomain
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		return ErrConfigMissingAccessToken
	}
	return nil
}

// GraphQLURL returns the Admin GraphQL endpoint
func (c *Config) GraphQLURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	version := c.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", strings.TrimSpace(c.ShopDomain), version)
}
