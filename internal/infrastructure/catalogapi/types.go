package catalogapi

import (
	"encoding/json"
	"strings"
)

const metafieldsSetMutation = `mutation metafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields { namespace key }
    userErrors { field message code }
  }
}`

const productQuery = `query product($id: ID!) {
  product(id: $id) {
    id
    title
    handle
    status
    featuredImage { url }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLResponse is the envelope of every GraphQL answer
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type metafieldsSetInput struct {
	OwnerID   string `json:"ownerId"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

type metafieldsSetData struct {
	MetafieldsSet struct {
		UserErrors []UserError `json:"userErrors"`
	} `json:"metafieldsSet"`
}

type productData struct {
	Product *struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		Handle        string `json:"handle"`
		Status        string `json:"status"`
		FeaturedImage *struct {
			URL string `json:"url"`
		} `json:"featuredImage"`
	} `json:"product"`
}

// UserError is a validation error reported by a mutation
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
}

// UserErrors is returned when the catalog accepted the request but rejected its input
type UserErrors []UserError

// Error implements the error interface
func (e UserErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ue := range e {
		if len(ue.Field) > 0 {
			msgs[i] = strings.Join(ue.Field, ".") + ": " + ue.Message
		} else {
			msgs[i] = ue.Message
		}
	}
	return "catalogapi: user errors: " + strings.Join(msgs, "; ")
}
