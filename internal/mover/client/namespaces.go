package client

import (
	"context"
	"sort"
)

type namespaceListResponse struct {
	Items []struct {
		Name string `json:"name"`
	} `json:"items"`
}

// ListNamespaces returns every namespace name on the tenant, sorted.
func (c *Client) ListNamespaces(ctx context.Context) ([]string, error) {
	var resp namespaceListResponse
	if err := c.do(ctx, "GET", c.url("/api/web/namespaces"), nil, &resp); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Name != "" {
			names = append(names, item.Name)
		}
	}
	sort.Strings(names)
	c.logger.Info("listed namespaces", "count", len(names))
	return names, nil
}
