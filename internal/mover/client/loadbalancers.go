package client

import (
	"context"
	"fmt"
	"strings"

	moverrors "github.com/f5devops/xc-ns-mover/internal/mover/errors"
)

// lbTypes are the load balancer endpoint kinds tried, in order, when
// enumerating a namespace. After the first 404 for a given kind it is
// disabled process-wide (the endpoint simply does not exist on this
// tenant), matching the original client's _disabled_lb_types behaviour.
var lbTypes = []string{"http_loadbalancers", "https_loadbalancers"}

// LoadBalancer identifies a load balancer found while enumerating a
// namespace: its name and its endpoint kind (singular, e.g.
// "http_loadbalancer").
type LoadBalancer struct {
	Name string
	Kind string
}

type listResponse struct {
	Items []jsonItem `json:"items"`
}

type jsonItem struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

func (i jsonItem) resolvedName() string {
	if i.Name != "" {
		return i.Name
	}
	if i.Metadata != nil {
		if n, ok := i.Metadata["name"].(string); ok {
			return n
		}
	}
	return ""
}

// ListAllLoadBalancers enumerates every load balancer in namespace across
// all known LB kinds.
func (c *Client) ListAllLoadBalancers(ctx context.Context, namespace string) ([]LoadBalancer, error) {
	var out []LoadBalancer
	for _, lbType := range lbTypes {
		items, err := c.listLBType(ctx, namespace, lbType)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			name := item.resolvedName()
			if name == "" {
				name = "<unknown>"
			}
			out = append(out, LoadBalancer{Name: name, Kind: strings.TrimSuffix(lbType, "s")})
		}
	}
	return out, nil
}

func (c *Client) listLBType(ctx context.Context, namespace, lbType string) ([]jsonItem, error) {
	if disabled, ok := c.capability.Get("lb_disabled:" + lbType); ok && disabled {
		return nil, nil
	}

	url := c.url("/api/config/namespaces/%s/%s", namespace, lbType)
	var resp listResponse
	err := c.do(ctx, "GET", url, nil, &resp)
	if err == nil {
		return resp.Items, nil
	}

	if moverrors.Is(err, moverrors.KindCapability) {
		c.capability.Add("lb_disabled:"+lbType, true)
		c.logger.Info("lb endpoint disabled for remaining namespaces", "kind", lbType)
		return nil, nil
	}
	if moverrors.Is(err, moverrors.KindAuthorization) {
		c.logger.Debug("no access to lb kind in namespace", "kind", lbType, "namespace", namespace)
		return nil, nil
	}
	return nil, fmt.Errorf("list %s in namespace %s: %w", lbType, namespace, err)
}
