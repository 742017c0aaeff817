package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"

	moverrors "github.com/f5devops/xc-ns-mover/internal/mover/errors"
)

// Referrer is one entry parsed from a 409 probe-delete response body,
// identifying an object that still references the one being deleted.
type Referrer struct {
	Kind      string
	Name      string
	Namespace string
	Raw       string
}

func (c *Client) objectURL(namespace, resourceType, name string) string {
	if name == "" {
		return c.url("/api/config/namespaces/%s/%s", namespace, resourceType)
	}
	return c.url("/api/config/namespaces/%s/%s/%s", namespace, resourceType, name)
}

// GetConfigObject fetches a single config object.
func (c *Client) GetConfigObject(ctx context.Context, namespace, resourceType, name string) (ConfigDocument, error) {
	var doc ConfigDocument
	if err := c.do(ctx, "GET", c.objectURL(namespace, resourceType, name), nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CreateConfigObject creates a new object of resourceType in namespace.
func (c *Client) CreateConfigObject(ctx context.Context, namespace, resourceType string, metadata, spec map[string]any) (ConfigDocument, error) {
	body := map[string]any{"metadata": metadata, "spec": spec}
	var doc ConfigDocument
	if err := c.do(ctx, "POST", c.objectURL(namespace, resourceType, ""), body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteConfigObject deletes an object unconditionally (fail_if_referred
// is false — the server deletes regardless of referrers).
func (c *Client) DeleteConfigObject(ctx context.Context, namespace, resourceType, name string) error {
	body := map[string]any{"fail_if_referred": false, "name": name, "namespace": namespace}
	return c.do(ctx, "DELETE", c.objectURL(namespace, resourceType, name), body, nil)
}

// ProbeDeleteConfigObject attempts a delete with fail_if_referred=true.
//
// Two outcomes:
//   - (nil, true, nil): no active referrers — the object WAS deleted as a
//     side effect of the probe. Callers must record this as a real delete.
//   - (referrers, false, nil): active referrers blocked the delete; the
//     object is untouched.
//
// Any other failure is returned as an error and the object's state is
// unknown to the caller (treat as a hard failure, same as the original
// implementation's fall-through raise_for_status).
func (c *Client) ProbeDeleteConfigObject(ctx context.Context, namespace, resourceType, name string) ([]Referrer, bool, error) {
	body := map[string]any{"fail_if_referred": true, "name": name, "namespace": namespace}
	req, err := c.newRequest(ctx, "DELETE", c.objectURL(namespace, resourceType, name), body)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.rawDo(req)
	if err != nil {
		return nil, false, moverrors.New(moverrors.KindTransport, "probe delete "+name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 409 {
		return parse409Referrers(resp), false, nil
	}

	if resp.StatusCode < 300 {
		c.logger.Info("probe delete succeeded, object deleted",
			"namespace", namespace, "resource_type", resourceType, "name", name)
		return nil, true, nil
	}

	return nil, false, classifyHTTPError(&httpError{Status: resp.StatusCode, URL: req.URL.String()})
}

var (
	referrerIntroPattern = regexp.MustCompile(`(?i)(?:referred\s+by|referenced\s+by|referencing)\s+(.*)`)
	referrerEntryPattern = regexp.MustCompile(`(\w+)\s+\[?(\S+?)/(\S+?)\]?(?:,|$|\s)`)
)

// parse409Referrers is a best-effort parse of a 409 Conflict response,
// mirroring the original implementation's _parse_409_referrers exactly so
// referrer identities round-trip the same way against XC's message
// format.
func parse409Referrers(resp *http.Response) []Referrer {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return []Referrer{{Kind: "?", Name: "?", Namespace: "?", Raw: ""}}
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return []Referrer{{Kind: "?", Name: "?", Namespace: "?", Raw: truncate(string(data), 500)}}
	}

	var referrers []Referrer
	if m := referrerIntroPattern.FindStringSubmatch(body.Message); m != nil {
		for _, entry := range referrerEntryPattern.FindAllStringSubmatch(m[1], -1) {
			referrers = append(referrers, Referrer{
				Kind:      entry[1],
				Namespace: entry[2],
				Name:      entry[3],
			})
		}
	}

	if len(referrers) == 0 {
		referrers = []Referrer{{Kind: "?", Name: "?", Namespace: "?", Raw: truncate(body.Message, 500)}}
	}
	return referrers
}

// ListConfigObjectNames lists every object name of resourceType in
// namespace, for conflict detection. Returns an empty set (not an error)
// on 403/404.
func (c *Client) ListConfigObjectNames(ctx context.Context, namespace, resourceType string) (map[string]bool, error) {
	var resp listResponse
	err := c.do(ctx, "GET", c.objectURL(namespace, resourceType, ""), nil, &resp)
	if err != nil {
		if moverrors.Is(err, moverrors.KindCapability) || moverrors.Is(err, moverrors.KindAuthorization) {
			return map[string]bool{}, nil
		}
		return nil, err
	}

	names := make(map[string]bool, len(resp.Items))
	for _, item := range resp.Items {
		if n := item.resolvedName(); n != "" {
			names[n] = true
		}
	}
	return names, nil
}

// ListHTTPLoadBalancerNames is a convenience wrapper over
// ListConfigObjectNames for the "http_loadbalancers" resource type.
func (c *Client) ListHTTPLoadBalancerNames(ctx context.Context, namespace string) (map[string]bool, error) {
	return c.ListConfigObjectNames(ctx, namespace, "http_loadbalancers")
}

// GetHTTPLoadBalancer fetches a single HTTP load balancer.
func (c *Client) GetHTTPLoadBalancer(ctx context.Context, namespace, name string) (ConfigDocument, error) {
	return c.GetConfigObject(ctx, namespace, "http_loadbalancers", name)
}

// DeleteHTTPLoadBalancer deletes a single HTTP load balancer.
func (c *Client) DeleteHTTPLoadBalancer(ctx context.Context, namespace, name string) error {
	return c.DeleteConfigObject(ctx, namespace, "http_loadbalancers", name)
}

// CreateHTTPLoadBalancer creates a single HTTP load balancer.
func (c *Client) CreateHTTPLoadBalancer(ctx context.Context, namespace string, metadata, spec map[string]any) (ConfigDocument, error) {
	return c.CreateConfigObject(ctx, namespace, "http_loadbalancers", metadata, spec)
}
