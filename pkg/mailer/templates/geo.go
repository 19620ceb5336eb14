package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Geo is the coarse location of a client IP.
type Geo struct {
	City     string
	Region   string
	Country  string
	Timezone string
}

type GeoResolver interface {
	Lookup(ctx context.Context, ip string) (Geo, error)
}

// FormatGeo joins the non-empty parts as "City, Region, Country".
func FormatGeo(g Geo) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{g.City, g.Region, g.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

const (
	ipAPIBaseURL = "http://ip-api.com/json/"
	ipAPIFields  = "status,message,country,regionName,city,timezone"
	geoTimeout   = 2 * time.Second
)

var ErrEmptyIP = errors.New("empty ip")

// StatusError is returned when the geo service answers with a non-2xx code.
// ip-api.com answers 429 once the per-minute quota is spent.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("geo lookup: unexpected status %d", e.Code)
}

// RateLimited reports whether the service throttled the request.
func (e *StatusError) RateLimited() bool { return e.Code == http.StatusTooManyRequests }

// IPAPIResolver looks IPs up against ip-api.com.
type IPAPIResolver struct {
	client  *http.Client
	baseURL string
}

// NewIPAPIResolver uses client, or a client with a short timeout when nil.
func NewIPAPIResolver(client *http.Client) *IPAPIResolver {
	if client == nil {
		client = &http.Client{Timeout: geoTimeout}
	}
	return &IPAPIResolver{client: client, baseURL: ipAPIBaseURL}
}

func (r *IPAPIResolver) Lookup(ctx context.Context, ip string) (Geo, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return Geo{}, ErrEmptyIP
	}

	endpoint := r.baseURL + url.PathEscape(ip) + "?fields=" + ipAPIFields
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Geo{}, fmt.Errorf("geo lookup: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Geo{}, fmt.Errorf("geo lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Geo{}, &StatusError{Code: resp.StatusCode}
	}

	var body struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		Country    string `json:"country"`
		RegionName string `json:"regionName"`
		City       string `json:"city"`
		Timezone   string `json:"timezone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Geo{}, fmt.Errorf("geo lookup: decode: %w", err)
	}
	if !strings.EqualFold(body.Status, "success") {
		return Geo{}, fmt.Errorf("geo lookup failed: %s", body.Message)
	}
	return Geo{City: body.City, Region: body.RegionName, Country: body.Country, Timezone: body.Timezone}, nil
}
