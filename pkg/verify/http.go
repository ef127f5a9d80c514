package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPVerifier consults a membership or attendance service over HTTP. The
// endpoint contract is:
//
//	GET {base}/v1/projects/{project}/members/{email} -> {"member": bool}
//	GET {base}/v1/projects/{project}/members         -> {"members": ["a@co", ...]}
//
// Both the chat-membership and calendar-attendance collaborators in the
// surrounding system expose this shape.
type HTTPVerifier struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPVerifier creates a verifier against the given base URL.
func NewHTTPVerifier(name, baseURL string, timeout time.Duration) *HTTPVerifier {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPVerifier{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Verifier.
func (v *HTTPVerifier) Name() string { return v.name }

// Verify implements Verifier.
func (v *HTTPVerifier) Verify(ctx context.Context, projectID, email string) (bool, error) {
	endpoint := fmt.Sprintf("%s/v1/projects/%s/members/%s",
		v.baseURL, url.PathEscape(projectID), url.PathEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build verify request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", v.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verify %s: unexpected status %d", v.name, resp.StatusCode)
	}

	var body struct {
		Member bool `json:"member"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("verify %s: decode response: %w", v.name, err)
	}
	return body.Member, nil
}

// Participants implements ParticipantLister.
func (v *HTTPVerifier) Participants(ctx context.Context, projectID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/v1/projects/%s/members", v.baseURL, url.PathEscape(projectID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build participants request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("participants %s: %w", v.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("participants %s: unexpected status %d", v.name, resp.StatusCode)
	}

	var body struct {
		Members []string `json:"members"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("participants %s: decode response: %w", v.name, err)
	}
	return body.Members, nil
}
