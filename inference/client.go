// Package inference talks to the remote try-on server: multipart try-on
// runs, styling recommendations and outfit combos.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/storage"
)

// DefaultCategory is sent when a try-on names no clothing category.
const DefaultCategory = "upper_body"

// Client calls the inference server. Requests carry no client-side timeout;
// a try-on can run for minutes and is bounded by the caller's context.
type Client struct {
	HTTP *http.Client
}

func NewClient() *Client {
	return &Client{HTTP: &http.Client{}}
}

// TryOnRequest is one try-on run.
type TryOnRequest struct {
	Person             []byte
	PersonContentType  string
	Garment            []byte
	GarmentContentType string
	Category           string
	HFToken            string
}

// TryOnResponse is the server's try-on answer.
type TryOnResponse struct {
	Status    string `json:"status"`
	ImageURL  string `json:"image_url"`
	Image     string `json:"image"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// ResultURL returns image_url, falling back to image.
func (r TryOnResponse) ResultURL() string {
	if r.ImageURL != "" {
		return r.ImageURL
	}
	return r.Image
}

// RecommendRequest is the body of POST /recommend.
type RecommendRequest struct {
	ClothingType string  `json:"clothing_type"`
	Occasion     *string `json:"occasion"`
	ImageData    string  `json:"image_data"`
}

type RecommendResponse struct {
	Status     string `json:"status"`
	Suggestion string `json:"suggestion"`
	Source     string `json:"source"`
}

type comboResponse struct {
	Status      string                  `json:"status"`
	Style       string                  `json:"style"`
	Clothing    string                  `json:"clothing"`
	Accessories models.ComboAccessories `json:"accessories"`
	AITip       string                  `json:"ai_tip"`
}

// TryOn posts the person and garment images to {server}/try_on.
func (c *Client) TryOn(ctx context.Context, server string, req TryOnRequest) (*TryOnResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := writeImagePart(mw, "person_image", "person", req.Person, req.PersonContentType); err != nil {
		return nil, err
	}
	if err := writeImagePart(mw, "garment_image", "garment", req.Garment, req.GarmentContentType); err != nil {
		return nil, err
	}
	category := req.Category
	if category == "" {
		category = DefaultCategory
	}
	if err := mw.WriteField("category", category); err != nil {
		return nil, err
	}
	if token := strings.TrimSpace(req.HFToken); token != "" {
		if err := mw.WriteField("hf_token", token); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(server, "try_on"), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build try-on request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var resp TryOnResponse
	status, err := c.do(httpReq, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status == "error" {
		if resp.ErrorCode == ErrorCodeTokenRequired {
			return nil, &TokenRequiredError{Message: resp.Message}
		}
		return nil, &RemoteError{StatusCode: status, Message: resp.Message}
	}
	if resp.ResultURL() == "" {
		return nil, &RemoteError{StatusCode: status, Message: "no image returned"}
	}
	return &resp, nil
}

// Recommend posts to {server}/recommend.
func (c *Client) Recommend(ctx context.Context, server string, req RecommendRequest) (*RecommendResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recommend request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(server, "recommend"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build recommend request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp RecommendResponse
	status, err := c.do(httpReq, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Suggestion == "" {
		return nil, &RemoteError{StatusCode: status, Message: "empty suggestion"}
	}
	return &resp, nil
}

// Combo fetches {server}/combos/{style}.
func (c *Client) Combo(ctx context.Context, server, style string) (*models.Combo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint(server, "combos/"+url.PathEscape(style)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build combo request: %w", err)
	}

	var resp comboResponse
	status, err := c.do(httpReq, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Clothing == "" {
		return nil, &RemoteError{StatusCode: status, Message: "combo has no clothing"}
	}
	if resp.Style == "" {
		resp.Style = style
	}
	return &models.Combo{
		Style:       resp.Style,
		Clothing:    resp.Clothing,
		Accessories: resp.Accessories,
		AITip:       resp.AITip,
	}, nil
}

// do sends the request and decodes a JSON body into out. Non-2xx answers
// become RemoteError; bodies that are not JSON become ErrServerOffline.
func (c *Client) do(req *http.Request, out interface{}) (int, error) {
	req.Header.Set("Accept", "application/json")
	// Tunnels in front of the server show an interstitial page without these.
	req.Header.Set("ngrok-skip-browser-warning", "true")
	req.Header.Set("Bypass-Tunnel-Reminder", "true")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to reach inference server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read inference response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Detail  interface{} `json:"detail"`
			Message string      `json:"message"`
		}
		if json.Unmarshal(raw, &errBody) != nil {
			return resp.StatusCode, fmt.Errorf("status %d: %w", resp.StatusCode, ErrServerOffline)
		}
		msg := errBody.Message
		if d, ok := errBody.Detail.(string); ok && d != "" {
			msg = d
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, &RemoteError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", ErrServerOffline)
	}
	return resp.StatusCode, nil
}

func writeImagePart(mw *multipart.Writer, field, name string, data []byte, contentType string) error {
	if len(data) == 0 {
		return fmt.Errorf("%s is empty", field)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s.%s"`, field, name, storage.ExtFromContentType(contentType)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

func endpoint(server, path string) string {
	return strings.TrimRight(server, "/") + "/" + path
}
