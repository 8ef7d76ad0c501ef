package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

const imgbbService = "imgbb"

// ImgBB uploads images to the ImgBB API.
type ImgBB struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewImgBB creates an ImgBB uploader. apiURL is the upload endpoint.
func NewImgBB(apiKey, apiURL string, timeout time.Duration) *ImgBB {
	return &ImgBB{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Service implements Uploader.
func (c *ImgBB) Service() string { return imgbbService }

// Upload posts the image as the multipart field "image".
func (c *ImgBB) Upload(ctx context.Context, img Image) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	name := img.Name
	if name == "" {
		name = "photo"
	}
	part, err := w.CreateFormFile("image", name)
	if err != nil {
		return "", &UploadError{Reason: err.Error(), Err: err}
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", &UploadError{Reason: err.Error(), Err: err}
	}
	if err := w.Close(); err != nil {
		return "", &UploadError{Reason: err.Error(), Err: err}
	}

	endpoint, err := url.Parse(c.apiURL)
	if err != nil {
		return "", &UploadError{Reason: fmt.Sprintf("invalid upload url: %v", err), Err: err}
	}
	q := endpoint.Query()
	q.Set("key", c.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &body)
	if err != nil {
		return "", &UploadError{Reason: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UploadError{Reason: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &UploadError{
			Reason:     fmt.Sprintf("Failed to upload image: %s", resp.Status),
			StatusCode: resp.StatusCode,
		}
	}

	var out imgbbResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &UploadError{Reason: fmt.Sprintf("failed to decode response: %v", err), Err: err}
	}
	if !out.Success {
		reason := "Image upload failed"
		if out.Error != nil && out.Error.Message != "" {
			reason = out.Error.Message
		}
		return "", &UploadError{Reason: reason}
	}
	if out.Data.URL == "" {
		return "", &UploadError{Reason: "response did not include an image url"}
	}
	return out.Data.URL, nil
}
