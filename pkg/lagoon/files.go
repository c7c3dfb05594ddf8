package lagoon

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

const (
	// DefaultUploadThreshold is the size at which file inputs stop being
	// inlined as data URIs and are uploaded instead. Tunable per client
	// with WithUploadThreshold.
	DefaultUploadThreshold = 1 << 20

	// maxInlinePayload is the hard ceiling the API enforces on inline
	// encoded values. Forcing inline encoding above it fails with
	// ErrPayloadTooLarge.
	maxInlinePayload = 16 << 20
)

// FileInput is a named byte payload for use as a prediction input value,
// for content that does not come from an *os.File.
type FileInput struct {
	Name    string
	Content []byte
}

// File is a stored file on the platform, referenced from prediction inputs
// by its get URL.
type File struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	ContentType string                 `json:"content_type"`
	Size        int                    `json:"size"`
	ETag        string                 `json:"etag,omitempty"`
	Checksum    string                 `json:"checksum,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   string                 `json:"created_at,omitempty"`
	ExpiresAt   string                 `json:"expires_at,omitempty"`
	URLs        map[string]string      `json:"urls,omitempty"`
}

// FilesService stores and retrieves files on the platform.
type FilesService struct {
	client *Client
}

// Create uploads content under the given name and returns the stored file.
func (s *FilesService) Create(ctx context.Context, name string, content []byte, metadata map[string]interface{}) (*File, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("content", filepath.Base(name))
	if err != nil {
		return nil, fmt.Errorf("lagoon: build upload: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("lagoon: build upload: %w", err)
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("lagoon: marshal metadata: %w", err)
		}
		if err := w.WriteField("metadata", string(raw)); err != nil {
			return nil, fmt.Errorf("lagoon: build upload: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lagoon: build upload: %w", err)
	}

	var f File
	if err := s.client.doRaw(ctx, http.MethodPost, "/files", w.FormDataContentType(), body.Bytes(), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Get fetches a stored file's record by id.
func (s *FilesService) Get(ctx context.Context, id string) (*File, error) {
	var f File
	if err := s.client.do(ctx, http.MethodGet, "/files/"+id, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Delete removes a stored file.
func (s *FilesService) Delete(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodDelete, "/files/"+id, nil, nil)
}

// List returns all stored files.
func (s *FilesService) List(ctx context.Context) ([]File, error) {
	var files []File
	if err := s.client.do(ctx, http.MethodGet, "/files", nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// encodeInput walks an input map and encodes file-ish values so the
// payload is pure JSON. Scalars pass through untouched.
func (c *Client) encodeInput(ctx context.Context, in PredictionInput) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(in))
	for name, v := range in {
		ev, err := c.encodeValue(ctx, name, v)
		if err != nil {
			return nil, err
		}
		out[name] = ev
	}
	return out, nil
}

func (c *Client) encodeValue(ctx context.Context, name string, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case *os.File:
		content, err := io.ReadAll(val)
		if err != nil {
			return nil, fmt.Errorf("lagoon: read input %q: %w", name, err)
		}
		return c.encodeFile(ctx, val.Name(), content)
	case FileInput:
		return c.encodeFile(ctx, val.Name, val.Content)
	case []byte:
		return c.encodeFile(ctx, name, val)
	case io.Reader:
		// Single pass; the reader is consumed and cannot be re-submitted.
		content, err := io.ReadAll(val)
		if err != nil {
			return nil, fmt.Errorf("lagoon: read input %q: %w", name, err)
		}
		return c.encodeFile(ctx, name, content)
	case map[string]interface{}:
		nested := make(map[string]interface{}, len(val))
		for k, nv := range val {
			ev, err := c.encodeValue(ctx, k, nv)
			if err != nil {
				return nil, err
			}
			nested[k] = ev
		}
		return nested, nil
	case []interface{}:
		nested := make([]interface{}, len(val))
		for i, nv := range val {
			ev, err := c.encodeValue(ctx, name, nv)
			if err != nil {
				return nil, err
			}
			nested[i] = ev
		}
		return nested, nil
	default:
		return v, nil
	}
}

// encodeFile picks the encoding for one file value: inline data URI below
// the client's upload threshold, uploaded reference URL at or above it.
func (c *Client) encodeFile(ctx context.Context, name string, content []byte) (string, error) {
	if len(content) < c.uploadThreshold {
		if len(content) > maxInlinePayload {
			return "", fmt.Errorf("%d bytes: %w", len(content), ErrPayloadTooLarge)
		}
		return dataURI(name, content), nil
	}
	f, err := c.Files.Create(ctx, name, content, nil)
	if err != nil {
		return "", err
	}
	if u, ok := f.URLs["get"]; ok && u != "" {
		return u, nil
	}
	return "", fmt.Errorf("lagoon: uploaded file %s has no get url", f.ID)
}

func dataURI(name string, content []byte) string {
	mediaType := mime.TypeByExtension(filepath.Ext(name))
	if mediaType == "" {
		mediaType = http.DetectContentType(content)
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(content))
}
