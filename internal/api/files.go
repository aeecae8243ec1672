package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"maderalink/internal/models"
)

// UploadFile sends one staged file as multipart/form-data and returns the
// backend reference the project record should point at.
func (c *Client) UploadFile(ctx context.Context, token string, kind models.FileKind, filename, contentType string, r io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("kind", string(kind)); err != nil {
		return "", fmt.Errorf("write upload form: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("write upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy %s into upload: %w", filename, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/files", nil), &body)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := c.send(req, token, &out); err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	if out.ID != "" {
		return out.ID, nil
	}
	if out.URL != "" {
		return out.URL, nil
	}
	return "", fmt.Errorf("upload %s: backend returned no file reference", filename)
}
