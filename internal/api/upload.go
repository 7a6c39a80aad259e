package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// FormField is one text part of a multipart upload.
type FormField struct {
	Name  string
	Value string
}

// UploadRequest describes a multipart POST carrying one file part followed by text parts.
type UploadRequest struct {
	FileField   string // Form name of the file part
	FileName    string
	ContentType string // Content-Type of the file part; application/octet-stream when empty
	Content     io.Reader
	Fields      []FormField
}

// UploadResponse is the raw outcome of a successful upload.
type UploadResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// Upload streams req as multipart/form-data to path. The multipart writer picks the
// boundary; the request carries the bearer credential and fails with ErrNotSignedIn
// when the store holds none.
//
// A 401 clears the credential and fails as in Do. Other non-2xx responses fail with an
// *Error whose Message is the body message or the status text; callers refine it.
func (c *Client) Upload(ctx context.Context, path string, req UploadRequest) (*UploadResponse, error) {
	token := ""
	if c.store != nil {
		t, err := c.store.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read credential: %w", err)
		}
		token = t
	}
	if token == "" {
		return nil, ErrNotSignedIn
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, req))
	}()

	httpReq, requestID, err := c.newRequest(ctx, http.MethodPost, path, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+token)

	status, body, header, err := c.send(httpReq, requestID)
	// unblocks the writer when the transport gave up before draining the body
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, c.fail(ctx, status, body, requestID, false)
	}
	return &UploadResponse{Status: status, ContentType: header.Get("Content-Type"), Body: body}, nil
}

func writeMultipart(mw *multipart.Writer, req UploadRequest) error {
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(req.FileField), escapeQuotes(req.FileName)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, req.Content); err != nil {
		return fmt.Errorf("failed to stream %s: %w", req.FileName, err)
	}
	for _, f := range req.Fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return err
		}
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
