package backend

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/papercomputeco/turntable/pkg/chat"
)

// UploadFiles uploads the files at paths to a conversation and returns the
// ids the backend assigned, in order.
func (c *Client) UploadFiles(ctx context.Context, conversationID string, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(mw, conversationID, paths))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("api", "files", "upload"), pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		FileIDs []string `json:"file_ids"`
	}
	if err := c.do(req, &out); err != nil {
		_ = pr.Close()
		return nil, err
	}

	c.logger.Debug("files uploaded", "conversation_id", conversationID, "count", len(out.FileIDs))
	return out.FileIDs, nil
}

func writeUploadForm(mw *multipart.Writer, conversationID string, paths []string) error {
	if err := mw.WriteField("conversation_id", conversationID); err != nil {
		return err
	}

	for _, p := range paths {
		if err := copyFilePart(mw, p); err != nil {
			return err
		}
	}
	return mw.Close()
}

func copyFilePart(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// FileStatus returns the processing status of an uploaded file.
func (c *Client) FileStatus(ctx context.Context, id string) (*chat.FileStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("api", "files", id, "status"), nil)
	if err != nil {
		return nil, err
	}

	var st chat.FileStatus
	if err := c.do(req, &st); err != nil {
		return nil, err
	}
	if st.ID == "" {
		st.ID = id
	}
	return &st, nil
}

// ConversationFiles lists the files attached to a conversation.
func (c *Client) ConversationFiles(ctx context.Context, conversationID string) ([]chat.FileInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("api", "files", "conversation", conversationID), nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Files []chat.FileInfo `json:"files"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// DeleteFile deletes an uploaded file.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.endpoint("api", "files", id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
