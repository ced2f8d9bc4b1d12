package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mymmrac/telego"
)

// defaultMediaMaxBytes is the default max download size (20MB, Telegram Bot API limit).
const defaultMediaMaxBytes int64 = 20 * 1024 * 1024

// FilePath resolves a file_id to its storage path via getFile.
// One attempt only; the relay does not retry outbound calls.
func (c *Channel) FilePath(ctx context.Context, fileID string) (string, error) {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("get file info: %w", err)
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("empty file path for file_id %s", fileID)
	}
	if int64(file.FileSize) > c.maxBytes {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", file.FileSize, c.maxBytes)
	}
	return file.FilePath, nil
}

// Download fetches the raw bytes stored at filePath.
func (c *Channel) Download(ctx context.Context, filePath string) ([]byte, error) {
	downloadURL := fmt.Sprintf("%s/file/bot%s/%s", c.apiServer, c.token, filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	// Read with size limit
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("file exceeds max size during download: %d bytes", len(data))
	}
	return data, nil
}
