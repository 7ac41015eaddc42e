package client

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ImageAttachment is the wire form of one image in a chat payload.
type ImageAttachment struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// buildImagePayload loads local image files into base64 data-URI
// attachments. It also returns the file basenames, which are echoed on the
// user's history entry. Remote URLs are rejected.
func buildImagePayload(paths []string) ([]ImageAttachment, []string, error) {
	var attachments []ImageAttachment
	var names []string

	for _, path := range paths {
		if path == "" {
			continue
		}
		if u, err := url.Parse(path); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			return nil, nil, fmt.Errorf("URL images are not supported, use a local file path: %s", path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading image %s: %w", path, err)
		}
		mimeType := guessMimeType(path, raw)
		attachments = append(attachments, ImageAttachment{
			Data:     fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(raw)),
			MimeType: mimeType,
		})
		names = append(names, filepath.Base(path))
	}
	return attachments, names, nil
}

// guessMimeType resolves a MIME type from the file extension, sniffing the
// content when the extension is unknown.
func guessMimeType(path string, raw []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return t
	}
	if t := http.DetectContentType(raw); t != "" {
		return t
	}
	return "application/octet-stream"
}
