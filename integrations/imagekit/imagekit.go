package imagekit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	pkgError "github.com/keyquest/wa-gateway/pkg/error"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
)

const (
	uploadEndpoint = "https://upload.imagekit.io/api/v1/files/upload"
	httpTimeout    = 30 * time.Second

	// MaxUploadBytes caps inbound upload size.
	MaxUploadBytes = 5 * 1024 * 1024
)

// UploadResult is the subset of the upload response the dashboard needs.
type UploadResult struct {
	FileID   string `json:"file_id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int    `json:"size"`
	MimeType string `json:"mime_type"`
}

// Client uploads broadcast images to ImageKit. Unconfigured credentials
// make Configured() false; callers should answer 503 in that case.
type Client struct {
	publicKey  string
	privateKey string
	endpoint   string
	uploadURL  string
	http       *http.Client
}

func NewClient(publicKey, privateKey, urlEndpoint string) *Client {
	return &Client{
		publicKey:  publicKey,
		privateKey: privateKey,
		endpoint:   urlEndpoint,
		uploadURL:  uploadEndpoint,
		http:       &http.Client{Timeout: httpTimeout},
	}
}

func (c *Client) Configured() bool {
	return c.privateKey != "" && c.endpoint != ""
}

// Upload validates, normalizes and stores one image. WebP is converted to
// PNG first since not every WhatsApp client renders WebP attachments.
func (c *Client) Upload(ctx context.Context, fileName string, data []byte) (*UploadResult, error) {
	if !c.Configured() {
		return nil, pkgError.ServiceUnavailableError("image upload is not configured")
	}
	if len(data) == 0 {
		return nil, pkgError.ValidationError("empty file")
	}
	if len(data) > MaxUploadBytes {
		return nil, pkgError.ValidationError(fmt.Sprintf("file exceeds the %dMB limit", MaxUploadBytes/1024/1024))
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, pkgError.ValidationError("only image uploads are accepted")
	}

	width, height := 0, 0
	if mimeType == "image/webp" {
		converted, err := convertWebPToPNG(data)
		if err != nil {
			return nil, pkgError.ValidationError("could not decode webp image: " + err.Error())
		}
		data = converted
		mimeType = "image/png"
		fileName = replaceExtension(fileName, ".png")
	}
	if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
		bounds := img.Bounds()
		width, height = bounds.Dx(), bounds.Dy()
	}

	body, contentType, err := buildMultipart(fileName, data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth(c.privateKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagekit upload failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("imagekit returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed struct {
		FileID string `json:"fileId"`
		Name   string `json:"name"`
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Size   int    `json:"size"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode imagekit response: %w", err)
	}

	result := &UploadResult{
		FileID:   parsed.FileID,
		Name:     parsed.Name,
		URL:      parsed.URL,
		Width:    parsed.Width,
		Height:   parsed.Height,
		Size:     parsed.Size,
		MimeType: mimeType,
	}
	if result.Width == 0 {
		result.Width, result.Height = width, height
	}
	if result.Size == 0 {
		result.Size = len(data)
	}

	logrus.Infof("[IMAGEKIT] Uploaded %s (%dx%d, %d bytes)", result.Name, result.Width, result.Height, result.Size)
	return result, nil
}

func buildMultipart(fileName string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("fileName", fileName); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("useUniqueFileName", "true"); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func convertWebPToPNG(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func replaceExtension(fileName, ext string) string {
	if idx := strings.LastIndex(fileName, "."); idx > 0 {
		fileName = fileName[:idx]
	}
	if fileName == "" {
		fileName = "upload"
	}
	return fileName + ext
}
